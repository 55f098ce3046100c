package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// RemoteEngine calls a context-aware managed speech service. It only
// accepts inputs within the service limits; anything larger or longer is
// declared ineligible so the chain falls through to the local engine.
type RemoteEngine struct {
	logger     zerolog.Logger
	endpoint   string
	apiKey     string
	model      string
	maxSizeMB  int64
	maxSeconds int
	client     *http.Client
}

// RemoteOptions configures the managed speech client.
type RemoteOptions struct {
	Endpoint   string
	APIKey     string
	Model      string
	MaxSizeMB  int64 // default 25
	MaxSeconds int   // default 600
}

// NewRemoteEngine creates the remote transcription engine.
func NewRemoteEngine(logger zerolog.Logger, opts RemoteOptions) *RemoteEngine {
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 25
	}
	if opts.MaxSeconds <= 0 {
		opts.MaxSeconds = 600
	}
	return &RemoteEngine{
		logger:     logger.With().Str("engine", "remote-speech").Logger(),
		endpoint:   opts.Endpoint,
		apiKey:     opts.APIKey,
		model:      opts.Model,
		maxSizeMB:  opts.MaxSizeMB,
		maxSeconds: opts.MaxSeconds,
		client:     &http.Client{Timeout: 10 * time.Minute},
	}
}

func (r *RemoteEngine) Name() string { return "remote_speech" }

func (r *RemoteEngine) Available() bool { return r.endpoint != "" }

// Eligible enforces the service's file-size and duration limits.
func (r *RemoteEngine) Eligible(audioPath string, duration float64) bool {
	fi, err := os.Stat(audioPath)
	if err != nil {
		return false
	}
	if fi.Size() > r.maxSizeMB*1024*1024 {
		r.logger.Debug().Int64("size", fi.Size()).Msg("audio too large for remote engine")
		return false
	}
	if duration > float64(r.maxSeconds) {
		r.logger.Debug().Float64("duration", duration).Msg("audio too long for remote engine")
		return false
	}
	return true
}

type remoteSegment struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

type remoteTranscription struct {
	Text       string          `json:"text"`
	Language   string          `json:"language"`
	Confidence float64         `json:"confidence"`
	Segments   []remoteSegment `json:"segments"`
}

// Transcribe uploads the WAV and maps the service response. The service
// reports confidence on [0,1] already; the chain clamps defensively.
func (r *RemoteEngine) Transcribe(ctx context.Context, audioPath string, duration float64) (*Transcript, error) {
	if !r.Available() {
		return nil, ErrEngineUnavailable
	}

	f, err := os.Open(audioPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model", r.model); err != nil {
		return nil, err
	}
	fw, err := mw.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("speech service http %d: %s", resp.StatusCode, string(b))
	}

	var parsed remoteTranscription
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	tr := &Transcript{
		Text:       parsed.Text,
		Language:   parsed.Language,
		Confidence: parsed.Confidence,
		Segments:   make([]Segment, 0, len(parsed.Segments)),
	}
	for _, s := range parsed.Segments {
		tr.Segments = append(tr.Segments, Segment{
			StartTime:  s.Start,
			EndTime:    s.End,
			Text:       s.Text,
			Confidence: s.Confidence,
		})
	}
	return tr, nil
}
