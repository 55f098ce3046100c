package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// RemoteEngine talks to a managed OCR service that returns line-level text
// with bounding boxes and per-line confidence.
type RemoteEngine struct {
	logger   zerolog.Logger
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteEngine creates the cloud OCR client. An empty endpoint leaves
// the engine unavailable, which the chain treats as a silent skip.
func NewRemoteEngine(logger zerolog.Logger, endpoint, apiKey string) *RemoteEngine {
	return &RemoteEngine{
		logger:   logger.With().Str("engine", "remote-ocr").Logger(),
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (r *RemoteEngine) Name() string { return "remote_ocr" }

func (r *RemoteEngine) Available() bool { return r.endpoint != "" }

type remoteLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Box        struct {
		X      int `json:"x"`
		Y      int `json:"y"`
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"box"`
}

type remoteResponse struct {
	Lines []remoteLine `json:"lines"`
}

// Recognize posts the frame as JPEG and maps the service's line results.
func (r *RemoteEngine) Recognize(ctx context.Context, img image.Image) (*Recognition, error) {
	if !r.Available() {
		return nil, ErrEngineUnavailable
	}

	var payload bytes.Buffer
	mw := multipart.NewWriter(&payload)
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, err
	}
	if err := jpeg.Encode(fw, img, &jpeg.Options{Quality: 85}); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &payload)
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
		return nil, fmt.Errorf("ocr service http %d: %s", resp.StatusCode, string(b))
	}

	var parsed remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	rec := &Recognition{Blocks: make([]Block, 0, len(parsed.Lines))}
	var text bytes.Buffer
	var confSum float64
	for _, line := range parsed.Lines {
		rec.Blocks = append(rec.Blocks, Block{
			Text:       line.Text,
			Confidence: line.Confidence,
			X:          line.Box.X,
			Y:          line.Box.Y,
			Width:      line.Box.Width,
			Height:     line.Box.Height,
		})
		if text.Len() > 0 {
			text.WriteByte('\n')
		}
		text.WriteString(line.Text)
		confSum += line.Confidence
	}
	rec.Text = text.String()
	if len(parsed.Lines) > 0 {
		rec.Confidence = confSum / float64(len(parsed.Lines))
	}

	r.logger.Debug().
		Int("lines", len(parsed.Lines)).
		Float64("confidence", rec.Confidence).
		Msg("remote ocr complete")

	return rec, nil
}
