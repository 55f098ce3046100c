// Package transcribe converts extracted audio into a time-coded transcript
// through a prioritized engine-fallback chain: a remote context-aware
// engine first, then a local speech-recognition engine.
package transcribe

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// ErrEngineUnavailable means no transcription engine produced a usable
// transcript. The audio branch degrades to its empty value; the pipeline
// records the reason and continues.
var ErrEngineUnavailable = errors.New("no transcription engine available")

// Segment is one time-coded span of speech. Confidence is normalized to
// [0,1] regardless of the producing engine's native scale.
type Segment struct {
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcript is the full transcription outcome for one audio track.
type Transcript struct {
	Text       string    `json:"transcript"`
	Segments   []Segment `json:"segments"`
	Confidence float64   `json:"confidence"`
	Method     string    `json:"method"`
	Language   string    `json:"language,omitempty"`
}

// Engine is a pluggable speech-to-text backend.
type Engine interface {
	Name() string
	Available() bool
	// Eligible lets an engine refuse inputs outside its limits (file size,
	// duration) so the chain skips straight to the fallback.
	Eligible(audioPath string, duration float64) bool
	Transcribe(ctx context.Context, audioPath string, duration float64) (*Transcript, error)
}

// Chain tries engines in priority order; the first non-error, non-empty
// transcript wins.
type Chain struct {
	logger  zerolog.Logger
	engines []Engine
}

// NewChain creates a transcription fallback chain.
func NewChain(logger zerolog.Logger, engines ...Engine) *Chain {
	return &Chain{
		logger:  logger.With().Str("component", "transcribe").Logger(),
		engines: engines,
	}
}

// Transcribe runs the chain over one audio file.
func (c *Chain) Transcribe(ctx context.Context, audioPath string, duration float64) (*Transcript, error) {
	for _, engine := range c.engines {
		if !engine.Available() {
			c.logger.Debug().Str("engine", engine.Name()).Msg("engine unavailable, skipping")
			continue
		}
		if !engine.Eligible(audioPath, duration) {
			c.logger.Info().Str("engine", engine.Name()).Msg("input outside engine limits, skipping")
			continue
		}

		tr, err := engine.Transcribe(ctx, audioPath, duration)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn().Err(err).Str("engine", engine.Name()).Msg("transcription failed, trying next")
			continue
		}
		if tr == nil || strings.TrimSpace(tr.Text) == "" {
			continue
		}

		tr.Method = engine.Name()
		normalize(tr, duration)
		c.logger.Info().
			Str("engine", engine.Name()).
			Int("segments", len(tr.Segments)).
			Float64("confidence", tr.Confidence).
			Msg("transcription complete")
		return tr, nil
	}

	return nil, ErrEngineUnavailable
}

// normalize enforces the transcript contract: confidences in [0,1],
// segments monotonically increasing in start time, and a synthesized
// whole-audio segment when the engine provided no timing at all.
func normalize(tr *Transcript, duration float64) {
	tr.Text = strings.TrimSpace(tr.Text)

	if len(tr.Segments) == 0 && tr.Text != "" {
		tr.Segments = []Segment{{
			StartTime:  0,
			EndTime:    duration,
			Text:       tr.Text,
			Confidence: clamp01(tr.Confidence),
		}}
	}

	sort.SliceStable(tr.Segments, func(i, j int) bool {
		return tr.Segments[i].StartTime < tr.Segments[j].StartTime
	})

	var confSum float64
	for i := range tr.Segments {
		tr.Segments[i].Text = strings.TrimSpace(tr.Segments[i].Text)
		tr.Segments[i].Confidence = clamp01(tr.Segments[i].Confidence)
		confSum += tr.Segments[i].Confidence
	}
	if len(tr.Segments) > 0 {
		tr.Confidence = confSum / float64(len(tr.Segments))
	} else {
		tr.Confidence = clamp01(tr.Confidence)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
