// Package ocr extracts on-screen text from keyframes through a prioritized
// engine-fallback chain. Engines are black boxes behind one interface; OCR
// is best-effort per frame and never fails the pipeline.
package ocr

import (
	"context"
	"errors"
	"image"
	"strings"

	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/keyframe"
)

// ErrEngineUnavailable means an engine cannot run in this environment
// (missing binary, no endpoint configured). The chain skips to the next
// engine; it is never surfaced as a pipeline error.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Block is one recognized text region with geometry and confidence.
type Block struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
}

// Recognition is one engine's output for a single frame.
type Recognition struct {
	Text       string
	Blocks     []Block
	Confidence float64
}

// FrameResult is the per-keyframe OCR outcome. Exactly one exists per
// keyframe: frames where no engine ran still produce an empty-text,
// zero-confidence record.
type FrameResult struct {
	Timestamp     float64  `json:"timestamp"`
	FrameIndex    int      `json:"frame_index"`
	ExtractedText string   `json:"extracted_text"`
	Blocks        []Block  `json:"text_blocks"`
	Confidence    float64  `json:"confidence"`
	Method        string   `json:"method"`
	Languages     []string `json:"languages,omitempty"`
}

// Engine is a pluggable text recognizer.
type Engine interface {
	Name() string
	Available() bool
	Recognize(ctx context.Context, img image.Image) (*Recognition, error)
}

// Chain tries engines in priority order; the first non-error, non-empty
// result wins.
type Chain struct {
	logger  zerolog.Logger
	engines []Engine
}

// NewChain creates an OCR fallback chain.
func NewChain(logger zerolog.Logger, engines ...Engine) *Chain {
	return &Chain{
		logger:  logger.With().Str("component", "ocr").Logger(),
		engines: engines,
	}
}

// ExtractText recognizes text in every keyframe independently. The returned
// slice always has exactly one FrameResult per keyframe, in keyframe order.
func (c *Chain) ExtractText(ctx context.Context, keyframes []*keyframe.Keyframe) []FrameResult {
	results := make([]FrameResult, 0, len(keyframes))
	for _, kf := range keyframes {
		results = append(results, c.recognizeFrame(ctx, kf))
	}

	withText := 0
	for _, r := range results {
		if r.ExtractedText != "" {
			withText++
		}
	}
	c.logger.Info().
		Int("frames", len(results)).
		Int("with_text", withText).
		Msg("ocr complete")

	return results
}

func (c *Chain) recognizeFrame(ctx context.Context, kf *keyframe.Keyframe) FrameResult {
	result := FrameResult{
		Timestamp:  kf.Timestamp,
		FrameIndex: kf.FrameIndex,
		Blocks:     []Block{},
		Method:     "none",
	}
	if kf.Image == nil {
		return result
	}

	for _, engine := range c.engines {
		if !engine.Available() {
			continue
		}

		rec, err := engine.Recognize(ctx, kf.Image)
		if err != nil {
			c.logger.Warn().
				Err(err).
				Str("engine", engine.Name()).
				Float64("timestamp", kf.Timestamp).
				Msg("ocr engine failed, trying next")
			continue
		}
		if rec == nil || strings.TrimSpace(rec.Text) == "" {
			continue
		}

		result.ExtractedText = strings.TrimSpace(rec.Text)
		result.Blocks = rec.Blocks
		result.Confidence = rec.Confidence
		result.Method = engine.Name()
		result.Languages = DetectLanguages(result.ExtractedText)
		return result
	}

	return result
}
