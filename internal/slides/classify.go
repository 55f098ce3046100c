// Package slides recognizes presentation-style content in keyframes from
// pixel statistics alone: flat backgrounds, structured edges, glyph-like
// fine detail and bullet-list layouts.
package slides

import (
	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/keyframe"
)

// Features holds the per-keyframe structural measurements and the derived
// slide judgment. One record exists per keyframe, keyed by timestamp.
type Features struct {
	Timestamp            float64 `json:"timestamp"`
	FrameIndex           int     `json:"frame_index"`
	BackgroundUniformity float64 `json:"background_uniformity"`
	EdgeDensity          float64 `json:"edge_density"`
	TextDensity          float64 `json:"text_density"`
	HasBullets           bool    `json:"has_bullets"`
	IsSlide              bool    `json:"is_slide"`
}

// Summary aggregates the per-frame features over a whole run.
type Summary struct {
	EstimatedSlideCount  int  `json:"estimated_slide_count"`
	HasTextSlides        bool `json:"has_text_slides"`
	HasBulletPoints      bool `json:"has_bullet_points"`
	SlideTransitionCount int  `json:"slide_transition_count"`
}

// Config holds the slide judgment thresholds.
type Config struct {
	MinUniformity  float64
	MinEdgeDensity float64
	MinTextDensity float64
}

// DefaultConfig returns the calibrated slide thresholds.
func DefaultConfig() Config {
	return Config{
		MinUniformity:  0.7,
		MinEdgeDensity: 0.02,
		MinTextDensity: 0.1,
	}
}

// Classifier computes slide features for keyframes. It reads keyframe data
// only and produces no side effects.
type Classifier struct {
	logger zerolog.Logger
	cfg    Config
}

// NewClassifier creates a slide classifier.
func NewClassifier(logger zerolog.Logger, cfg Config) *Classifier {
	return &Classifier{
		logger: logger.With().Str("component", "slide-classifier").Logger(),
		cfg:    cfg,
	}
}

// Classify measures every keyframe and folds the measurements into a
// Summary. No cross-frame state exists beyond counting.
func (c *Classifier) Classify(keyframes []*keyframe.Keyframe) ([]Features, Summary) {
	features := make([]Features, 0, len(keyframes))
	var summary Summary

	for _, kf := range keyframes {
		f := c.analyzeFrame(kf)
		features = append(features, f)

		if f.IsSlide {
			summary.EstimatedSlideCount++
			summary.HasTextSlides = true
		}
		if f.HasBullets {
			summary.HasBulletPoints = true
		}
		if kf.SceneChange && f.IsSlide {
			summary.SlideTransitionCount++
		}
	}

	c.logger.Info().
		Int("frames", len(features)).
		Int("slides", summary.EstimatedSlideCount).
		Bool("bullets", summary.HasBulletPoints).
		Msg("slide classification complete")

	return features, summary
}

func (c *Classifier) analyzeFrame(kf *keyframe.Keyframe) Features {
	f := Features{
		Timestamp:  kf.Timestamp,
		FrameIndex: kf.FrameIndex,
	}
	if kf.Gray == nil {
		return f
	}

	edges := sobelEdges(kf.Gray)

	f.BackgroundUniformity = backgroundUniformity(kf.Gray)
	f.EdgeDensity = edges.density()
	f.TextDensity = textDensity(kf.Gray)
	f.HasBullets = hasBulletPatterns(edges)

	f.IsSlide = f.BackgroundUniformity > c.cfg.MinUniformity &&
		f.EdgeDensity > c.cfg.MinEdgeDensity &&
		f.TextDensity > c.cfg.MinTextDensity

	c.logger.Debug().
		Float64("timestamp", f.Timestamp).
		Float64("uniformity", f.BackgroundUniformity).
		Float64("edge_density", f.EdgeDensity).
		Float64("text_density", f.TextDensity).
		Bool("bullets", f.HasBullets).
		Bool("is_slide", f.IsSlide).
		Msg("frame analyzed")

	return f
}
