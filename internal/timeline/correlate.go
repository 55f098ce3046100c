package timeline

import (
	"math"

	"github.com/rs/zerolog"
)

// SyncPoint marks a moment where visual and audio activity coincide
// within the correlation window.
type SyncPoint struct {
	Timestamp float64 `json:"timestamp"`
	// Strength grows with the number of co-occurring events, saturating
	// at three events.
	Strength   float64  `json:"strength"`
	EventTypes []string `json:"event_types"`
}

// FlowStats summarizes the pacing of the merged timeline.
type FlowStats struct {
	SceneChanges     int     `json:"scene_changes"`
	SpeakerChanges   int     `json:"speaker_changes"`
	AvgSceneDuration float64 `json:"avg_scene_duration"`
	EventsPerMinute  float64 `json:"events_per_minute"`
}

// Summary is the full cross-modal analysis of a timeline.
type Summary struct {
	Events     []Event     `json:"events"`
	SyncPoints []SyncPoint `json:"sync_points"`
	Flow       FlowStats   `json:"content_flow"`
	Themes     []Theme     `json:"key_themes"`
	Style      string      `json:"presentation_style"`
}

// Presentation style labels derived from scene and speaker pacing.
const (
	StyleSlidePresentation   = "slide_presentation"
	StyleInterviewDiscussion = "interview_discussion"
	StyleLectureMonologue    = "lecture_monologue"
	StyleInteractiveTutorial = "interactive_tutorial"
	StyleMixedContent        = "mixed_content"
)

// syncEventBudget is the co-occurring event count at which a sync point
// reaches full strength.
const syncEventBudget = 3.0

// Correlator derives cross-modal structure from a merged event stream.
type Correlator struct {
	logger zerolog.Logger
	// window in seconds around a scene change searched for audio events
	window float64
}

// NewCorrelator creates a correlator. windowSeconds <= 0 selects the
// default of 5 seconds.
func NewCorrelator(logger zerolog.Logger, windowSeconds float64) *Correlator {
	if windowSeconds <= 0 {
		windowSeconds = 5.0
	}
	return &Correlator{
		logger: logger.With().Str("component", "timeline").Logger(),
		window: windowSeconds,
	}
}

// Correlate analyzes a merged event stream over a video of the given
// duration (seconds).
func (c *Correlator) Correlate(events []Event, duration float64) Summary {
	sum := Summary{
		Events:     events,
		SyncPoints: c.syncPoints(events),
		Flow:       flowStats(events, duration),
		Themes:     ExtractThemes(collectText(events)),
	}
	sum.Style = classifyStyle(sum.Flow, duration)

	c.logger.Info().
		Int("events", len(events)).
		Int("sync_points", len(sum.SyncPoints)).
		Str("style", sum.Style).
		Msg("timeline correlation complete")
	return sum
}

// syncPoints finds visual events with audio activity inside the window.
// Every keyframe and on-screen-text event is a candidate, not just scene
// changes.
func (c *Correlator) syncPoints(events []Event) []SyncPoint {
	var points []SyncPoint
	for _, ev := range events {
		if ev.Type != EventVisualKeyframe && ev.Type != EventVisualText {
			continue
		}

		types := []string{string(ev.Type)}
		count := 0
		for _, other := range events {
			if other.Type != EventAudioSpeech && other.Type != EventSpeakerChange {
				continue
			}
			if math.Abs(other.Timestamp-ev.Timestamp) <= c.window {
				count++
				types = append(types, string(other.Type))
			}
		}
		if count == 0 {
			continue
		}
		points = append(points, SyncPoint{
			Timestamp:  ev.Timestamp,
			Strength:   math.Min(1.0, float64(count)/syncEventBudget),
			EventTypes: types,
		})
	}
	return points
}

func flowStats(events []Event, duration float64) FlowStats {
	var stats FlowStats
	for _, ev := range events {
		switch ev.Type {
		case EventVisualKeyframe:
			if ev.Keyframe != nil && ev.Keyframe.SceneChange {
				stats.SceneChanges++
			}
		case EventSpeakerChange:
			stats.SpeakerChanges++
		}
	}
	// a video with no cuts is one scene spanning the whole duration
	stats.AvgSceneDuration = duration
	if stats.SceneChanges > 0 {
		stats.AvgSceneDuration = duration / float64(stats.SceneChanges)
	}
	if duration > 0 {
		stats.EventsPerMinute = float64(len(events)) / (duration / 60.0)
	}
	return stats
}

// classifyStyle maps scene and speaker rates (events per minute) onto a
// coarse presentation style.
func classifyStyle(flow FlowStats, duration float64) string {
	if duration <= 0 {
		return StyleMixedContent
	}
	minutes := duration / 60.0
	sceneRate := float64(flow.SceneChanges) / minutes
	speakerRate := float64(flow.SpeakerChanges) / minutes

	switch {
	case sceneRate > 2 && speakerRate < 0.5:
		return StyleSlidePresentation
	case speakerRate > 1:
		return StyleInterviewDiscussion
	case sceneRate < 0.5 && speakerRate < 0.5:
		return StyleLectureMonologue
	case sceneRate > 1 && speakerRate > 0.5:
		return StyleInteractiveTutorial
	default:
		return StyleMixedContent
	}
}

// collectText gathers all spoken and on-screen text for theme analysis.
func collectText(events []Event) []string {
	var texts []string
	for _, ev := range events {
		switch {
		case ev.Type == EventVisualText && ev.Text != nil:
			texts = append(texts, ev.Text.Text)
		case ev.Type == EventAudioSpeech && ev.Speech != nil:
			texts = append(texts, ev.Speech.Text)
		}
	}
	return texts
}
