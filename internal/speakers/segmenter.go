// Package speakers derives heuristic speaker turns from transcript
// timing. Without voice embeddings the only usable signal is silence: a
// long enough gap between consecutive segments is treated as a turn
// change and assigned the next ordinal speaker label.
package speakers

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/transcribe"
)

// Segment is one contiguous span attributed to a single speaker label.
type Segment struct {
	SpeakerID  string  `json:"speaker_id"`
	StartTime  float64 `json:"start_time"`
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Profile aggregates speaking time per label.
type Profile struct {
	SpeakerID      string  `json:"speaker_id"`
	TotalDuration  float64 `json:"total_duration"`
	SegmentCount   int     `json:"segment_count"`
	MeanConfidence float64 `json:"mean_confidence"`
}

// Segmenter groups transcript segments into speaker turns.
type Segmenter struct {
	logger zerolog.Logger
	// gap in seconds of silence that starts a new speaker turn
	gap float64
}

// NewSegmenter creates a segmenter. gapSeconds <= 0 selects the default
// of 2 seconds.
func NewSegmenter(logger zerolog.Logger, gapSeconds float64) *Segmenter {
	if gapSeconds <= 0 {
		gapSeconds = 2.0
	}
	return &Segmenter{
		logger: logger.With().Str("component", "speakers").Logger(),
		gap:    gapSeconds,
	}
}

// Segment labels each transcript segment with an ordinal speaker.
// Labels start at Speaker_1 and increment whenever the silence between
// consecutive segments exceeds the configured gap. The input order is
// preserved; the transcription chain already sorts by start time.
func (s *Segmenter) Segment(transcript []transcribe.Segment) []Segment {
	if len(transcript) == 0 {
		return nil
	}

	out := make([]Segment, 0, len(transcript))
	speaker := 1
	var prevEnd float64
	for i, seg := range transcript {
		if i > 0 && seg.StartTime-prevEnd > s.gap {
			speaker++
		}
		out = append(out, Segment{
			SpeakerID:  fmt.Sprintf("Speaker_%d", speaker),
			StartTime:  seg.StartTime,
			EndTime:    seg.EndTime,
			Text:       seg.Text,
			Confidence: seg.Confidence,
		})
		prevEnd = seg.EndTime
	}

	s.logger.Debug().
		Int("segments", len(out)).
		Int("speakers", speaker).
		Msg("speaker segmentation complete")
	return out
}

// Profiles summarizes total speaking time and confidence per speaker,
// ordered by first appearance.
func Profiles(segments []Segment) []Profile {
	var order []string
	acc := make(map[string]*Profile)
	for _, seg := range segments {
		p, ok := acc[seg.SpeakerID]
		if !ok {
			p = &Profile{SpeakerID: seg.SpeakerID}
			acc[seg.SpeakerID] = p
			order = append(order, seg.SpeakerID)
		}
		p.TotalDuration += seg.EndTime - seg.StartTime
		p.SegmentCount++
		p.MeanConfidence += seg.Confidence
	}

	out := make([]Profile, 0, len(order))
	for _, id := range order {
		p := acc[id]
		if p.SegmentCount > 0 {
			p.MeanConfidence /= float64(p.SegmentCount)
		}
		out = append(out, *p)
	}
	return out
}
