// Package timeline merges visual and audio observations into a single
// time-ordered event stream, then derives cross-modal sync points,
// content flow statistics, themes, and a presentation-style estimate.
package timeline

import (
	"sort"

	"github.com/veralux/lectern/internal/keyframe"
	"github.com/veralux/lectern/internal/ocr"
	"github.com/veralux/lectern/internal/speakers"
)

// EventType identifies the modality of a timeline event.
type EventType string

const (
	EventVisualKeyframe EventType = "visual_keyframe"
	EventVisualText     EventType = "visual_text"
	EventAudioSpeech    EventType = "audio_speech"
	EventSpeakerChange  EventType = "speaker_change"
)

// typePriority breaks ties between events sharing a timestamp so the
// merged stream is deterministic.
var typePriority = map[EventType]int{
	EventVisualKeyframe: 0,
	EventVisualText:     1,
	EventAudioSpeech:    2,
	EventSpeakerChange:  3,
}

// Event is one observation on the merged timeline. Exactly one of the
// payload pointers is set, matching Type.
type Event struct {
	Timestamp float64   `json:"timestamp"`
	Type      EventType `json:"type"`

	Keyframe *KeyframeEvent `json:"keyframe,omitempty"`
	Text     *TextEvent     `json:"text,omitempty"`
	Speech   *SpeechEvent   `json:"speech,omitempty"`
	Speaker  *SpeakerEvent  `json:"speaker,omitempty"`
}

// KeyframeEvent records a retained frame.
type KeyframeEvent struct {
	FrameIndex     int     `json:"frame_index"`
	SceneChange    bool    `json:"scene_change"`
	PerceptualDiff float64 `json:"perceptual_diff"`
}

// TextEvent records on-screen text recognized from a keyframe.
type TextEvent struct {
	FrameIndex int     `json:"frame_index"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Method     string  `json:"method"`
}

// SpeechEvent records one transcript span attributed to a speaker.
type SpeechEvent struct {
	EndTime    float64 `json:"end_time"`
	Text       string  `json:"text"`
	SpeakerID  string  `json:"speaker_id"`
	Confidence float64 `json:"confidence"`
}

// SpeakerEvent marks the moment the active speaker label changes.
type SpeakerEvent struct {
	SpeakerID     string `json:"speaker_id"`
	PrevSpeakerID string `json:"prev_speaker_id,omitempty"`
}

// Build merges all modalities into one stream sorted by timestamp, with
// ties broken by modality (keyframe, text, speech, speaker change).
// OCR records with empty text contribute no event; speaker changes are
// emitted for every transition including the first speaker's entrance.
func Build(keyframes []*keyframe.Keyframe, ocrResults []ocr.FrameResult, speech []speakers.Segment) []Event {
	events := make([]Event, 0, len(keyframes)+len(ocrResults)+2*len(speech))

	for _, kf := range keyframes {
		events = append(events, Event{
			Timestamp: kf.Timestamp,
			Type:      EventVisualKeyframe,
			Keyframe: &KeyframeEvent{
				FrameIndex:     kf.FrameIndex,
				SceneChange:    kf.SceneChange,
				PerceptualDiff: kf.PerceptualDiff,
			},
		})
	}

	for _, res := range ocrResults {
		if res.ExtractedText == "" {
			continue
		}
		events = append(events, Event{
			Timestamp: res.Timestamp,
			Type:      EventVisualText,
			Text: &TextEvent{
				FrameIndex: res.FrameIndex,
				Text:       res.ExtractedText,
				Confidence: res.Confidence,
				Method:     res.Method,
			},
		})
	}

	prevSpeaker := ""
	for _, seg := range speech {
		events = append(events, Event{
			Timestamp: seg.StartTime,
			Type:      EventAudioSpeech,
			Speech: &SpeechEvent{
				EndTime:    seg.EndTime,
				Text:       seg.Text,
				SpeakerID:  seg.SpeakerID,
				Confidence: seg.Confidence,
			},
		})
		if seg.SpeakerID != prevSpeaker {
			events = append(events, Event{
				Timestamp: seg.StartTime,
				Type:      EventSpeakerChange,
				Speaker: &SpeakerEvent{
					SpeakerID:     seg.SpeakerID,
					PrevSpeakerID: prevSpeaker,
				},
			})
			prevSpeaker = seg.SpeakerID
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Timestamp != events[j].Timestamp {
			return events[i].Timestamp < events[j].Timestamp
		}
		return typePriority[events[i].Type] < typePriority[events[j].Type]
	})
	return events
}
