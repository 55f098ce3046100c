package pipeline

import (
	"github.com/veralux/lectern/internal/keyframe"
	"github.com/veralux/lectern/internal/media"
	"github.com/veralux/lectern/internal/ocr"
	"github.com/veralux/lectern/internal/slides"
	"github.com/veralux/lectern/internal/speakers"
	"github.com/veralux/lectern/internal/timeline"
	"github.com/veralux/lectern/internal/transcribe"
)

// AudioAnalysis is the outcome of the audio branch. When extraction or
// transcription fails, AudioExtracted is false, Method names the reason
// and the remaining fields are empty; the rest of the result is
// unaffected.
type AudioAnalysis struct {
	AudioExtracted  bool                   `json:"audio_extracted"`
	Method          string                 `json:"method"`
	Transcript      *transcribe.Transcript `json:"transcript,omitempty"`
	SpeakerSegments []speakers.Segment     `json:"speaker_segments,omitempty"`
	SpeakerProfiles []speakers.Profile     `json:"speaker_profiles,omitempty"`
}

// emptyAudioAnalysis records a degraded audio branch with the reason the
// audio could not be analyzed.
func emptyAudioAnalysis(reason string) AudioAnalysis {
	return AudioAnalysis{AudioExtracted: false, Method: reason}
}

// Result is the complete analysis of one video.
type Result struct {
	ID        string `json:"id"`
	VideoPath string `json:"video_path"`

	Metadata media.VideoMetadata `json:"metadata"`

	Keyframes    []*keyframe.Keyframe `json:"keyframes"`
	SlideFrames  []slides.Features    `json:"slide_frames"`
	SlideSummary slides.Summary       `json:"slide_summary"`
	OCRResults   []ocr.FrameResult    `json:"ocr_results"`

	Audio AudioAnalysis `json:"audio_analysis"`

	Timeline timeline.Summary `json:"timeline"`
}
