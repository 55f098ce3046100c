package media

import (
	"context"
	"fmt"
)

// AudioFormat defines audio extraction format options
type AudioFormat struct {
	Codec      string
	SampleRate int
	Channels   int
}

// DefaultTranscriptionFormat returns the mono 16kHz 16-bit PCM layout
// expected by the speech engines.
func DefaultTranscriptionFormat() AudioFormat {
	return AudioFormat{
		Codec:      "pcm_s16le",
		SampleRate: 16000,
		Channels:   1,
	}
}

// ExtractAudio demuxes the audio track into a WAV file at outPath. Any
// extraction error is reported as ErrDemuxFailure; callers degrade to
// video-only analysis rather than failing the run.
func (e *Executor) ExtractAudio(ctx context.Context, input, outPath string, format AudioFormat) error {
	e.logger.Info().
		Str("input", input).
		Str("output", outPath).
		Str("codec", format.Codec).
		Int("sample_rate", format.SampleRate).
		Msg("extracting audio")

	args := []string{
		"-i", input,
		"-vn",
		"-acodec", format.Codec,
		"-ar", fmt.Sprintf("%d", format.SampleRate),
		"-ac", fmt.Sprintf("%d", format.Channels),
		"-f", "wav",
		outPath,
	}

	if _, err := e.run(ctx, args); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", ErrDemuxFailure, err)
	}

	return nil
}
