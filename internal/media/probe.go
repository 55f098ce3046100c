package media

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/veralux/lectern/pkg/util"
)

// VideoMetadata describes the source container. Computed once at open time
// and immutable afterwards.
type VideoMetadata struct {
	Duration   float64 `json:"duration"`
	FPS        float64 `json:"fps"`
	FrameCount int     `json:"frame_count"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FileSize   int64   `json:"file_size"`
	HasAudio   bool    `json:"has_audio"`
}

// Probe extracts metadata from a video file. A container that cannot be
// demuxed, or that reports zero decodable frames, fails with
// ErrUnreadableMedia.
func (e *Executor) Probe(ctx context.Context, filePath string) (*VideoMetadata, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required")
	}

	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		filePath,
	}

	cmd := exec.CommandContext(ctx, e.ffprobePath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: ffprobe failed: %v", ErrUnreadableMedia, err)
	}

	var probe probeResult
	if err := json.Unmarshal(output, &probe); err != nil {
		return nil, fmt.Errorf("%w: failed to parse ffprobe output: %v", ErrUnreadableMedia, err)
	}

	meta := &VideoMetadata{
		FileSize: util.FileSize(filePath),
	}

	if dur, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		meta.Duration = dur
	}

	for _, stream := range probe.Streams {
		switch stream.CodecType {
		case "video":
			meta.Width = stream.Width
			meta.Height = stream.Height
			if stream.RFrameRate != "" {
				meta.FPS = util.ParseFrameRate(stream.RFrameRate)
			}
			if n, err := strconv.Atoi(stream.NbFrames); err == nil {
				meta.FrameCount = n
			}
		case "audio":
			meta.HasAudio = true
		}
	}

	// Some containers omit nb_frames; derive it from duration and fps.
	if meta.FrameCount == 0 && meta.FPS > 0 {
		meta.FrameCount = int(meta.Duration * meta.FPS)
	}

	if meta.FrameCount <= 0 || meta.Width <= 0 || meta.Height <= 0 {
		return nil, fmt.Errorf("%w: container reports no decodable video frames", ErrUnreadableMedia)
	}

	e.logger.Debug().
		Float64("duration", meta.Duration).
		Float64("fps", meta.FPS).
		Int("frames", meta.FrameCount).
		Int("width", meta.Width).
		Int("height", meta.Height).
		Bool("has_audio", meta.HasAudio).
		Msg("probed video")

	return meta, nil
}

// probeResult matches ffprobe JSON output structure
type probeResult struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType  string `json:"codec_type"`
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
		NbFrames   string `json:"nb_frames"`
	} `json:"streams"`
}
