package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/veralux/lectern/pkg/util"
)

// FrameSource provides indexed, seekable access to decoded frames of one
// video file. It holds no decoder state between calls; callers control the
// sampling cadence and no frame is cached.
type FrameSource struct {
	exec *Executor
	path string
	meta VideoMetadata
}

// OpenFrameSource probes the container and returns a seekable frame source.
func (e *Executor) OpenFrameSource(ctx context.Context, filePath string) (*FrameSource, error) {
	meta, err := e.Probe(ctx, filePath)
	if err != nil {
		return nil, err
	}
	return &FrameSource{exec: e, path: filePath, meta: *meta}, nil
}

// Metadata returns the container metadata computed at open time.
func (s *FrameSource) Metadata() VideoMetadata {
	return s.meta
}

// SeekDecode decodes the frame at the given source index. An index outside
// the container returns (nil, nil). Decode failures on an in-range index
// also yield (nil, nil) so callers can skip damaged frames.
func (s *FrameSource) SeekDecode(ctx context.Context, frameIndex int) (image.Image, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if frameIndex < 0 || frameIndex >= s.meta.FrameCount {
		return nil, nil
	}

	ts := 0.0
	if s.meta.FPS > 0 {
		ts = float64(frameIndex) / s.meta.FPS
	}

	args := []string{
		"-ss", util.FormatSeconds(ts),
		"-i", s.path,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", fmt.Sprintf("%d", jpegQScale(s.exec.jpegQuality)),
		"pipe:1",
	}

	data, err := s.exec.run(ctx, args)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.exec.logger.Debug().Err(err).Int("frame", frameIndex).Msg("frame decode failed")
		return nil, nil
	}
	if len(data) == 0 {
		return nil, nil
	}

	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		s.exec.logger.Debug().Err(err).Int("frame", frameIndex).Msg("jpeg decode failed")
		return nil, nil
	}
	return img, nil
}

// jpegQScale maps a 0-100 JPEG quality to ffmpeg's 2-31 mjpeg qscale,
// where lower is better.
func jpegQScale(quality int) int {
	if quality >= 95 {
		return 2
	}
	if quality <= 5 {
		return 31
	}
	return 2 + (100-quality)*29/95
}
