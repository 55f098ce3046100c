package keyframe

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"runtime"
	"sync"

	"github.com/nfnt/resize"
	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/media"
)

// maxFrameDimension bounds the longer side of a processed frame.
const maxFrameDimension = 512

// FrameSource is the decoded-frame provider consumed by the selector.
// media.FrameSource satisfies it; tests supply synthetic frames.
type FrameSource interface {
	Metadata() media.VideoMetadata
	SeekDecode(ctx context.Context, frameIndex int) (image.Image, error)
}

// Keyframe is a retained representative frame. Downstream stages read it,
// never mutate it.
type Keyframe struct {
	Timestamp      float64 `json:"timestamp"`
	FrameIndex     int     `json:"frame_index"`
	JPEG           []byte  `json:"jpeg,omitempty"`
	SceneChange    bool    `json:"scene_change"`
	PerceptualDiff float64 `json:"perceptual_diff"`

	// Image is the downscaled raster, Gray its intensity view. Both are
	// carried for the in-process pipeline only, not serialized.
	Image image.Image `json:"-"`
	Gray  *image.Gray `json:"-"`
}

// Config tunes keyframe selection. The thresholds are empirically
// calibrated heuristics.
type Config struct {
	SceneChangeThreshold float64
	MinIntervalSeconds   float64
	MaxKeyframes         int
	JPEGQuality          int
	Workers              int
}

// DefaultConfig returns the calibrated selection defaults.
func DefaultConfig() Config {
	return Config{
		SceneChangeThreshold: 0.3,
		MinIntervalSeconds:   2.0,
		MaxKeyframes:         15,
		JPEGQuality:          85,
	}
}

// Selector picks representative frames using perceptual-difference scoring.
type Selector struct {
	logger zerolog.Logger
	cfg    Config
}

// NewSelector creates a keyframe selector.
func NewSelector(logger zerolog.Logger, cfg Config) *Selector {
	if cfg.MaxKeyframes <= 0 {
		cfg.MaxKeyframes = DefaultConfig().MaxKeyframes
	}
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultConfig().JPEGQuality
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Selector{
		logger: logger.With().Str("component", "keyframe-selector").Logger(),
		cfg:    cfg,
	}
}

// sampledFrame is one decoded sample, ready for the ordered scan.
type sampledFrame struct {
	frameIndex int
	timestamp  float64
	img        image.Image
	gray       *image.Gray
	hist       histogram
}

// Select samples the video twice per second, scores perceptual difference
// between consecutive samples and retains at most MaxKeyframes frames.
// Selection is fully deterministic for identical input bytes: decoding runs
// on a worker pool, but the scene-change scan stays in sample order since
// each diff depends only on its immediate predecessor.
func (s *Selector) Select(ctx context.Context, src FrameSource) ([]*Keyframe, error) {
	meta := src.Metadata()

	sampleInterval := 1
	if meta.FPS > 0 {
		if n := int(meta.FPS * 0.5); n > 1 {
			sampleInterval = n
		}
	}

	indices := make([]int, 0, meta.FrameCount/sampleInterval+1)
	for idx := 0; idx < meta.FrameCount; idx += sampleInterval {
		indices = append(indices, idx)
	}

	s.logger.Debug().
		Int("samples", len(indices)).
		Int("interval", sampleInterval).
		Msg("sampling frames")

	var (
		keyframes        []*Keyframe
		prevHist         *histogram
		lastKeyframeTime = -s.cfg.MinIntervalSeconds
	)

	// Decode in batches so a long video can stop early once enough
	// keyframes are retained.
	batchSize := s.cfg.Workers * 4
scan:
	for start := 0; start < len(indices); start += batchSize {
		end := start + batchSize
		if end > len(indices) {
			end = len(indices)
		}

		batch, err := s.decodeBatch(ctx, src, meta.FPS, indices[start:end])
		if err != nil {
			return nil, err
		}

		for _, sample := range batch {
			if sample.img == nil {
				continue
			}

			diff := 0.0
			sceneChange := false
			if prevHist != nil {
				diff = perceptualDiff(*prevHist, sample.hist)
				sceneChange = diff > s.cfg.SceneChangeThreshold
			}

			shouldAdd := prevHist == nil ||
				sceneChange ||
				(sample.timestamp-lastKeyframeTime >= s.cfg.MinIntervalSeconds &&
					len(keyframes) < s.cfg.MaxKeyframes)

			// The elapsed-interval gate applies even to flagged scene
			// changes; a flag alone never bypasses the minimum spacing.
			if shouldAdd && sample.timestamp-lastKeyframeTime >= s.cfg.MinIntervalSeconds {
				kf, err := s.retain(sample, sceneChange, diff)
				if err != nil {
					return nil, err
				}
				keyframes = append(keyframes, kf)
				lastKeyframeTime = sample.timestamp
			}

			h := sample.hist
			prevHist = &h

			if len(keyframes) >= s.cfg.MaxKeyframes {
				break scan
			}
		}
	}

	// A very short or static video may select nothing; force-retain the
	// first decodable frame so the output is never empty.
	if len(keyframes) == 0 && meta.FrameCount > 0 {
		if kf := s.forceFirstFrame(ctx, src); kf != nil {
			keyframes = append(keyframes, kf)
		}
	}

	s.logger.Info().Int("keyframes", len(keyframes)).Msg("keyframe selection complete")
	return keyframes, nil
}

// decodeBatch decodes and preprocesses a run of sampled frames on the
// worker pool, preserving sample order in the returned slice.
func (s *Selector) decodeBatch(ctx context.Context, src FrameSource, fps float64, indices []int) ([]sampledFrame, error) {
	out := make([]sampledFrame, len(indices))
	sem := make(chan struct{}, s.cfg.Workers)

	var wg sync.WaitGroup
	for i, frameIndex := range indices {
		wg.Add(1)
		go func(slot, idx int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			ts := 0.0
			if fps > 0 {
				ts = float64(idx) / fps
			}
			out[slot] = sampledFrame{frameIndex: idx, timestamp: ts}

			img, err := src.SeekDecode(ctx, idx)
			if err != nil || img == nil {
				return
			}

			scaled := downscale(img)
			gray := toGray(scaled)
			out[slot].img = scaled
			out[slot].gray = gray
			out[slot].hist = intensityHistogram(gray)
		}(i, frameIndex)
	}
	wg.Wait()

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return out, nil
}

func (s *Selector) retain(sample sampledFrame, sceneChange bool, diff float64) (*Keyframe, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, sample.img, &jpeg.Options{Quality: s.cfg.JPEGQuality}); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Float64("timestamp", sample.timestamp).
		Int("frame", sample.frameIndex).
		Bool("scene_change", sceneChange).
		Float64("diff", diff).
		Msg("retained keyframe")

	return &Keyframe{
		Timestamp:      sample.timestamp,
		FrameIndex:     sample.frameIndex,
		JPEG:           buf.Bytes(),
		SceneChange:    sceneChange,
		PerceptualDiff: diff,
		Image:          sample.img,
		Gray:           sample.gray,
	}, nil
}

func (s *Selector) forceFirstFrame(ctx context.Context, src FrameSource) *Keyframe {
	img, err := src.SeekDecode(ctx, 0)
	if err != nil || img == nil {
		return nil
	}

	scaled := downscale(img)
	sample := sampledFrame{
		frameIndex: 0,
		timestamp:  0.0,
		img:        scaled,
		gray:       toGray(scaled),
	}
	kf, err := s.retain(sample, false, 0.0)
	if err != nil {
		return nil
	}
	return kf
}

// downscale shrinks a frame so its longer dimension is at most 512px,
// preserving aspect ratio. Frames already small enough pass through.
func downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	if bounds.Dx() <= maxFrameDimension && bounds.Dy() <= maxFrameDimension {
		return img
	}
	return resize.Thumbnail(maxFrameDimension, maxFrameDimension, img, resize.Bilinear)
}
