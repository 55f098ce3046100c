package keyframe

import (
	"context"
	"image"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/media"
)

// fakeSource serves synthetic frames without touching ffmpeg.
type fakeSource struct {
	meta  media.VideoMetadata
	frame func(idx int) image.Image
}

func (f *fakeSource) Metadata() media.VideoMetadata { return f.meta }

func (f *fakeSource) SeekDecode(_ context.Context, idx int) (image.Image, error) {
	if idx < 0 || idx >= f.meta.FrameCount {
		return nil, nil
	}
	return f.frame(idx), nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

func TestSelectStaticVideoSpacing(t *testing.T) {
	src := &fakeSource{
		meta: media.VideoMetadata{Duration: 10, FPS: 2, FrameCount: 20, Width: 64, Height: 48},
		frame: func(idx int) image.Image {
			return flatGray(64, 48, 128)
		},
	}
	sel := NewSelector(testLogger(), Config{
		SceneChangeThreshold: 0.3,
		MinIntervalSeconds:   2.0,
		MaxKeyframes:         15,
		Workers:              2,
	})

	kfs, err := sel.Select(context.Background(), src)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(kfs) == 0 {
		t.Fatal("no keyframes from a decodable video")
	}
	if kfs[0].Timestamp != 0 {
		t.Errorf("first keyframe at %v, want 0", kfs[0].Timestamp)
	}
	for i := 1; i < len(kfs); i++ {
		if gap := kfs[i].Timestamp - kfs[i-1].Timestamp; gap < 2.0 {
			t.Errorf("keyframes %d,%d only %vs apart", i-1, i, gap)
		}
		if kfs[i].SceneChange {
			t.Errorf("static video flagged scene change at %v", kfs[i].Timestamp)
		}
	}
}

func TestSelectAlternatingScenes(t *testing.T) {
	src := &fakeSource{
		meta: media.VideoMetadata{Duration: 60, FPS: 2, FrameCount: 120, Width: 64, Height: 48},
		frame: func(idx int) image.Image {
			if idx%2 == 0 {
				return flatGray(64, 48, 32)
			}
			return flatGray(64, 48, 224)
		},
	}
	sel := NewSelector(testLogger(), Config{
		SceneChangeThreshold: 0.3,
		MinIntervalSeconds:   2.0,
		MaxKeyframes:         5,
		Workers:              2,
	})

	kfs, err := sel.Select(context.Background(), src)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(kfs) != 5 {
		t.Fatalf("got %d keyframes, want MaxKeyframes=5", len(kfs))
	}
	// the first retained frame has no predecessor so it cannot be a
	// scene change; every later retained frame follows a hard cut
	if kfs[0].SceneChange {
		t.Error("first keyframe flagged as scene change")
	}
	for i := 1; i < len(kfs); i++ {
		if !kfs[i].SceneChange {
			t.Errorf("keyframe %d at %v not flagged despite hard cut", i, kfs[i].Timestamp)
		}
		if gap := kfs[i].Timestamp - kfs[i-1].Timestamp; gap < 2.0 {
			t.Errorf("scene change at %v bypassed the minimum interval", kfs[i].Timestamp)
		}
	}
}

func TestSelectUndecodableVideo(t *testing.T) {
	src := &fakeSource{
		meta:  media.VideoMetadata{Duration: 10, FPS: 2, FrameCount: 20, Width: 64, Height: 48},
		frame: func(idx int) image.Image { return nil },
	}
	sel := NewSelector(testLogger(), Config{
		SceneChangeThreshold: 0.3,
		MinIntervalSeconds:   2.0,
		MaxKeyframes:         15,
		Workers:              2,
	})

	kfs, err := sel.Select(context.Background(), src)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(kfs) != 0 {
		t.Errorf("got %d keyframes from undecodable frames", len(kfs))
	}
}

func TestSelectRetainsJPEGAndGray(t *testing.T) {
	src := &fakeSource{
		meta: media.VideoMetadata{Duration: 5, FPS: 2, FrameCount: 10, Width: 64, Height: 48},
		frame: func(idx int) image.Image {
			return flatGray(64, 48, 200)
		},
	}
	sel := NewSelector(testLogger(), Config{
		SceneChangeThreshold: 0.3,
		MinIntervalSeconds:   2.0,
		MaxKeyframes:         15,
		Workers:              1,
	})

	kfs, err := sel.Select(context.Background(), src)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	for _, kf := range kfs {
		if len(kf.JPEG) == 0 {
			t.Errorf("keyframe at %v has no JPEG bytes", kf.Timestamp)
		}
		if kf.Gray == nil {
			t.Errorf("keyframe at %v has no gray raster", kf.Timestamp)
		}
	}
}

func TestDownscaleCapsDimension(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 1920, 1080))
	small := downscale(big)
	b := small.Bounds()
	if b.Dx() > maxFrameDimension || b.Dy() > maxFrameDimension {
		t.Errorf("downscaled to %dx%d, want <= %d on both axes", b.Dx(), b.Dy(), maxFrameDimension)
	}

	tiny := image.NewRGBA(image.Rect(0, 0, 320, 240))
	if got := downscale(tiny); got != tiny {
		t.Error("small frame should pass through unchanged")
	}
}
