package ocr

import (
	"context"
	"errors"
	"image"
	"os"
	"testing"

	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/keyframe"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// stubEngine is a scriptable OCR backend for chain tests.
type stubEngine struct {
	name      string
	available bool
	rec       *Recognition
	err       error
	calls     int
}

func (s *stubEngine) Name() string    { return s.name }
func (s *stubEngine) Available() bool { return s.available }

func (s *stubEngine) Recognize(_ context.Context, _ image.Image) (*Recognition, error) {
	s.calls++
	return s.rec, s.err
}

func testKeyframes(n int) []*keyframe.Keyframe {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	kfs := make([]*keyframe.Keyframe, n)
	for i := range kfs {
		kfs[i] = &keyframe.Keyframe{
			Timestamp:  float64(i) * 2,
			FrameIndex: i * 60,
			Image:      img,
			Gray:       img,
		}
	}
	return kfs
}

func TestChainFallsThroughOnError(t *testing.T) {
	broken := &stubEngine{name: "primary", available: true, err: errors.New("http 503")}
	working := &stubEngine{name: "fallback", available: true, rec: &Recognition{
		Text:       "Agenda",
		Confidence: 0.8,
	}}

	chain := NewChain(testLogger(), broken, working)
	results := chain.ExtractText(context.Background(), testKeyframes(1))

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Method != "fallback" {
		t.Errorf("Method = %q, want fallback", results[0].Method)
	}
	if results[0].ExtractedText != "Agenda" {
		t.Errorf("ExtractedText = %q, want Agenda", results[0].ExtractedText)
	}
	if broken.calls != 1 {
		t.Errorf("primary engine called %d times, want 1", broken.calls)
	}
}

func TestChainSkipsUnavailableEngines(t *testing.T) {
	offline := &stubEngine{name: "remote", available: false}
	local := &stubEngine{name: "local", available: true, rec: &Recognition{Text: "hi", Confidence: 0.5}}

	chain := NewChain(testLogger(), offline, local)
	results := chain.ExtractText(context.Background(), testKeyframes(1))

	if offline.calls != 0 {
		t.Error("unavailable engine was invoked")
	}
	if results[0].Method != "local" {
		t.Errorf("Method = %q, want local", results[0].Method)
	}
}

func TestChainEmptyTextFallsThrough(t *testing.T) {
	blank := &stubEngine{name: "blank", available: true, rec: &Recognition{Text: "   "}}
	working := &stubEngine{name: "working", available: true, rec: &Recognition{Text: "ok", Confidence: 0.9}}

	chain := NewChain(testLogger(), blank, working)
	results := chain.ExtractText(context.Background(), testKeyframes(1))

	if results[0].Method != "working" {
		t.Errorf("Method = %q, want working", results[0].Method)
	}
}

func TestChainOneResultPerKeyframe(t *testing.T) {
	none := &stubEngine{name: "none-avail", available: false}

	chain := NewChain(testLogger(), none)
	kfs := testKeyframes(4)
	results := chain.ExtractText(context.Background(), kfs)

	if len(results) != len(kfs) {
		t.Fatalf("got %d results for %d keyframes", len(results), len(kfs))
	}
	for i, r := range results {
		if r.FrameIndex != kfs[i].FrameIndex {
			t.Errorf("result %d frame index %d, want %d", i, r.FrameIndex, kfs[i].FrameIndex)
		}
		if r.ExtractedText != "" || r.Method != "none" || r.Confidence != 0 {
			t.Errorf("result %d not the empty record: %+v", i, r)
		}
		if r.Blocks == nil {
			t.Errorf("result %d has nil block slice", i)
		}
	}
}

func TestParseTesseractTSV(t *testing.T) {
	tsv := "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
		"5\t1\t1\t1\t1\t1\t10\t20\t40\t12\t91.5\tCourse\n" +
		"5\t1\t1\t1\t1\t2\t55\t20\t50\t12\t88.0\tOverview\n" +
		"5\t1\t1\t1\t2\t1\t10\t40\t30\t12\t12.0\tnoise\n" +
		"5\t1\t1\t1\t3\t1\t10\t60\t30\t12\t75.0\tSlides\n"

	rec := parseTesseractTSV(tsv)

	if rec.Text != "Course Overview\nSlides" {
		t.Errorf("Text = %q", rec.Text)
	}
	if len(rec.Blocks) != 2 {
		t.Fatalf("got %d blocks, want 2 (low-confidence word dropped)", len(rec.Blocks))
	}

	first := rec.Blocks[0]
	if first.X != 10 || first.Y != 20 || first.Width != 95 || first.Height != 12 {
		t.Errorf("first block geometry = %+v", first)
	}
	want := (91.5 + 88.0) / 2 / 100
	if diff := first.Confidence - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("first block confidence = %v, want %v", first.Confidence, want)
	}
}

func TestDetectLanguages(t *testing.T) {
	if got := DetectLanguages(""); got != nil {
		t.Errorf("empty text languages = %v, want nil", got)
	}
	if got := DetectLanguages("plain ascii text"); len(got) != 1 || got[0] != "en" {
		t.Errorf("ascii text languages = %v, want [en]", got)
	}

	got := DetectLanguages("el señor y el niño")
	if len(got) != 2 || got[0] != "en" || got[1] != "es" {
		t.Errorf("accented text languages = %v, want [en es]", got)
	}
}
