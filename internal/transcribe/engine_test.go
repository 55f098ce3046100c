package transcribe

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stderr).Level(zerolog.Disabled)
}

// stubEngine is a scriptable speech backend for chain tests.
type stubEngine struct {
	name      string
	available bool
	eligible  bool
	tr        *Transcript
	err       error
	calls     int
}

func (s *stubEngine) Name() string    { return s.name }
func (s *stubEngine) Available() bool { return s.available }

func (s *stubEngine) Eligible(_ string, _ float64) bool { return s.eligible }

func (s *stubEngine) Transcribe(_ context.Context, _ string, _ float64) (*Transcript, error) {
	s.calls++
	return s.tr, s.err
}

func TestChainSkipsIneligibleEngine(t *testing.T) {
	tooBig := &stubEngine{name: "remote", available: true, eligible: false}
	local := &stubEngine{name: "local", available: true, eligible: true, tr: &Transcript{
		Text: "hello world",
		Segments: []Segment{
			{StartTime: 0, EndTime: 2, Text: "hello world", Confidence: 0.9},
		},
	}}

	chain := NewChain(testLogger(), tooBig, local)
	tr, err := chain.Transcribe(context.Background(), "audio.wav", 120)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tooBig.calls != 0 {
		t.Error("ineligible engine was invoked")
	}
	if tr.Method != "local" {
		t.Errorf("Method = %q, want local", tr.Method)
	}
}

func TestChainFallsThroughOnError(t *testing.T) {
	broken := &stubEngine{name: "remote", available: true, eligible: true, err: errors.New("http 500")}
	local := &stubEngine{name: "local", available: true, eligible: true, tr: &Transcript{
		Text: "fallback text",
		Segments: []Segment{
			{StartTime: 0, EndTime: 3, Text: "fallback text", Confidence: 0.7},
		},
	}}

	chain := NewChain(testLogger(), broken, local)
	tr, err := chain.Transcribe(context.Background(), "audio.wav", 60)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if tr.Method != "local" {
		t.Errorf("Method = %q, want local", tr.Method)
	}
}

func TestChainAllEnginesFail(t *testing.T) {
	down := &stubEngine{name: "remote", available: false}
	silent := &stubEngine{name: "local", available: true, eligible: true, tr: &Transcript{Text: "  "}}

	chain := NewChain(testLogger(), down, silent)
	if _, err := chain.Transcribe(context.Background(), "audio.wav", 60); !errors.Is(err, ErrEngineUnavailable) {
		t.Errorf("err = %v, want ErrEngineUnavailable", err)
	}
}

func TestChainSynthesizesSegmentWithoutTiming(t *testing.T) {
	noTiming := &stubEngine{name: "remote", available: true, eligible: true, tr: &Transcript{
		Text:       "one long utterance",
		Confidence: 0.85,
	}}

	chain := NewChain(testLogger(), noTiming)
	tr, err := chain.Transcribe(context.Background(), "audio.wav", 42.5)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(tr.Segments) != 1 {
		t.Fatalf("got %d segments, want 1 synthesized", len(tr.Segments))
	}
	seg := tr.Segments[0]
	if seg.StartTime != 0 || seg.EndTime != 42.5 {
		t.Errorf("synthesized segment spans [%v,%v], want [0,42.5]", seg.StartTime, seg.EndTime)
	}
	if seg.Text != "one long utterance" {
		t.Errorf("segment text = %q", seg.Text)
	}
}

func TestChainNormalizesSegments(t *testing.T) {
	messy := &stubEngine{name: "remote", available: true, eligible: true, tr: &Transcript{
		Text: "b a",
		Segments: []Segment{
			{StartTime: 5, EndTime: 7, Text: " b ", Confidence: 1.4},
			{StartTime: 0, EndTime: 2, Text: "a", Confidence: -0.1},
		},
	}}

	chain := NewChain(testLogger(), messy)
	tr, err := chain.Transcribe(context.Background(), "audio.wav", 10)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if tr.Segments[0].StartTime != 0 || tr.Segments[1].StartTime != 5 {
		t.Errorf("segments not ordered by start time: %+v", tr.Segments)
	}
	if tr.Segments[0].Confidence != 0 || tr.Segments[1].Confidence != 1 {
		t.Errorf("confidences not clamped to [0,1]: %+v", tr.Segments)
	}
	if tr.Segments[1].Text != "b" {
		t.Errorf("segment text not trimmed: %q", tr.Segments[1].Text)
	}
	if tr.Confidence != 0.5 {
		t.Errorf("mean confidence = %v, want 0.5", tr.Confidence)
	}
}

func TestRemoteEngineEligibility(t *testing.T) {
	wav, err := os.CreateTemp(t.TempDir(), "clip-*.wav")
	if err != nil {
		t.Fatal(err)
	}
	if err := wav.Truncate(30 * 1024 * 1024); err != nil {
		t.Fatal(err)
	}
	wav.Close()

	eng := NewRemoteEngine(testLogger(), RemoteOptions{
		Endpoint:   "https://speech.example.com/v1/transcribe",
		MaxSizeMB:  25,
		MaxSeconds: 600,
	})

	if eng.Eligible(wav.Name(), 120) {
		t.Error("30MB file accepted over the 25MB limit")
	}
	if eng.Eligible("does-not-exist.wav", 120) {
		t.Error("missing file reported eligible")
	}

	small, err := os.CreateTemp(t.TempDir(), "clip-*.wav")
	if err != nil {
		t.Fatal(err)
	}
	small.Close()
	if !eng.Eligible(small.Name(), 120) {
		t.Error("small short file rejected")
	}
	if eng.Eligible(small.Name(), 700) {
		t.Error("11.6 minute audio accepted over the 600s limit")
	}
}
