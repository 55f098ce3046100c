package transcribe

import (
	"encoding/json"
	"testing"
)

func TestMapWhisperOutput(t *testing.T) {
	raw := `{
		"result": {"language": "en"},
		"transcription": [
			{"offsets": {"from": 0, "to": 2500}, "text": " Welcome everyone."},
			{"offsets": {"from": 2500, "to": 4000}, "text": "  "},
			{"offsets": {"from": 4000, "to": 6200}, "text": " Let's get started."}
		]
	}`

	var parsed whisperOutput
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		t.Fatal(err)
	}

	tr := mapWhisperOutput(&parsed)

	if tr.Language != "en" {
		t.Errorf("Language = %q, want en", tr.Language)
	}
	if tr.Text != "Welcome everyone. Let's get started." {
		t.Errorf("Text = %q", tr.Text)
	}
	if len(tr.Segments) != 2 {
		t.Fatalf("got %d segments, want 2 (blank one dropped)", len(tr.Segments))
	}
	if tr.Segments[0].StartTime != 0 || tr.Segments[0].EndTime != 2.5 {
		t.Errorf("first segment spans [%v,%v], want [0,2.5]", tr.Segments[0].StartTime, tr.Segments[0].EndTime)
	}
	if tr.Segments[1].StartTime != 4.0 || tr.Segments[1].EndTime != 6.2 {
		t.Errorf("second segment spans [%v,%v], want [4,6.2]", tr.Segments[1].StartTime, tr.Segments[1].EndTime)
	}
	if tr.Confidence != whisperDefaultConfidence {
		t.Errorf("Confidence = %v, want default %v", tr.Confidence, whisperDefaultConfidence)
	}
}
