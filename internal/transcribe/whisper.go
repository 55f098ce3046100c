package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// whisper.cpp JSON output does not carry per-segment probabilities, so
// local transcripts get a fixed mid-high confidence rather than a fake
// engine-derived one.
const whisperDefaultConfidence = 0.75

// WhisperEngine shells out to a local whisper.cpp binary. It has no size
// or duration limits and serves as the last resort of the chain.
type WhisperEngine struct {
	logger    zerolog.Logger
	binary    string
	modelPath string
	tempDir   string
}

// NewWhisperEngine creates the local engine. binary is the whisper-cli
// executable name or path; modelPath names the ggml model file.
func NewWhisperEngine(logger zerolog.Logger, binary, modelPath, tempDir string) *WhisperEngine {
	if binary == "" {
		binary = "whisper-cli"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &WhisperEngine{
		logger:    logger.With().Str("engine", "whisper").Logger(),
		binary:    binary,
		modelPath: modelPath,
		tempDir:   tempDir,
	}
}

func (w *WhisperEngine) Name() string { return "local_whisper" }

func (w *WhisperEngine) Available() bool {
	_, err := exec.LookPath(w.binary)
	return err == nil
}

func (w *WhisperEngine) Eligible(audioPath string, duration float64) bool { return true }

// whisperOutput mirrors the whisper.cpp --output-json schema. Offsets are
// milliseconds from the start of the audio.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

func (w *WhisperEngine) Transcribe(ctx context.Context, audioPath string, duration float64) (*Transcript, error) {
	if !w.Available() {
		return nil, ErrEngineUnavailable
	}

	outBase := filepath.Join(w.tempDir, "whisper-"+uuid.NewString())
	outJSON := outBase + ".json"
	defer os.Remove(outJSON)

	args := []string{
		"-m", w.modelPath,
		"-f", audioPath,
		"--output-json",
		"--output-file", outBase,
		"--no-prints",
	}
	cmd := exec.CommandContext(ctx, w.binary, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("whisper run: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	raw, err := os.ReadFile(outJSON)
	if err != nil {
		return nil, fmt.Errorf("whisper output: %w", err)
	}
	var parsed whisperOutput
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("whisper output: %w", err)
	}
	return mapWhisperOutput(&parsed), nil
}

// mapWhisperOutput converts whisper.cpp offsets (milliseconds) to the
// second-based transcript contract.
func mapWhisperOutput(parsed *whisperOutput) *Transcript {
	tr := &Transcript{
		Language:   parsed.Result.Language,
		Confidence: whisperDefaultConfidence,
		Segments:   make([]Segment, 0, len(parsed.Transcription)),
	}
	var parts []string
	for _, seg := range parsed.Transcription {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
		tr.Segments = append(tr.Segments, Segment{
			StartTime:  float64(seg.Offsets.From) / 1000.0,
			EndTime:    float64(seg.Offsets.To) / 1000.0,
			Text:       text,
			Confidence: whisperDefaultConfidence,
		})
	}
	tr.Text = strings.Join(parts, " ")
	return tr
}
