package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"github.com/rs/zerolog"
)

// Executor handles all ffmpeg and ffprobe invocations
type Executor struct {
	logger      zerolog.Logger
	ffmpegPath  string
	ffprobePath string
	threads     int
	jpegQuality int
}

// ExecutorOptions configures binary lookup and decode behavior
type ExecutorOptions struct {
	FFmpegPath  string
	FFprobePath string
	Threads     int
	JPEGQuality int
}

// NewExecutor creates an executor, resolving the ffmpeg and ffprobe binaries
func NewExecutor(logger zerolog.Logger, opts ExecutorOptions) (*Executor, error) {
	ffmpegName := opts.FFmpegPath
	if ffmpegName == "" {
		ffmpegName = "ffmpeg"
	}
	ffprobeName := opts.FFprobePath
	if ffprobeName == "" {
		ffprobeName = "ffprobe"
	}

	ffmpegPath, err := exec.LookPath(ffmpegName)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	ffprobePath, err := exec.LookPath(ffprobeName)
	if err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = 85
	}

	return &Executor{
		logger:      logger.With().Str("component", "media").Logger(),
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		threads:     opts.Threads,
		jpegQuality: quality,
	}, nil
}

// run executes ffmpeg with the given arguments, capturing stdout.
// Stderr is collected for error reporting only.
func (e *Executor) run(ctx context.Context, args []string) ([]byte, error) {
	baseArgs := []string{"-y", "-hide_banner", "-loglevel", "error"}
	if e.threads > 0 {
		baseArgs = append(baseArgs, "-threads", fmt.Sprintf("%d", e.threads))
	}
	args = append(baseArgs, args...)

	e.logger.Debug().
		Str("cmd", "ffmpeg").
		Strs("args", args).
		Msg("executing ffmpeg")

	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg execution failed: %w: %s", err, stderr.String())
	}

	return stdout.Bytes(), nil
}
