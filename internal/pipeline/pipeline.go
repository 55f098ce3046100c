// Package pipeline orchestrates the full video analysis: a visual branch
// (keyframes, slide features, OCR) and an audio branch (extraction,
// transcription, speaker turns) run concurrently and join at the
// timeline correlator. The audio branch is best-effort under a hard time
// budget; only an unreadable video fails the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/veralux/lectern/internal/config"
	"github.com/veralux/lectern/internal/keyframe"
	"github.com/veralux/lectern/internal/media"
	"github.com/veralux/lectern/internal/ocr"
	"github.com/veralux/lectern/internal/slides"
	"github.com/veralux/lectern/internal/speakers"
	"github.com/veralux/lectern/internal/timeline"
	"github.com/veralux/lectern/internal/transcribe"
	"github.com/veralux/lectern/pkg/util"
)

// MediaSource abstracts the ffmpeg layer so tests can drive the pipeline
// with synthetic media.
type MediaSource interface {
	Probe(ctx context.Context, path string) (*media.VideoMetadata, error)
	OpenFrameSource(ctx context.Context, path string) (keyframe.FrameSource, error)
	ExtractAudio(ctx context.Context, input, outPath string, format media.AudioFormat) error
}

// ffmpegSource adapts media.Executor to MediaSource.
type ffmpegSource struct {
	exec *media.Executor
}

func (f *ffmpegSource) Probe(ctx context.Context, path string) (*media.VideoMetadata, error) {
	return f.exec.Probe(ctx, path)
}

func (f *ffmpegSource) OpenFrameSource(ctx context.Context, path string) (keyframe.FrameSource, error) {
	return f.exec.OpenFrameSource(ctx, path)
}

func (f *ffmpegSource) ExtractAudio(ctx context.Context, input, outPath string, format media.AudioFormat) error {
	return f.exec.ExtractAudio(ctx, input, outPath, format)
}

// NewFFmpegSource wraps a media executor as a pipeline source.
func NewFFmpegSource(exec *media.Executor) MediaSource {
	return &ffmpegSource{exec: exec}
}

// Pipeline wires the analysis stages together.
type Pipeline struct {
	logger     zerolog.Logger
	cfg        *config.Config
	source     MediaSource
	skipAudio  bool
	selector   *keyframe.Selector
	classifier *slides.Classifier
	ocrChain   *ocr.Chain
	speech     *transcribe.Chain
	segmenter  *speakers.Segmenter
	correlator *timeline.Correlator
}

// Options carries the pipeline's collaborators. Source is required; nil
// stage components are built from cfg.
type Options struct {
	Source     MediaSource
	Selector   *keyframe.Selector
	Classifier *slides.Classifier
	OCRChain   *ocr.Chain
	Speech     *transcribe.Chain
	Segmenter  *speakers.Segmenter
	Correlator *timeline.Correlator

	// SkipAudio disables the audio branch entirely.
	SkipAudio bool
}

// New assembles a pipeline from configuration, filling in any stage not
// supplied in opts.
func New(logger zerolog.Logger, cfg *config.Config, opts Options) *Pipeline {
	if cfg == nil {
		cfg = config.Default()
	}
	p := &Pipeline{
		logger:     logger.With().Str("component", "pipeline").Logger(),
		cfg:        cfg,
		source:     opts.Source,
		skipAudio:  opts.SkipAudio,
		selector:   opts.Selector,
		classifier: opts.Classifier,
		ocrChain:   opts.OCRChain,
		speech:     opts.Speech,
		segmenter:  opts.Segmenter,
		correlator: opts.Correlator,
	}
	if p.selector == nil {
		p.selector = keyframe.NewSelector(logger, keyframe.Config{
			SceneChangeThreshold: cfg.Keyframes.SceneChangeThreshold,
			MinIntervalSeconds:   cfg.Keyframes.MinIntervalSeconds,
			MaxKeyframes:         cfg.Keyframes.MaxKeyframes,
			JPEGQuality:          cfg.FFmpeg.JPEGQuality,
			Workers:              cfg.Concurrency,
		})
	}
	if p.classifier == nil {
		p.classifier = slides.NewClassifier(logger, slides.Config{
			MinUniformity:  cfg.Slides.MinUniformity,
			MinEdgeDensity: cfg.Slides.MinEdgeDensity,
			MinTextDensity: cfg.Slides.MinTextDensity,
		})
	}
	if p.ocrChain == nil {
		p.ocrChain = ocr.NewChain(logger,
			ocr.NewRemoteEngine(logger, cfg.OCR.Endpoint, cfg.OCR.APIKey),
			ocr.NewTesseractEngine(logger, cfg.OCR.TesseractPath, cfg.TempDir),
		)
	}
	if p.speech == nil {
		p.speech = transcribe.NewChain(logger,
			transcribe.NewRemoteEngine(logger, transcribe.RemoteOptions{
				Endpoint:   cfg.Transcribe.Endpoint,
				APIKey:     cfg.Transcribe.APIKey,
				Model:      cfg.Transcribe.Model,
				MaxSizeMB:  cfg.Transcribe.MaxRemoteSizeMB,
				MaxSeconds: cfg.Transcribe.MaxRemoteSeconds,
			}),
			transcribe.NewWhisperEngine(logger, cfg.Transcribe.WhisperPath, cfg.Transcribe.WhisperModel, cfg.TempDir),
		)
	}
	if p.segmenter == nil {
		p.segmenter = speakers.NewSegmenter(logger, cfg.Audio.SpeakerGapSeconds)
	}
	if p.correlator == nil {
		p.correlator = timeline.NewCorrelator(logger, cfg.Timeline.CorrelationWindowSeconds)
	}
	return p
}

type visualOutcome struct {
	keyframes  []*keyframe.Keyframe
	features   []slides.Features
	summary    slides.Summary
	ocrResults []ocr.FrameResult
	err        error
}

// Analyze runs the full pipeline over one video file. The only fatal
// failure is an unreadable or metadata-less input; every other stage
// degrades and the degradation is recorded in the result.
func (p *Pipeline) Analyze(ctx context.Context, videoPath string) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With().Str("run_id", runID).Logger()
	logger.Info().Str("video", videoPath).Msg("starting analysis")

	meta, err := p.source.Probe(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", videoPath, err)
	}

	var (
		wg     sync.WaitGroup
		visual visualOutcome
		audio  AudioAnalysis
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		visual = p.analyzeVisual(ctx, videoPath)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		audio = p.analyzeAudio(ctx, videoPath, meta)
	}()

	wg.Wait()

	if visual.err != nil {
		return nil, visual.err
	}
	if len(visual.keyframes) == 0 {
		return nil, fmt.Errorf("%w: no decodable frames in %s", media.ErrUnreadableMedia, videoPath)
	}

	var speech []speakers.Segment
	if audio.Transcript != nil {
		speech = audio.SpeakerSegments
	}
	events := timeline.Build(visual.keyframes, visual.ocrResults, speech)
	tl := p.correlator.Correlate(events, meta.Duration)

	logger.Info().
		Dur("elapsed", time.Since(start)).
		Int("keyframes", len(visual.keyframes)).
		Bool("audio", audio.AudioExtracted).
		Msg("analysis complete")

	return &Result{
		ID:           runID,
		VideoPath:    videoPath,
		Metadata:     *meta,
		Keyframes:    visual.keyframes,
		SlideFrames:  visual.features,
		SlideSummary: visual.summary,
		OCRResults:   visual.ocrResults,
		Audio:        audio,
		Timeline:     tl,
	}, nil
}

func (p *Pipeline) analyzeVisual(ctx context.Context, videoPath string) visualOutcome {
	src, err := p.source.OpenFrameSource(ctx, videoPath)
	if err != nil {
		return visualOutcome{err: err}
	}

	keyframes, err := p.selector.Select(ctx, src)
	if err != nil {
		return visualOutcome{err: err}
	}

	features, summary := p.classifier.Classify(keyframes)
	ocrResults := p.ocrChain.ExtractText(ctx, keyframes)

	return visualOutcome{
		keyframes:  keyframes,
		features:   features,
		summary:    summary,
		ocrResults: ocrResults,
	}
}

// analyzeAudio extracts, transcribes and segments the audio track under
// the configured time budget. Every failure path returns the empty
// analysis with a reason; nothing here can fail the run.
func (p *Pipeline) analyzeAudio(ctx context.Context, videoPath string, meta *media.VideoMetadata) AudioAnalysis {
	if p.skipAudio {
		return emptyAudioAnalysis("audio_disabled")
	}
	if !meta.HasAudio {
		return emptyAudioAnalysis("no_audio_track")
	}

	budget := time.Duration(p.cfg.Audio.BudgetSeconds) * time.Second
	if budget <= 0 {
		budget = 200 * time.Second
	}
	actx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	if err := util.EnsureDir(p.cfg.TempDir); err != nil {
		p.logger.Warn().Err(err).Msg("audio temp dir failed")
		return emptyAudioAnalysis("temp_file_failed")
	}
	wav, err := util.TempFile(p.cfg.TempDir, "lectern-audio-", ".wav")
	if err != nil {
		p.logger.Warn().Err(err).Msg("audio temp file failed")
		return emptyAudioAnalysis("temp_file_failed")
	}
	wav.Close()
	wavPath := wav.Name()
	defer os.Remove(wavPath)

	if err := p.source.ExtractAudio(actx, videoPath, wavPath, media.DefaultTranscriptionFormat()); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn().Msg("audio budget exhausted during extraction")
			return emptyAudioAnalysis("audio_budget_exceeded")
		}
		p.logger.Warn().Err(err).Msg("audio extraction failed")
		return emptyAudioAnalysis("extraction_failed")
	}

	transcript, err := p.speech.Transcribe(actx, wavPath, meta.Duration)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn().Msg("audio budget exhausted during transcription")
			return emptyAudioAnalysis("audio_budget_exceeded")
		}
		p.logger.Warn().Err(err).Msg("transcription failed")
		return emptyAudioAnalysis("transcription_failed")
	}

	segments := p.segmenter.Segment(transcript.Segments)
	return AudioAnalysis{
		AudioExtracted:  true,
		Method:          transcript.Method,
		Transcript:      transcript,
		SpeakerSegments: segments,
		SpeakerProfiles: speakers.Profiles(segments),
	}
}
