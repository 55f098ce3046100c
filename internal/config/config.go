package config

import (
	"context"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	TempDir     string `yaml:"temp_dir"`
	Concurrency int    `yaml:"concurrency"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Keyframe selection settings
	Keyframes KeyframeConfig `yaml:"keyframes"`

	// Slide classification thresholds
	Slides SlideConfig `yaml:"slides"`

	// OCR engine settings
	OCR OCRConfig `yaml:"ocr"`

	// Transcription engine settings
	Transcribe TranscribeConfig `yaml:"transcribe"`

	// Audio branch settings
	Audio AudioConfig `yaml:"audio"`

	// Timeline correlation settings
	Timeline TimelineConfig `yaml:"timeline"`
}

type FFmpegConfig struct {
	BinaryPath  string `yaml:"binary_path"`
	ProbePath   string `yaml:"probe_path"`
	Threads     int    `yaml:"threads"`
	JPEGQuality int    `yaml:"jpeg_quality"`
}

// KeyframeConfig tunes scene-change keyframe selection. The thresholds are
// empirically calibrated heuristics, not guarantees.
type KeyframeConfig struct {
	SceneChangeThreshold float64 `yaml:"scene_change_threshold"`
	MinIntervalSeconds   float64 `yaml:"min_interval_seconds"`
	MaxKeyframes         int     `yaml:"max_keyframes"`
}

// SlideConfig tunes the slide/no-slide judgment.
type SlideConfig struct {
	MinUniformity  float64 `yaml:"min_uniformity"`
	MinEdgeDensity float64 `yaml:"min_edge_density"`
	MinTextDensity float64 `yaml:"min_text_density"`
}

type OCRConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	TesseractPath string `yaml:"tesseract_path"`
}

type TranscribeConfig struct {
	Endpoint         string `yaml:"endpoint"`
	APIKey           string `yaml:"api_key"`
	Model            string `yaml:"model"`
	WhisperPath      string `yaml:"whisper_path"`
	WhisperModel     string `yaml:"whisper_model"`
	MaxRemoteSizeMB  int64  `yaml:"max_remote_size_mb"`
	MaxRemoteSeconds int    `yaml:"max_remote_seconds"`
}

type AudioConfig struct {
	BudgetSeconds     int     `yaml:"budget_seconds"`
	SpeakerGapSeconds float64 `yaml:"speaker_gap_seconds"`
}

type TimelineConfig struct {
	CorrelationWindowSeconds float64 `yaml:"correlation_window_seconds"`
}

// Load reads configuration from file or returns defaults. Service
// credentials can also come from the environment, which wins over the
// file so keys stay out of checked-in configs.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overrides service endpoints and credentials from environment
// variables.
func (c *Config) applyEnv() {
	overrides := map[string]*string{
		"LECTERN_OCR_ENDPOINT":    &c.OCR.Endpoint,
		"LECTERN_OCR_API_KEY":     &c.OCR.APIKey,
		"LECTERN_SPEECH_ENDPOINT": &c.Transcribe.Endpoint,
		"LECTERN_SPEECH_API_KEY":  &c.Transcribe.APIKey,
	}
	for name, field := range overrides {
		if v := os.Getenv(name); v != "" {
			*field = v
		}
	}
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func defaultConfig() *Config {
	return &Config{
		TempDir:     os.TempDir(),
		Concurrency: 0, // 0 = GOMAXPROCS
		FFmpeg: FFmpegConfig{
			BinaryPath:  "ffmpeg",
			ProbePath:   "ffprobe",
			Threads:     0,
			JPEGQuality: 85,
		},
		Keyframes: KeyframeConfig{
			SceneChangeThreshold: 0.3,
			MinIntervalSeconds:   2.0,
			MaxKeyframes:         15,
		},
		Slides: SlideConfig{
			MinUniformity:  0.7,
			MinEdgeDensity: 0.02,
			MinTextDensity: 0.1,
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
		},
		Transcribe: TranscribeConfig{
			Model:            "speech-ctx-1",
			WhisperPath:      "whisper-cli",
			WhisperModel:     "base",
			MaxRemoteSizeMB:  25,
			MaxRemoteSeconds: 600,
		},
		Audio: AudioConfig{
			BudgetSeconds:     200,
			SpeakerGapSeconds: 2.0,
		},
		Timeline: TimelineConfig{
			CorrelationWindowSeconds: 5.0,
		},
	}
}

// Default returns the built-in defaults without touching the filesystem.
func Default() *Config {
	return defaultConfig()
}

func findConfigFile() string {
	candidates := []string{
		"./lectern.yaml",
		"./lectern.yml",
		filepath.Join(os.Getenv("HOME"), ".lectern", "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return defaultConfig()
}
