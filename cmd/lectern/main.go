package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veralux/lectern/internal/config"
	"github.com/veralux/lectern/internal/logging"
	"github.com/veralux/lectern/internal/media"
	"github.com/veralux/lectern/internal/pipeline"
	"github.com/veralux/lectern/pkg/util"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	ctx := context.Background()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "lectern",
	Short: "lectern - educational video content analyzer",
	Long:  "Analyzes lecture and presentation videos: keyframes, slide detection, on-screen text, transcription, speakers, and a correlated timeline.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Init(verbose)

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		ctx := config.WithConfig(cmd.Context(), cfg)
		cmd.SetContext(ctx)

		return nil
	},
}

var (
	outPath        string
	maxKeyframes   int
	sceneThreshold float64
	minInterval    float64
	noAudio        bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./lectern.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(probeCmd)
	rootCmd.AddCommand(configCmd)

	analyzeCmd.Flags().StringVarP(&outPath, "out", "o", "", "write analysis JSON to file (default: stdout)")
	analyzeCmd.Flags().IntVar(&maxKeyframes, "max-keyframes", 0, "override maximum keyframes")
	analyzeCmd.Flags().Float64Var(&sceneThreshold, "scene-threshold", 0, "override scene-change threshold")
	analyzeCmd.Flags().Float64Var(&minInterval, "min-interval", 0, "override minimum keyframe interval (seconds)")
	analyzeCmd.Flags().BoolVar(&noAudio, "no-audio", false, "skip the audio branch")
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [input video]",
	Short: "Analyze a video end to end",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !util.FileExists(args[0]) {
			return fmt.Errorf("input video not found: %s", args[0])
		}

		cfg := config.FromContext(cmd.Context())
		if maxKeyframes > 0 {
			cfg.Keyframes.MaxKeyframes = maxKeyframes
		}
		if sceneThreshold > 0 {
			cfg.Keyframes.SceneChangeThreshold = sceneThreshold
		}
		if minInterval > 0 {
			cfg.Keyframes.MinIntervalSeconds = minInterval
		}
		exec, err := media.NewExecutor(log.Logger, media.ExecutorOptions{
			FFmpegPath:  cfg.FFmpeg.BinaryPath,
			FFprobePath: cfg.FFmpeg.ProbePath,
			Threads:     cfg.FFmpeg.Threads,
			JPEGQuality: cfg.FFmpeg.JPEGQuality,
		})
		if err != nil {
			return err
		}

		pipe := pipeline.New(log.Logger, cfg, pipeline.Options{
			Source:    pipeline.NewFFmpegSource(exec),
			SkipAudio: noAudio,
		})

		result, err := pipe.Analyze(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		cliLog := logging.WithComponent("cli")
		cliLog.Info().
			Str("id", result.ID).
			Int("keyframes", len(result.Keyframes)).
			Str("style", result.Timeline.Style).
			Msg("analysis complete")

		return writeJSON(result, outPath)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe [input video]",
	Short: "Print video metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.FromContext(cmd.Context())

		exec, err := media.NewExecutor(log.Logger, media.ExecutorOptions{
			FFmpegPath:  cfg.FFmpeg.BinaryPath,
			FFprobePath: cfg.FFmpeg.ProbePath,
		})
		if err != nil {
			return err
		}

		meta, err := exec.Probe(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return writeJSON(meta, "")
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Config management commands",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeJSON(config.FromContext(cmd.Context()), "")
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default lectern.yaml in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "./lectern.yaml"
		if err := config.Default().Save(path); err != nil {
			return err
		}
		log.Info().Str("path", path).Msg("wrote default config")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func writeJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Println(string(data))
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := util.EnsureDir(dir); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}
