package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/forPelevin/supercut/internal/config"
	"github.com/forPelevin/supercut/internal/pipeline"
	"github.com/forPelevin/supercut/internal/platform/logger"
)

// setup loads settings, applies the shared flags on top and builds the
// logger.
func setup(cmd *cobra.Command) (config.Config, *logger.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	settings, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	if cmd.Flags().Changed("log-level") {
		settings.Log.Level, _ = cmd.Flags().GetString("log-level")
	}
	log, err := logger.New(settings.Log.Mode, settings.Log.Level)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	return settings, log, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	ctx, cancel := context.WithTimeout(ctx, 3*time.Hour)
	return ctx, func() {
		cancel()
		stop()
	}
}

func runSearch(cmd *cobra.Command, _ []string) error {
	settings, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	fl := cmd.Flags()
	inputs, _ := fl.GetStringArray("input")
	searchTerm, _ := fl.GetString("search")
	searchType, _ := fl.GetString("search-type")
	useTranscript, _ := fl.GetBool("use-transcript")
	useVTT, _ := fl.GetBool("use-vtt")
	maxClips, _ := fl.GetInt("max-clips")
	exportClips, _ := fl.GetBool("export-clips")
	demo, _ := fl.GetBool("demo")
	randomize, _ := fl.GetBool("randomize")
	padding, _ := fl.GetInt("padding")
	resync, _ := fl.GetInt("resyncsubs")

	output := settings.Output
	if fl.Changed("output") {
		output, _ = fl.GetString("output")
	}
	if fl.Changed("batch-size") {
		settings.BatchSize, _ = fl.GetInt("batch-size")
	}

	cfg := pipeline.Config{
		Inputs:        inputs,
		Search:        searchTerm,
		SearchType:    searchType,
		UseTranscript: useTranscript,
		UseVTT:        useVTT,
		MaxClips:      maxClips,
		Output:        output,
		ExportClips:   exportClips,
		Demo:          demo,
		Randomize:     randomize,
		Padding:       padding,
		Resync:        resync,
		Settings:      settings,
		Log:           log,
		Stdout:        cmd.OutOrStdout(),
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pipeline.Run(ctx, cfg)
}

func runTranscribe(cmd *cobra.Command, _ []string) error {
	settings, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	fl := cmd.Flags()
	inputs, _ := fl.GetStringArray("input")
	force, _ := fl.GetBool("force")
	if fl.Changed("asr") {
		settings.ASR.Engine, _ = fl.GetString("asr")
	}
	if fl.Changed("jobs") {
		settings.Jobs, _ = fl.GetInt("jobs")
	}

	cfg := pipeline.TranscribeConfig{Inputs: inputs, Force: force, Settings: settings, Log: log}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()
	return pipeline.Transcribe(ctx, cfg)
}

func runNgrams(cmd *cobra.Command, _ []string) error {
	_, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer log.Sync()

	fl := cmd.Flags()
	inputs, _ := fl.GetStringArray("input")
	n, _ := fl.GetInt("n")
	useTranscript, _ := fl.GetBool("use-transcript")
	useVTT, _ := fl.GetBool("use-vtt")

	return pipeline.Ngrams(pipeline.NgramsConfig{
		Inputs:        inputs,
		N:             n,
		UseTranscript: useTranscript,
		UseVTT:        useVTT,
		Log:           log,
		Stdout:        cmd.OutOrStdout(),
	})
}
