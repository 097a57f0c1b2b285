package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/forPelevin/supercut/internal/config"
	"github.com/forPelevin/supercut/internal/domain/composition"
	"github.com/forPelevin/supercut/internal/domain/search"
	"github.com/forPelevin/supercut/internal/domain/tracks"
	"github.com/forPelevin/supercut/internal/platform/logger"
	"github.com/forPelevin/supercut/internal/ports"
	"github.com/forPelevin/supercut/internal/ports/adapters/ffmpeg"
	"github.com/forPelevin/supercut/internal/ports/adapters/gcpspeech"
	"github.com/forPelevin/supercut/internal/ports/adapters/openrouter"
	"github.com/forPelevin/supercut/internal/ports/adapters/whispercpp"
	"github.com/forPelevin/supercut/internal/types"
	"github.com/forPelevin/supercut/internal/usecase"
)

// Config is one supercut run.
type Config struct {
	Inputs        []string
	Search        string
	SearchType    string
	UseTranscript bool
	UseVTT        bool
	MaxClips      int
	Output        string
	ExportClips   bool
	Demo          bool
	Randomize     bool
	// Padding and Resync are in milliseconds.
	Padding int
	Resync  int

	Settings config.Config
	Log      *logger.Logger
	Stdout   io.Writer
}

var (
	ErrNoInputs       = errors.New("at least one input is required")
	ErrNoSearch       = errors.New("search term is required")
	ErrExportConflict = errors.New("export-clips cannot be combined with an .edl or .otio output")
)

func (c Config) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	if strings.TrimSpace(c.Search) == "" {
		return ErrNoSearch
	}
	mode, err := search.ParseMode(c.SearchType)
	if err != nil {
		return err
	}
	if c.UseTranscript && c.UseVTT {
		return errors.New("use-transcript and use-vtt are mutually exclusive")
	}
	if mode.Phrase() && !c.UseTranscript {
		return search.ErrPhraseMode
	}
	if c.MaxClips < 0 {
		return fmt.Errorf("max clips must be >= 0")
	}
	if c.Padding < 0 {
		return fmt.Errorf("padding must be >= 0")
	}
	if c.Settings.BatchSize < 0 {
		return fmt.Errorf("batch size must be >= 0")
	}
	if strings.TrimSpace(c.Output) == "" {
		return errors.New("output is empty")
	}
	if c.ExportClips && isInterchange(c.Output) {
		return ErrExportConflict
	}

	switch {
	case mode.NeedsLexicon():
		if c.Settings.OpenRouter.APIKey == "" {
			return fmt.Errorf("%s search needs OPENROUTER_API_KEY (set it in .env)", mode)
		}
		if strings.TrimSpace(c.Settings.OpenRouter.Model) == "" {
			return fmt.Errorf("%s search needs an openrouter model", mode)
		}
		return openrouter.ValidateBaseURL(c.Settings.OpenRouter.BaseURL, c.Settings.OpenRouter.AllowedHosts)
	case !mode.Phrase():
		// compile the pattern now so a bad regex fails before any I/O
		if _, err := search.New(mode, c.Search, nil); err != nil {
			return err
		}
	}
	return nil
}

// Kind is the track kind selected by the flags.
func (c Config) Kind() types.TrackKind {
	return trackKind(c.UseTranscript, c.UseVTT)
}

func trackKind(transcript, vtt bool) types.TrackKind {
	switch {
	case transcript:
		return types.TrackTranscript
	case vtt:
		return types.TrackCaptions
	default:
		return types.TrackCues
	}
}

func isInterchange(output string) bool {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".edl", ".otio":
		return true
	}
	return false
}

// Run composes the supercut and dispatches it to demo output, an
// interchange file, split clips or a rendered video.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	mode, err := search.ParseMode(cfg.SearchType)
	if err != nil {
		return err
	}

	deps := usecase.Deps{
		Media: ffmpeg.New(cfg.Settings.Media.FFmpeg, cfg.Settings.Media.FFprobe),
		Log:   log,
	}
	if mode.NeedsLexicon() {
		or := cfg.Settings.OpenRouter
		deps.Lexicon = openrouter.New(or.APIKey, or.Model, or.BaseURL)
		log.Info("lexical analysis enabled", "model", or.Model)
	}
	uc := usecase.New(deps)

	padding := float64(cfg.Padding) / 1000
	comp, err := uc.Compose(ctx, usecase.ComposeInput{
		Inputs:  cfg.Inputs,
		Kind:    cfg.Kind(),
		Mode:    mode,
		Pattern: cfg.Search,
		Adjust: composition.Options{
			Sync:      float64(cfg.Resync) / 1000,
			Padding:   padding,
			MaxClips:  cfg.MaxClips,
			Randomize: cfg.Randomize,
		},
	})
	if err != nil {
		return err
	}

	switch {
	case cfg.Demo:
		return uc.Demo(stdout, comp, padding)
	case isInterchange(cfg.Output):
		return uc.Export(ctx, comp, cfg.Output)
	case cfg.ExportClips:
		paths, err := uc.SplitClips(ctx, comp, cfg.Output, padding)
		if err != nil {
			return err
		}
		log.Info("clips written", "count", len(paths))
		return nil
	}

	rep, err := uc.Render(ctx, comp, usecase.RenderInput{
		Output:    cfg.Output,
		Padding:   padding,
		BatchSize: cfg.Settings.BatchSize,
	})
	if err != nil {
		return err
	}
	if len(rep.SkippedBatches) > 0 {
		log.Warn("some batches were skipped", "batches", rep.SkippedBatches)
	}
	log.Info("supercut written", "file", cfg.Output, "clips", rep.Clips, "dropped", len(rep.Dropped))
	return nil
}

type TranscribeConfig struct {
	Inputs   []string
	Force    bool
	Settings config.Config
	Log      *logger.Logger
}

func (c TranscribeConfig) Validate() error {
	if len(c.Inputs) == 0 {
		return ErrNoInputs
	}
	switch c.Settings.ASR.Engine {
	case "whispercpp", "":
		if c.Settings.ASR.WhisperModel == "" {
			return fmt.Errorf("whisper model path is required")
		}
	case "gcp":
	default:
		return fmt.Errorf("unknown asr engine %q (want whispercpp or gcp)", c.Settings.ASR.Engine)
	}
	if c.Settings.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0")
	}
	return nil
}

// Transcribe writes a transcript next to every input video.
func Transcribe(ctx context.Context, cfg TranscribeConfig) error {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	asr, closeASR, err := newASR(ctx, cfg.Settings.ASR)
	if err != nil {
		return err
	}
	defer closeASR()

	videos, skipped := tracks.Videos(cfg.Inputs)
	for _, s := range skipped {
		log.Warn("skipping input", "input", s.Input, "reason", s.Reason)
	}
	if len(videos) == 0 {
		return errors.New("no video files to transcribe")
	}

	baseCache := cfg.Settings.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	jobs := make([]usecase.TranscribeJob, 0, len(videos))
	for _, v := range videos {
		jobs = append(jobs, usecase.TranscribeJob{Video: v, CacheDir: jobCacheDir(baseCache, v)})
	}

	uc := usecase.New(usecase.Deps{
		Media: ffmpeg.New(cfg.Settings.Media.FFmpeg, cfg.Settings.Media.FFprobe),
		ASR:   asr,
		Log:   log,
	})
	rep, err := uc.Transcribe(ctx, usecase.TranscribeInput{Jobs: jobs, Limit: cfg.Settings.Jobs, Force: cfg.Force})
	if err != nil {
		return err
	}
	log.Info("transcription finished", "written", len(rep.Written), "skipped", len(rep.Skipped), "failed", len(rep.Failed))
	return nil
}

func newASR(ctx context.Context, s config.ASR) (ports.ASR, func(), error) {
	switch s.Engine {
	case "gcp":
		a, err := gcpspeech.New(ctx, s.Language, gcpspeech.OptionsFromEnv()...)
		if err != nil {
			return nil, nil, err
		}
		return a, func() { _ = a.Close() }, nil
	default:
		return whispercpp.New(s.WhisperBin, s.WhisperModel, s.Language), func() {}, nil
	}
}

type NgramsConfig struct {
	Inputs        []string
	N             int
	UseTranscript bool
	UseVTT        bool
	Log           *logger.Logger
	Stdout        io.Writer
}

// Ngrams prints the most common n-grams as "<words> <count>" lines.
func Ngrams(cfg NgramsConfig) error {
	if len(cfg.Inputs) == 0 {
		return ErrNoInputs
	}
	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	uc := usecase.New(usecase.Deps{Log: cfg.Log})
	grams, err := uc.Ngrams(cfg.Inputs, trackKind(cfg.UseTranscript, cfg.UseVTT), cfg.N)
	if err != nil {
		return err
	}
	for _, g := range grams {
		if _, err := fmt.Fprintf(stdout, "%s %d\n", g, g.Count); err != nil {
			return err
		}
	}
	return nil
}

// jobCacheDir is a stable per-video directory under base.
func jobCacheDir(base, video string) string {
	abs, err := filepath.Abs(video)
	if err != nil {
		abs = video
	}
	name := normalizePathSegment(strings.TrimSuffix(filepath.Base(video), filepath.Ext(video)))
	if name == "" {
		name = "input"
	}
	return filepath.Join(base, "runs", name+"-"+hash(abs))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}

// ensure adapters implement ports
var _ ports.MediaTool = (*ffmpeg.Adapter)(nil)
var _ ports.ASR = (*whispercpp.Adapter)(nil)
var _ ports.ASR = (*gcpspeech.Adapter)(nil)
var _ ports.Lexicon = (*openrouter.Adapter)(nil)
