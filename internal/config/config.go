package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "supercut.yaml"

// DefaultOpenRouterModel is the chat model used for pos and hyper searches.
const DefaultOpenRouterModel = "z-ai/glm-4.5-air:free"

// Config holds the settings that are not per-search. Values come from
// defaults, then the YAML file, then the environment; command-line flags are
// applied on top by the caller.
type Config struct {
	Output    string `yaml:"output"`
	BatchSize int    `yaml:"batch_size"`
	CacheDir  string `yaml:"cache_dir"`
	Jobs      int    `yaml:"jobs"`

	Log        Log        `yaml:"log"`
	Media      Media      `yaml:"media"`
	ASR        ASR        `yaml:"asr"`
	OpenRouter OpenRouter `yaml:"openrouter"`
}

type Log struct {
	Mode  string `yaml:"mode"`
	Level string `yaml:"level"`
}

type Media struct {
	FFmpeg  string `yaml:"ffmpeg"`
	FFprobe string `yaml:"ffprobe"`
}

type ASR struct {
	Engine       string `yaml:"engine"`
	WhisperBin   string `yaml:"whisper_bin"`
	WhisperModel string `yaml:"whisper_model"`
	Language     string `yaml:"language"`
}

type OpenRouter struct {
	APIKey       string   `yaml:"-"`
	Model        string   `yaml:"model"`
	BaseURL      string   `yaml:"base_url"`
	AllowedHosts []string `yaml:"allowed_hosts"`
}

func Default() Config {
	return Config{
		Output:    "supercut.mp4",
		BatchSize: 20,
		CacheDir:  ".cache",
		Jobs:      2,
		Log:       Log{Mode: "dev", Level: "info"},
		Media:     Media{FFmpeg: "ffmpeg", FFprobe: "ffprobe"},
		ASR: ASR{
			Engine:       "whispercpp",
			WhisperBin:   ".cache/bin/whisper.cpp",
			WhisperModel: ".cache/models/ggml-base.bin",
			Language:     "en-US",
		},
		OpenRouter: OpenRouter{
			Model:   DefaultOpenRouterModel,
			BaseURL: "https://openrouter.ai",
		},
	}
}

// Load builds the configuration. An explicit path must exist; otherwise
// DefaultFile is read when present.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	if err := readFile(path, &cfg); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("SUPERCUT_OUTPUT", &cfg.Output)
	str("SUPERCUT_CACHE_DIR", &cfg.CacheDir)
	str("SUPERCUT_LOG_MODE", &cfg.Log.Mode)
	str("SUPERCUT_LOG_LEVEL", &cfg.Log.Level)
	str("FFMPEG_PATH", &cfg.Media.FFmpeg)
	str("FFPROBE_PATH", &cfg.Media.FFprobe)
	str("SUPERCUT_ASR", &cfg.ASR.Engine)
	str("WHISPER_BIN", &cfg.ASR.WhisperBin)
	str("WHISPER_MODEL", &cfg.ASR.WhisperModel)
	str("SUPERCUT_LANGUAGE", &cfg.ASR.Language)
	str("OPENROUTER_API_KEY", &cfg.OpenRouter.APIKey)
	str("OPENROUTER_MODEL", &cfg.OpenRouter.Model)
	str("OPENROUTER_BASE_URL", &cfg.OpenRouter.BaseURL)
	if v, ok := lookup("OPENROUTER_ALLOWED_HOSTS"); ok && strings.TrimSpace(v) != "" {
		cfg.OpenRouter.AllowedHosts = splitList(v)
	}
	if err := num("SUPERCUT_BATCH_SIZE", &cfg.BatchSize); err != nil {
		return err
	}
	return num("SUPERCUT_JOBS", &cfg.Jobs)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
