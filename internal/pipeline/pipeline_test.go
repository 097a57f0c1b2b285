package pipeline

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/forPelevin/supercut/internal/config"
	"github.com/forPelevin/supercut/internal/domain/search"
	"github.com/forPelevin/supercut/internal/types"
	"github.com/forPelevin/supercut/internal/usecase"
)

func validConfig() Config {
	return Config{
		Inputs:     []string{"a.mp4"},
		Search:     "hello",
		SearchType: "re",
		Output:     "supercut.mp4",
		Settings:   config.Default(),
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		wantAny bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no inputs", mutate: func(c *Config) { c.Inputs = nil }, wantErr: ErrNoInputs},
		{name: "no search", mutate: func(c *Config) { c.Search = "  " }, wantErr: ErrNoSearch},
		{name: "unknown mode", mutate: func(c *Config) { c.SearchType = "fuzzy" }, wantErr: search.ErrUnknownMode},
		{name: "bad regex", mutate: func(c *Config) { c.Search = "(" }, wantAny: true},
		{name: "negative padding", mutate: func(c *Config) { c.Padding = -1 }, wantAny: true},
		{name: "negative max clips", mutate: func(c *Config) { c.MaxClips = -3 }, wantAny: true},
		{name: "export clips with edl", mutate: func(c *Config) { c.ExportClips = true; c.Output = "x.EDL" }, wantErr: ErrExportConflict},
		{name: "fragment without transcript", mutate: func(c *Config) { c.SearchType = "fragment" }, wantErr: search.ErrPhraseMode},
		{name: "fragment with transcript", mutate: func(c *Config) { c.SearchType = "fragment"; c.UseTranscript = true }},
		{name: "both track kinds", mutate: func(c *Config) { c.UseTranscript = true; c.UseVTT = true }, wantAny: true},
		{name: "pos without key", mutate: func(c *Config) { c.SearchType = "pos" }, wantAny: true},
		{
			name: "pos with key",
			mutate: func(c *Config) {
				c.SearchType = "pos"
				c.Settings.OpenRouter.APIKey = "sk"
			},
		},
		{
			name: "pos with empty model",
			mutate: func(c *Config) {
				c.SearchType = "pos"
				c.Settings.OpenRouter.APIKey = "sk"
				c.Settings.OpenRouter.Model = " "
			},
			wantAny: true,
		},
		{
			name: "hyper with foreign base url",
			mutate: func(c *Config) {
				c.SearchType = "hyper"
				c.Settings.OpenRouter.APIKey = "sk"
				c.Settings.OpenRouter.BaseURL = "https://evil.example"
			},
			wantAny: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(&c)
			err := c.Validate()
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.wantAny:
				if err == nil {
					t.Fatalf("expected error")
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
		})
	}
}

func TestKind(t *testing.T) {
	c := validConfig()
	if c.Kind() != types.TrackCues {
		t.Fatalf("default kind must be cues")
	}
	c.UseVTT = true
	if c.Kind() != types.TrackCaptions {
		t.Fatalf("use-vtt must select captions")
	}
	c.UseVTT, c.UseTranscript = false, true
	if c.Kind() != types.TrackTranscript {
		t.Fatalf("use-transcript must select transcripts")
	}
}

func fixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	srt := "1\n00:00:01,000 --> 00:00:02,000\nhello world\n\n2\n00:00:05,000 --> 00:00:06,500\nhello there\n"
	if err := os.WriteFile(filepath.Join(dir, "a.mp4"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.srt"), []byte(srt), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestRun_Demo(t *testing.T) {
	dir := fixture(t)
	var out bytes.Buffer
	cfg := validConfig()
	cfg.Inputs = []string{dir}
	cfg.Demo = true
	cfg.Padding = 250
	cfg.Stdout = &out

	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	want := "0.75 to 2.25:\thello world\n4.75 to 6.75:\thello there\n"
	if out.String() != want {
		t.Fatalf("got %q, want %q", out.String(), want)
	}
}

func TestRun_ExportEDL(t *testing.T) {
	dir := fixture(t)
	cfg := validConfig()
	cfg.Inputs = []string{dir}
	cfg.Output = filepath.Join(dir, "cut.edl")
	// probing fails on the empty fixture video, so 25 fps is assumed
	cfg.Settings.Media.FFprobe = filepath.Join(dir, "no-ffprobe")

	if err := Run(context.Background(), cfg); err != nil {
		t.Fatalf("run: %v", err)
	}
	b, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("read edl: %v", err)
	}
	if !strings.Contains(string(b), "0002 reel_0002 AA/V  C        00:00:05:00 00:00:06:12 00:00:01:00 00:00:02:12") {
		t.Fatalf("unexpected edl:\n%s", b)
	}
}

func TestRun_NoMatchesWritesNothing(t *testing.T) {
	dir := fixture(t)
	cfg := validConfig()
	cfg.Inputs = []string{dir}
	cfg.Search = "goodbye"
	cfg.Output = filepath.Join(dir, "supercut.mp4")

	err := Run(context.Background(), cfg)
	if !errors.Is(err, usecase.ErrNoMatches) {
		t.Fatalf("expected ErrNoMatches, got %v", err)
	}
	if _, err := os.Stat(cfg.Output); !os.IsNotExist(err) {
		t.Fatalf("no output file expected, stat err=%v", err)
	}
}

func TestNgrams(t *testing.T) {
	dir := fixture(t)
	var out bytes.Buffer
	if err := Ngrams(NgramsConfig{Inputs: []string{dir}, N: 2, Stdout: &out}); err != nil {
		t.Fatalf("ngrams: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || lines[0] != "hello world 1" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestTranscribeConfig_Validate(t *testing.T) {
	s := config.Default()
	if err := (TranscribeConfig{Inputs: []string{"a.mp4"}, Settings: s}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.ASR.Engine = "vosk"
	if err := (TranscribeConfig{Inputs: []string{"a.mp4"}, Settings: s}).Validate(); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
	if err := (TranscribeConfig{Settings: config.Default()}).Validate(); !errors.Is(err, ErrNoInputs) {
		t.Fatalf("expected ErrNoInputs, got %v", err)
	}
}

func TestJobCacheDir(t *testing.T) {
	a := jobCacheDir(".cache", "/videos/My Talk.mp4")
	b := jobCacheDir(".cache", "/other/My Talk.mp4")
	if filepath.Dir(a) != filepath.Join(".cache", "runs") {
		t.Fatalf("unexpected parent dir: %s", a)
	}
	if !strings.HasPrefix(filepath.Base(a), "my-talk-") || len(filepath.Base(a)) != len("my-talk-")+12 {
		t.Fatalf("unexpected cache dir name: %s", a)
	}
	if a == b {
		t.Fatalf("different videos must get different cache dirs")
	}
	if a != jobCacheDir(".cache", "/videos/My Talk.mp4") {
		t.Fatalf("cache dir must be stable")
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Video  ": "my-cool-video",
		"___":               "",
		"abc123":            "abc123",
		"Name (v2)!":        "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}
