package interchange

import (
	"context"

	"github.com/forPelevin/supercut/internal/types"
)

// DefaultFPS is assumed when a file's frame rate cannot be probed.
const DefaultFPS = 25.0

// Prober reads frame rate and duration (seconds) of a media file.
type Prober interface {
	ProbeFPS(ctx context.Context, path string) (float64, error)
	ProbeDuration(ctx context.Context, path string) (float64, error)
}

// Timings memoizes FileTiming per source for one run. Not safe for
// concurrent use.
type Timings struct {
	prober Prober
	warn   func(msg string, kv ...any)
	cache  map[string]*entry
}

type entry struct {
	fps         float64
	fpsDone     bool
	duration    float64
	durationSet bool
}

func NewTimings(p Prober, warn func(msg string, kv ...any)) *Timings {
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &Timings{prober: p, warn: warn, cache: make(map[string]*entry)}
}

func (t *Timings) entry(path string) *entry {
	e, ok := t.cache[path]
	if !ok {
		e = &entry{}
		t.cache[path] = e
	}
	return e
}

// FPS returns the frame rate of path, falling back to DefaultFPS.
func (t *Timings) FPS(ctx context.Context, path string) float64 {
	e := t.entry(path)
	if e.fpsDone {
		return e.fps
	}
	fps, err := t.prober.ProbeFPS(ctx, path)
	if err != nil || fps <= 0 {
		t.warn("could not detect fps, using default", "file", path, "default", DefaultFPS, "error", err)
		fps = DefaultFPS
	}
	e.fps, e.fpsDone = fps, true
	return fps
}

// Duration returns the length of path in seconds, or 0 when unknown.
func (t *Timings) Duration(ctx context.Context, path string) float64 {
	e := t.entry(path)
	if e.durationSet {
		return e.duration
	}
	d, err := t.prober.ProbeDuration(ctx, path)
	if err != nil || d < 0 {
		t.warn("could not detect duration", "file", path, "error", err)
		d = 0
	}
	e.duration, e.durationSet = d, true
	return d
}

// Timing returns the resolved FileTiming of path.
func (t *Timings) Timing(ctx context.Context, path string) types.FileTiming {
	return types.FileTiming{Source: path, FPS: t.FPS(ctx, path), Duration: t.Duration(ctx, path)}
}
