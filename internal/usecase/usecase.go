package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/forPelevin/supercut/internal/domain/composition"
	"github.com/forPelevin/supercut/internal/domain/search"
	"github.com/forPelevin/supercut/internal/domain/tracks"
	"github.com/forPelevin/supercut/internal/platform/logger"
	"github.com/forPelevin/supercut/internal/ports"
	"github.com/forPelevin/supercut/internal/types"
)

// ErrNoMatches means the search term matched nothing in any track.
var ErrNoMatches = errors.New("search term was not found in any file")

type Deps struct {
	Media   ports.MediaTool
	ASR     ports.ASR
	Lexicon ports.Lexicon
	Log     *logger.Logger
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	return Usecase{d: d}
}

type ComposeInput struct {
	Inputs  []string
	Kind    types.TrackKind
	Mode    search.Mode
	Pattern string
	Adjust  composition.Options
}

// Compose searches every track reachable from the inputs and returns the
// adjusted composition in file-then-line order (before any shuffle).
func (u Usecase) Compose(ctx context.Context, in ComposeInput) (types.Composition, error) {
	loaded, err := u.loadTracks(in.Inputs, in.Kind)
	if err != nil {
		return nil, err
	}

	var c types.Composition
	if in.Mode.Phrase() {
		c, err = search.Assemble(in.Mode, loaded, in.Pattern)
		if err != nil {
			return nil, err
		}
	} else {
		m, err := search.New(in.Mode, in.Pattern, u.d.Lexicon)
		if err != nil {
			return nil, err
		}
		for _, t := range loaded {
			found, err := matchTrack(ctx, m, t)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				u.d.Log.Warn("skipping track that could not be searched", "track", t.Path, "error", err)
				continue
			}
			if len(found) == 0 {
				u.d.Log.Info("search term not found in track", "search", in.Pattern, "track", t.Path)
			}
			c = append(c, found...)
		}
	}

	if len(c) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoMatches, in.Pattern)
	}
	u.d.Log.Info(fmt.Sprintf("search term was found in %d places", len(c)), "search", in.Pattern)
	return composition.Adjust(c, in.Adjust), nil
}

// loadTracks discovers and parses tracks, warning about and skipping every
// input that cannot be used.
func (u Usecase) loadTracks(inputs []string, kind types.TrackKind) ([]types.Track, error) {
	d, err := tracks.Discover(inputs, kind)
	for _, s := range d.Skipped {
		u.d.Log.Warn("skipping input", "input", s.Input, "reason", s.Reason)
	}
	if err != nil {
		return nil, err
	}

	loaded := make([]types.Track, 0, len(d.Tracks))
	for _, stub := range d.Tracks {
		t, err := tracks.Load(stub)
		if err != nil {
			u.d.Log.Warn("skipping unreadable track", "track", stub.Path, "error", err)
			continue
		}
		if len(t.Spans) == 0 {
			u.d.Log.Warn("track is empty", "track", t.Path)
			continue
		}
		loaded = append(loaded, t)
	}
	if len(loaded) == 0 {
		return nil, tracks.ErrNoTracks
	}
	return loaded, nil
}

func matchTrack(ctx context.Context, m *search.Matcher, t types.Track) ([]types.Segment, error) {
	var out []types.Segment
	wordUnit := m.Unit(t.Kind) == search.UnitWord
	for _, span := range t.Spans {
		if wordUnit && len(span.Words) > 0 {
			for _, w := range span.Words {
				ok, err := m.Match(ctx, w.Text)
				if err != nil {
					return nil, err
				}
				if ok && w.End > w.Start {
					out = append(out, types.Segment{Source: span.Source, Text: w.Text, Start: w.Start, End: w.End})
				}
			}
			continue
		}
		seg, ok, err := m.MatchSpan(ctx, span)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, seg)
		}
	}
	return out, nil
}
