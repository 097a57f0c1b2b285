package interchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/forPelevin/supercut/internal/domain/timecode"
	"github.com/forPelevin/supercut/internal/types"
)

// OpenTimelineIO JSON schema, written directly; only the subset needed for a
// single-track cut list.

type otioTimeline struct {
	Schema   string         `json:"OTIO_SCHEMA"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
	Start    *otioTime      `json:"global_start_time"`
	Tracks   otioStack      `json:"tracks"`
}

type otioStack struct {
	Schema      string         `json:"OTIO_SCHEMA"`
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata"`
	SourceRange *otioRange     `json:"source_range"`
	Effects     []any          `json:"effects"`
	Markers     []any          `json:"markers"`
	Enabled     bool           `json:"enabled"`
	Children    []otioTrack    `json:"children"`
}

type otioTrack struct {
	Schema      string         `json:"OTIO_SCHEMA"`
	Name        string         `json:"name"`
	Kind        string         `json:"kind"`
	Metadata    map[string]any `json:"metadata"`
	SourceRange *otioRange     `json:"source_range"`
	Effects     []any          `json:"effects"`
	Markers     []any          `json:"markers"`
	Enabled     bool           `json:"enabled"`
	Children    []otioClip     `json:"children"`
}

type otioClip struct {
	Schema      string         `json:"OTIO_SCHEMA"`
	Name        string         `json:"name"`
	Metadata    map[string]any `json:"metadata"`
	SourceRange otioRange      `json:"source_range"`
	Effects     []any          `json:"effects"`
	Markers     []any          `json:"markers"`
	Enabled     bool           `json:"enabled"`
	Media       otioExternal   `json:"media_reference"`
}

type otioExternal struct {
	Schema         string         `json:"OTIO_SCHEMA"`
	Name           string         `json:"name"`
	Metadata       map[string]any `json:"metadata"`
	TargetURL      string         `json:"target_url"`
	AvailableRange otioRange      `json:"available_range"`
}

type otioRange struct {
	Schema   string   `json:"OTIO_SCHEMA"`
	Start    otioTime `json:"start_time"`
	Duration otioTime `json:"duration"`
}

type otioTime struct {
	Schema string  `json:"OTIO_SCHEMA"`
	Rate   float64 `json:"rate"`
	Value  float64 `json:"value"`
}

func rt(frames int64, rate float64) otioTime {
	return otioTime{Schema: "RationalTime.1", Rate: rate, Value: float64(frames)}
}

func timeRange(start, dur int64, rate float64) otioRange {
	return otioRange{Schema: "TimeRange.1", Start: rt(start, rate), Duration: rt(dur, rate)}
}

// WriteOTIO writes c as an OpenTimelineIO timeline with one video track. Each
// clip references its whole source file as the available range and the
// matched segment as the source range, both in frames of that file.
func WriteOTIO(ctx context.Context, w io.Writer, c types.Composition, name string, t *Timings) error {
	track := otioTrack{
		Schema:   "Track.1",
		Name:     "Supercut",
		Kind:     "Video",
		Metadata: map[string]any{},
		Effects:  []any{},
		Markers:  []any{},
		Enabled:  true,
		Children: make([]otioClip, 0, len(c)),
	}
	for i, s := range c {
		ft := t.Timing(ctx, s.Source)
		tc, err := timecode.New(ft.FPS)
		if err != nil {
			return fmt.Errorf("otio clip %d: %w", i+1, err)
		}
		in, out := tc.Frames(s.Start), tc.Frames(s.End)
		avail := max(tc.Frames(ft.Duration), out)
		track.Children = append(track.Children, otioClip{
			Schema:      "Clip.1",
			Name:        ReelName(i),
			Metadata:    map[string]any{"supercut": map[string]any{"line": s.Text}},
			SourceRange: timeRange(in, out-in, ft.FPS),
			Effects:     []any{},
			Markers:     []any{},
			Enabled:     true,
			Media: otioExternal{
				Schema:         "ExternalReference.1",
				Metadata:       map[string]any{},
				TargetURL:      s.Source,
				AvailableRange: timeRange(0, avail, ft.FPS),
			},
		})
	}

	tl := otioTimeline{
		Schema:   "Timeline.1",
		Name:     name,
		Metadata: map[string]any{},
		Tracks: otioStack{
			Schema:   "Stack.1",
			Name:     "tracks",
			Metadata: map[string]any{},
			Effects:  []any{},
			Markers:  []any{},
			Enabled:  true,
			Children: []otioTrack{track},
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	if err := enc.Encode(tl); err != nil {
		return fmt.Errorf("encode otio: %w", err)
	}
	return nil
}
