package composition

import (
	"fmt"
	"math/rand"

	"github.com/forPelevin/supercut/internal/types"
)

// Options are the global adjustments applied once to a fresh composition.
type Options struct {
	Sync      float64
	Padding   float64
	MaxClips  int
	Randomize bool
	Rand      *rand.Rand
}

// Adjust shifts every segment by Sync, widens it by Padding on both sides,
// keeps the first MaxClips segments (when > 0) and then optionally shuffles.
// The input is not modified.
func Adjust(c types.Composition, o Options) types.Composition {
	out := make(types.Composition, len(c))
	for i, s := range c {
		s.Start = s.Start + o.Sync - o.Padding
		s.End = s.End + o.Sync + o.Padding
		out[i] = s
	}
	if o.MaxClips > 0 && len(out) > o.MaxClips {
		out = out[:o.MaxClips]
	}
	if o.Randomize {
		r := o.Rand
		if r == nil {
			r = rand.New(rand.NewSource(rand.Int63()))
		}
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	}
	return out
}

// CorrectOverlaps walks the composition in cut order and, whenever a segment
// starts before the end of its immediate predecessor from the same file,
// advances its start by padding and at least to that predecessor's end.
// Segments left empty are removed; their original indices are returned.
func CorrectOverlaps(c types.Composition, padding float64) (types.Composition, []int) {
	out := make(types.Composition, 0, len(c))
	var dropped []int
	for i, s := range c {
		if n := len(out); n > 0 {
			prev := out[n-1]
			if prev.Source == s.Source && s.Start < prev.End {
				s.Start += padding
				if s.Start < prev.End {
					s.Start = prev.End
				}
			}
		}
		if s.End <= s.Start {
			dropped = append(dropped, i)
			continue
		}
		out = append(out, s)
	}
	return out, dropped
}

// DemoLines formats the cut list the way the demo mode prints it.
func DemoLines(c types.Composition) []string {
	out := make([]string, len(c))
	for i, s := range c {
		out[i] = fmt.Sprintf("%.2f to %.2f:\t%s", s.Start, s.End, s.Text)
	}
	return out
}

// Batches splits c into consecutive slices of at most size segments.
func Batches(c types.Composition, size int) []types.Composition {
	if size <= 0 || len(c) <= size {
		return []types.Composition{c}
	}
	var out []types.Composition
	for i := 0; i < len(c); i += size {
		end := min(i+size, len(c))
		out = append(out, c[i:end])
	}
	return out
}
