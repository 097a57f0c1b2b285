package composition

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/forPelevin/supercut/internal/types"
)

func seg(src string, start, end float64) types.Segment {
	return types.Segment{Source: src, Text: "x", Start: start, End: end}
}

func TestAdjust_PaddingAddsTwiceToDuration(t *testing.T) {
	c := types.Composition{seg("a", 1, 2), seg("a", 5, 6.5), seg("b", 10, 10.25)}
	for _, p := range []float64{0, 0.1, 0.5, 2} {
		got := Adjust(c, Options{Padding: p})
		for i := range c {
			want := c[i].Duration() + 2*p
			if math.Abs(got[i].Duration()-want) > 1e-9 {
				t.Fatalf("p=%v seg %d: duration %v, want %v", p, i, got[i].Duration(), want)
			}
		}
	}
}

func TestAdjust_SyncThenPadding(t *testing.T) {
	c := types.Composition{seg("a", 1, 2)}
	got := Adjust(c, Options{Sync: 0.25, Padding: 0.5})
	if math.Abs(got[0].Start-0.75) > 1e-9 || math.Abs(got[0].End-2.75) > 1e-9 {
		t.Fatalf("unexpected bounds %+v", got[0])
	}
	if c[0].Start != 1 {
		t.Fatalf("input was modified: %+v", c[0])
	}
}

func TestAdjust_Truncate(t *testing.T) {
	c := types.Composition{seg("a", 1, 2), seg("b", 3, 4), seg("c", 5, 6)}
	for k, wantLen := range map[int]int{0: 3, 1: 1, 2: 2, 3: 3, 10: 3} {
		got := Adjust(c, Options{MaxClips: k})
		if len(got) != wantLen {
			t.Fatalf("k=%d: len %d, want %d", k, len(got), wantLen)
		}
		for i := range got {
			if got[i].Source != c[i].Source {
				t.Fatalf("k=%d: order changed at %d", k, i)
			}
		}
	}
}

func TestAdjust_ShuffleAfterTruncate(t *testing.T) {
	var c types.Composition
	for i := 0; i < 50; i++ {
		c = append(c, seg(string(rune('a'+i%26)), float64(i), float64(i)+1))
	}
	got := Adjust(c, Options{MaxClips: 10, Randomize: true, Rand: rand.New(rand.NewSource(7))})
	if len(got) != 10 {
		t.Fatalf("len %d, want 10", len(got))
	}
	seen := map[float64]bool{}
	for _, s := range got {
		if s.Start >= 10 {
			t.Fatalf("segment %+v is not one of the first 10", s)
		}
		seen[s.Start] = true
	}
	if len(seen) != 10 {
		t.Fatalf("shuffle lost segments: %+v", got)
	}
}

func TestCorrectOverlaps(t *testing.T) {
	tests := []struct {
		name        string
		in          types.Composition
		padding     float64
		want        types.Composition
		wantDropped []int
	}{
		{
			name:    "advance by padding",
			in:      types.Composition{seg("a", 0, 3), seg("a", 2.8, 5)},
			padding: 0.5,
			want:    types.Composition{seg("a", 0, 3), seg("a", 3.3, 5)},
		},
		{
			name:    "clamped to predecessor end",
			in:      types.Composition{seg("a", 0, 3), seg("a", 1, 5)},
			padding: 0.5,
			want:    types.Composition{seg("a", 0, 3), seg("a", 3, 5)},
		},
		{
			name:    "different files untouched",
			in:      types.Composition{seg("a", 0, 3), seg("b", 1, 5)},
			padding: 0.5,
			want:    types.Composition{seg("a", 0, 3), seg("b", 1, 5)},
		},
		{
			name:    "cascade uses corrected predecessor",
			in:      types.Composition{seg("a", 0, 2), seg("a", 1.5, 4), seg("a", 3.9, 6)},
			padding: 0.2,
			want:    types.Composition{seg("a", 0, 2), seg("a", 2, 4), seg("a", 4.1, 6)},
		},
		{
			name:        "swallowed segment dropped",
			in:          types.Composition{seg("a", 0, 10), seg("a", 2, 5), seg("b", 0, 1)},
			padding:     0.5,
			want:        types.Composition{seg("a", 0, 10), seg("b", 0, 1)},
			wantDropped: []int{1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, dropped := CorrectOverlaps(tt.in, tt.padding)
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i].Source != tt.want[i].Source ||
					math.Abs(got[i].Start-tt.want[i].Start) > 1e-9 ||
					math.Abs(got[i].End-tt.want[i].End) > 1e-9 {
					t.Fatalf("seg %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
			if !reflect.DeepEqual(dropped, tt.wantDropped) {
				t.Fatalf("dropped = %v, want %v", dropped, tt.wantDropped)
			}
		})
	}
}

func TestCorrectOverlaps_NextStartsAfterPrevEnd(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for trial := 0; trial < 200; trial++ {
		var c types.Composition
		for i := 0; i < 20; i++ {
			start := r.Float64() * 30
			c = append(c, seg([]string{"a", "b"}[r.Intn(2)], start, start+0.1+r.Float64()*5))
		}
		padding := r.Float64()
		got, _ := CorrectOverlaps(Adjust(c, Options{Padding: padding}), padding)
		for i := 1; i < len(got); i++ {
			if got[i].Source == got[i-1].Source && got[i].Start < got[i-1].End {
				t.Fatalf("trial %d: seg %d starts at %v before predecessor end %v", trial, i, got[i].Start, got[i-1].End)
			}
		}
	}
}

func TestDemoLines(t *testing.T) {
	got := DemoLines(types.Composition{{Source: "a", Text: "hello world", Start: 1, End: 2.456}})
	if len(got) != 1 || got[0] != "1.00 to 2.46:\thello world" {
		t.Fatalf("unexpected demo lines %q", got)
	}
}

func TestBatches(t *testing.T) {
	var c types.Composition
	for i := 0; i < 25; i++ {
		c = append(c, seg("a", float64(i), float64(i)+1))
	}
	b := Batches(c, 20)
	if len(b) != 2 || len(b[0]) != 20 || len(b[1]) != 5 {
		t.Fatalf("unexpected batch sizes %d", len(b))
	}
	if b[1][0].Start != 20 {
		t.Fatalf("second batch starts at %+v", b[1][0])
	}
	if got := Batches(c[:20], 20); len(got) != 1 {
		t.Fatalf("composition at threshold should be one batch, got %d", len(got))
	}
}
