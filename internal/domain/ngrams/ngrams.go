package ngrams

import (
	"regexp"
	"sort"
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

var reSplit = regexp.MustCompile(`[.?!,:"]+\s*|\s+`)

type Gram struct {
	Words []string
	Count int
}

func (g Gram) String() string { return strings.Join(g.Words, " ") }

// Words flattens tracks into a word stream. Tracks with per-word timing
// contribute their words; cue tracks are split on punctuation and spaces.
func Words(tracks []types.Track) []string {
	var out []string
	for _, t := range tracks {
		if t.Kind == types.TrackCues {
			var b strings.Builder
			for _, s := range t.Spans {
				b.WriteString(strings.TrimSpace(s.Text))
				b.WriteByte(' ')
			}
			for _, w := range reSplit.Split(b.String(), -1) {
				if w != "" {
					out = append(out, w)
				}
			}
			continue
		}
		for _, s := range t.Spans {
			for _, w := range s.Words {
				out = append(out, w.Text)
			}
		}
	}
	return out
}

// MostCommon counts every run of n consecutive words and returns the limit
// most frequent. Ties keep first-seen order.
func MostCommon(words []string, n, limit int) []Gram {
	if n <= 0 || len(words) < n {
		return nil
	}
	index := make(map[string]int)
	var grams []Gram
	for i := 0; i+n <= len(words); i++ {
		key := strings.Join(words[i:i+n], "\x00")
		if j, ok := index[key]; ok {
			grams[j].Count++
			continue
		}
		index[key] = len(grams)
		grams = append(grams, Gram{Words: append([]string(nil), words[i:i+n]...), Count: 1})
	}
	sort.SliceStable(grams, func(i, j int) bool { return grams[i].Count > grams[j].Count })
	if limit > 0 && len(grams) > limit {
		grams = grams[:limit]
	}
	return grams
}
