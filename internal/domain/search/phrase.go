package search

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

type located struct {
	types.Word
	source string
}

func wordStream(t types.Track) []located {
	var out []located
	for _, s := range t.Spans {
		for _, w := range s.Words {
			out = append(out, located{Word: w, source: s.Source})
		}
	}
	return out
}

func compileQuery(query string) ([]*regexp.Regexp, error) {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return nil, errors.New("search term is empty")
	}
	out := make([]*regexp.Regexp, 0, len(fields))
	for _, f := range fields {
		re, err := regexp.Compile(`(?i)^(?:` + f + `)$`)
		if err != nil {
			return nil, fmt.Errorf("search pattern %q: %w", f, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func normWord(s string) string {
	return strings.TrimFunc(s, func(r rune) bool { return strings.ContainsRune(".,?!:;\"", r) })
}

// Fragment finds runs of consecutive words matching every query word in
// order. Each run becomes one segment from its first word start to its last
// word end. Runs never cross tracks.
func Fragment(tracks []types.Track, query string) (types.Composition, error) {
	q, err := compileQuery(query)
	if err != nil {
		return nil, err
	}
	var out types.Composition
	for _, t := range tracks {
		words := wordStream(t)
	scan:
		for i := 0; i+len(q) <= len(words); i++ {
			for j, re := range q {
				if !re.MatchString(normWord(words[i+j].Text)) {
					continue scan
				}
			}
			run := words[i : i+len(q)]
			texts := make([]string, len(run))
			for j, w := range run {
				texts[j] = w.Text
			}
			out = append(out, types.Segment{
				Source: run[0].source,
				Text:   strings.Join(texts, " "),
				Start:  run[0].Start,
				End:    run[len(run)-1].End,
			})
			i += len(q) - 1
		}
	}
	return out, nil
}

// Franken assembles the query out of single words: for each query word, the
// first matching word across all tracks. Query words with no match are
// skipped.
func Franken(tracks []types.Track, query string) (types.Composition, error) {
	q, err := compileQuery(query)
	if err != nil {
		return nil, err
	}
	streams := make([][]located, len(tracks))
	for i, t := range tracks {
		streams[i] = wordStream(t)
	}
	var out types.Composition
	for _, re := range q {
	find:
		for _, words := range streams {
			for _, w := range words {
				if re.MatchString(normWord(w.Text)) {
					out = append(out, types.Segment{Source: w.source, Text: w.Text, Start: w.Start, End: w.End})
					break find
				}
			}
		}
	}
	return out, nil
}

// Assemble dispatches the phrase modes.
func Assemble(mode Mode, tracks []types.Track, query string) (types.Composition, error) {
	switch mode {
	case ModeFragment:
		return Fragment(tracks, query)
	case ModeFranken:
		return Franken(tracks, query)
	}
	return nil, fmt.Errorf("%w %q for phrase assembly", ErrUnknownMode, mode)
}
