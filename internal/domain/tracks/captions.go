package tracks

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/asticode/go-astisub"

	"github.com/forPelevin/supercut/internal/types"
)

var reInlineTime = regexp.MustCompile(`<(\d{2}:\d{2}:\d{2}\.\d{3})>`)

// ParseCaptions reads a WebVTT track. Auto-generated captions carrying inline
// word timestamps yield exact word timings; other captions get word timings
// interpolated across the cue.
func ParseCaptions(r io.Reader, source string) ([]types.TextSpan, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read captions: %w", err)
	}
	if reInlineTime.Match(b) {
		return parseTimedCaptions(string(b), source), nil
	}

	st, err := astisub.ReadFromWebVTT(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("parse webvtt: %w", err)
	}
	out := make([]types.TextSpan, 0, len(st.Items))
	for _, it := range st.Items {
		start, end := it.StartAt.Seconds(), it.EndAt.Seconds()
		if end <= start {
			continue
		}
		var parts []string
		for _, ln := range it.Lines {
			for _, li := range ln.Items {
				parts = append(parts, li.Text)
			}
		}
		text := plainText(strings.Join(parts, " "))
		if text == "" {
			continue
		}
		out = append(out, types.TextSpan{
			Text:   text,
			Start:  start,
			End:    end,
			Source: source,
			Words:  interpolateWords(text, start, end),
		})
	}
	return out, nil
}

// parseTimedCaptions keeps only the lines that carry inline timestamps; the
// untimed lines of rolling auto captions repeat text already seen.
func parseTimedCaptions(doc, source string) []types.TextSpan {
	var (
		out      []types.TextSpan
		inCue    bool
		cueStart float64
		cueEnd   float64
	)
	for _, raw := range splitLines(doc) {
		line := strings.TrimSpace(raw)
		if strings.Contains(line, "-->") {
			start, end, err := ParseCueRange(line)
			inCue = err == nil
			cueStart, cueEnd = start, end
			continue
		}
		if !inCue || !reInlineTime.MatchString(line) {
			continue
		}
		words := decodeTimedLine(line, cueStart, cueEnd)
		if len(words) == 0 {
			continue
		}
		texts := make([]string, len(words))
		for i, w := range words {
			texts[i] = w.Text
		}
		out = append(out, types.TextSpan{
			Text:   strings.Join(texts, " "),
			Start:  words[0].Start,
			End:    words[len(words)-1].End,
			Source: source,
			Words:  words,
		})
	}
	return out
}

func decodeTimedLine(line string, cueStart, cueEnd float64) []types.Word {
	idx := reInlineTime.FindAllStringSubmatchIndex(line, -1)
	texts := []string{plainText(line[:idx[0][0]])}
	starts := []float64{cueStart}
	for k, m := range idx {
		ts, err := ParseCueTime(line[m[2]:m[3]])
		if err != nil {
			ts = starts[len(starts)-1]
		}
		stop := len(line)
		if k+1 < len(idx) {
			stop = idx[k+1][0]
		}
		texts = append(texts, plainText(line[m[1]:stop]))
		starts = append(starts, ts)
	}

	var out []types.Word
	for i, text := range texts {
		if text == "" {
			continue
		}
		end := cueEnd
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		if end <= starts[i] {
			continue
		}
		out = append(out, types.Word{Text: text, Start: starts[i], End: end})
	}
	return out
}

// interpolateWords spreads the cue duration over its tokens by character offset.
func interpolateWords(text string, start, end float64) []types.Word {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return nil
	}
	dur := end - start
	fields := strings.Fields(text)
	out := make([]types.Word, 0, len(fields))
	pos := 0
	for _, f := range fields {
		n := utf8.RuneCountInString(f)
		out = append(out, types.Word{
			Text:  f,
			Start: start + dur*float64(pos)/float64(total),
			End:   start + dur*float64(pos+n)/float64(total),
		})
		pos += n + 1
	}
	return out
}
