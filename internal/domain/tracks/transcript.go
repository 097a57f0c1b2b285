package tracks

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

// TranscriptSuffix is appended to a video path to name its transcript.
const TranscriptSuffix = ".transcription.txt"

var reAltPron = regexp.MustCompile(`\(\d+\)$`)

// ParseTranscript reads a word-timed transcript ("word start end [confidence]"
// per line, sentences bracketed by <s> and </s>) into one TextSpan per sentence.
func ParseTranscript(r io.Reader, source string) ([]types.TextSpan, error) {
	var (
		out   []types.TextSpan
		words []types.Word
	)
	flush := func() {
		if len(words) == 0 {
			return
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
		words = nil
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	n := 0
	for sc.Scan() {
		n++
		f := strings.Fields(sc.Text())
		if len(f) == 0 {
			continue
		}
		switch f[0] {
		case "<s>", "</s>":
			flush()
			continue
		}
		if isFiller(f[0]) {
			continue
		}
		if len(f) < 3 {
			return nil, fmt.Errorf("transcript line %d: want \"word start end\", got %q", n, sc.Text())
		}
		start, err := strconv.ParseFloat(f[1], 64)
		if err != nil {
			return nil, fmt.Errorf("transcript line %d: start: %w", n, err)
		}
		end, err := strconv.ParseFloat(f[2], 64)
		if err != nil {
			return nil, fmt.Errorf("transcript line %d: end: %w", n, err)
		}
		if end <= start {
			continue
		}
		words = append(words, types.Word{Text: reAltPron.ReplaceAllString(f[0], ""), Start: start, End: end})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	flush()
	return out, nil
}

func isFiller(w string) bool {
	if strings.HasPrefix(w, "<") && strings.HasSuffix(w, ">") {
		return true
	}
	if strings.HasPrefix(w, "[") && strings.HasSuffix(w, "]") {
		return true
	}
	if strings.HasPrefix(w, "++") && strings.HasSuffix(w, "++") {
		return true
	}
	return false
}

// WriteTranscript writes tr in the format ParseTranscript reads. Segments
// without word timings get their words spread evenly over the segment.
func WriteTranscript(w io.Writer, tr types.Transcript) error {
	bw := bufio.NewWriter(w)
	for _, seg := range tr.Segments {
		words := seg.Words
		if len(words) == 0 && seg.End > seg.Start {
			words = interpolateWords(strings.TrimSpace(seg.Text), seg.Start, seg.End)
		}
		var lines []string
		for _, wd := range words {
			text := strings.Join(strings.Fields(wd.Text), "_")
			if text == "" || wd.End <= wd.Start {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s %s %s", text, ftoa(wd.Start), ftoa(wd.End)))
		}
		if len(lines) == 0 {
			continue
		}
		fmt.Fprintf(bw, "<s> %s %s\n", ftoa(seg.Start), ftoa(seg.Start))
		for _, l := range lines {
			bw.WriteString(l)
			bw.WriteByte('\n')
		}
		fmt.Fprintf(bw, "</s> %s %s\n", ftoa(seg.End), ftoa(seg.End))
	}
	return bw.Flush()
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', 3, 64) }
