package tracks

import (
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

var (
	reIndexLine = regexp.MustCompile(`^\d+$`)
	reCueTime   = regexp.MustCompile(`^(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})$`)
)

// ParseCues reads an SRT document into one TextSpan per cue, in file order.
func ParseCues(r io.Reader, source string) ([]types.TextSpan, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read cues: %w", err)
	}
	lines := splitLines(string(b))

	var (
		out   []types.TextSpan
		cur   *cueBuf
		parts []string
	)
	flush := func() {
		if cur == nil {
			return
		}
		text := plainText(strings.Join(parts, " "))
		if text != "" && cur.end > cur.start {
			out = append(out, types.TextSpan{Text: text, Start: cur.start, End: cur.end, Source: source})
		}
		cur, parts = nil, nil
	}

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.Contains(line, "-->") {
			flush()
			start, end, err := ParseCueRange(line)
			if err != nil {
				// text up to the next valid range has nowhere to go
				continue
			}
			cur = &cueBuf{start: start, end: end}
			continue
		}
		if reIndexLine.MatchString(line) && isIndex(lines, i) {
			continue
		}
		if cur != nil {
			parts = append(parts, line)
		}
	}
	flush()
	return out, nil
}

type cueBuf struct {
	start float64
	end   float64
}

// ParseCueRange parses "00:00:01,000 --> 00:00:02,500", ignoring trailing cue settings.
func ParseCueRange(line string) (float64, float64, error) {
	left, right, ok := strings.Cut(line, "-->")
	if !ok {
		return 0, 0, fmt.Errorf("cue range %q: missing arrow", line)
	}
	start, err := ParseCueTime(left)
	if err != nil {
		return 0, 0, err
	}
	fields := strings.Fields(right)
	if len(fields) == 0 {
		return 0, 0, fmt.Errorf("cue range %q: missing end", line)
	}
	end, err := ParseCueTime(fields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseCueTime converts HH:MM:SS,mmm (or with a dot) to seconds.
func ParseCueTime(ts string) (float64, error) {
	m := reCueTime.FindStringSubmatch(strings.TrimSpace(ts))
	if m == nil {
		return 0, fmt.Errorf("cue time %q: unrecognized format", strings.TrimSpace(ts))
	}
	h, _ := strconv.Atoi(m[1])
	mn, _ := strconv.Atoi(m[2])
	s, _ := strconv.Atoi(m[3])
	if mn > 59 || s > 59 {
		return 0, fmt.Errorf("cue time %q: out of range", strings.TrimSpace(ts))
	}
	ms := m[4]
	for len(ms) < 3 {
		ms += "0"
	}
	millis, _ := strconv.Atoi(ms)
	return float64(h*3600+mn*60+s) + float64(millis)/1000, nil
}

func splitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.Split(s, "\n")
}

// isIndex reports whether the numeric line i is a cue index: it is followed
// by a time range, or it opens a trailing block with nothing after it.
func isIndex(lines []string, i int) bool {
	for j := i + 1; j < len(lines); j++ {
		l := strings.TrimSpace(lines[j])
		if l == "" {
			continue
		}
		return strings.Contains(l, "-->")
	}
	return i > 0 && strings.TrimSpace(lines[i-1]) == ""
}
