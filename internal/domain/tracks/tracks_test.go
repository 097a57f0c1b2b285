package tracks

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/forPelevin/supercut/internal/types"
)

const sampleSRT = "1\n" +
	"00:00:01,000 --> 00:00:02,000\n" +
	"hello world\n" +
	"\n" +
	"2\n" +
	"00:00:03,000 --> 00:00:04,000\n" +
	"something else\n" +
	"\n" +
	"3\n" +
	"00:00:05,000 --> 00:00:06,500\n" +
	"hello\n" +
	"there\n"

func TestParseCues_Scenario(t *testing.T) {
	spans, err := ParseCues(strings.NewReader(sampleSRT), "a.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []types.TextSpan{
		{Text: "hello world", Start: 1, End: 2, Source: "a.mp4"},
		{Text: "something else", Start: 3, End: 4, Source: "a.mp4"},
		{Text: "hello there", Start: 5, End: 6.5, Source: "a.mp4"},
	}
	if !reflect.DeepEqual(spans, want) {
		t.Fatalf("spans = %+v\nwant %+v", spans, want)
	}
}

func TestParseCues_Idempotent(t *testing.T) {
	a, err := ParseCues(strings.NewReader(sampleSRT), "a.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := ParseCues(strings.NewReader(sampleSRT), "a.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("parsing twice differs:\n%+v\n%+v", a, b)
	}
	for _, s := range a {
		for _, idx := range []string{"1", "2", "3"} {
			if strings.HasPrefix(s.Text, idx+" ") || s.Text == idx {
				t.Fatalf("index line leaked into text: %q", s.Text)
			}
		}
	}
}

func TestParseCues_LineEndings(t *testing.T) {
	crlf := strings.ReplaceAll(sampleSRT, "\n", "\r\n")
	cr := strings.ReplaceAll(sampleSRT, "\n", "\r")
	mixed := strings.Replace(sampleSRT, "\n", "\r\n", 4)

	want, _ := ParseCues(strings.NewReader(sampleSRT), "a.mp4")
	for name, doc := range map[string]string{"crlf": crlf, "cr": cr, "mixed": mixed} {
		t.Run(name, func(t *testing.T) {
			got, err := ParseCues(strings.NewReader(doc), "a.mp4")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("got %+v, want %+v", got, want)
			}
		})
	}
}

func TestParseCues_EdgeCases(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []string
	}{
		{
			name: "text before first range dropped",
			doc:  "stray text\n1\n00:00:01,000 --> 00:00:02,000\nkept\n",
			want: []string{"kept"},
		},
		{
			name: "bad range stops association",
			doc:  "1\n00:00:01,000 --> 00:00:02,000\nfirst\n\n2\n00:00:xx,000 --> 00:00:04,000\norphan\n\n3\n00:00:05,000 --> 00:00:06,000\nthird\n",
			want: []string{"first", "third"},
		},
		{
			name: "identical ranges stay distinct",
			doc:  "1\n00:00:01,000 --> 00:00:02,000\nleft\n\n2\n00:00:01,000 --> 00:00:02,000\nright\n",
			want: []string{"left", "right"},
		},
		{
			name: "numbers inside text survive",
			doc:  "1\n00:00:01,000 --> 00:00:02,000\nthe year was\n1984\n\n2\n00:00:03,000 --> 00:00:04,000\nnext\n",
			want: []string{"the year was 1984", "next"},
		},
		{
			name: "numeric last cue survives",
			doc:  "1\n00:00:01,000 --> 00:00:02,000\nthe answer is\n\n2\n00:00:03,000 --> 00:00:04,000\n42\n",
			want: []string{"the answer is", "42"},
		},
		{
			name: "dangling index at end dropped",
			doc:  "1\n00:00:01,000 --> 00:00:02,000\nlast words\n\n2\n",
			want: []string{"last words"},
		},
		{
			name: "markup stripped",
			doc:  "1\n00:00:01,000 --> 00:00:02,000\n<i>hello</i> <font color=\"#fff\">world</font> &amp; more\n",
			want: []string{"hello world & more"},
		},
		{
			name: "degenerate cue discarded",
			doc:  "1\n00:00:02,000 --> 00:00:02,000\nzero\n\n2\n00:00:03,000 --> 00:00:01,000\nbackwards\n",
			want: nil,
		},
		{
			name: "cue settings ignored",
			doc:  "1\n00:00:01.5 --> 00:00:02.250 X1:40 X2:600\nok\n",
			want: []string{"ok"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spans, err := ParseCues(strings.NewReader(tt.doc), "v.mp4")
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			var got []string
			for _, s := range spans {
				got = append(got, s.Text)
				if s.End <= s.Start {
					t.Fatalf("degenerate span %+v", s)
				}
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("texts = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseCueTime(t *testing.T) {
	tests := map[string]float64{
		"00:00:01,000": 1,
		"01:02:03,456": 3723.456,
		"00:00:00.5":   0.5,
		" 10:00:00,07": 36000.07,
	}
	for in, want := range tests {
		got, err := ParseCueTime(in)
		if err != nil {
			t.Fatalf("ParseCueTime(%q): %v", in, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("ParseCueTime(%q) = %v, want %v", in, got, want)
		}
	}
	for _, bad := range []string{"", "1:2", "00:61:00,000", "aa:bb:cc,ddd"} {
		if _, err := ParseCueTime(bad); err == nil {
			t.Fatalf("ParseCueTime(%q): expected error", bad)
		}
	}
}

func TestParseCaptions_Plain(t *testing.T) {
	doc := "WEBVTT\n\n00:00:01.000 --> 00:00:03.000\nhello <b>big</b> world\n\n00:00:04.000 --> 00:00:05.000\nbye\n"
	spans, err := ParseCaptions(strings.NewReader(doc), "v.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %+v", spans)
	}
	if spans[0].Text != "hello big world" || spans[0].Start != 1 || spans[0].End != 3 {
		t.Fatalf("unexpected first span %+v", spans[0])
	}
	words := spans[0].Words
	if len(words) != 3 {
		t.Fatalf("expected 3 interpolated words, got %+v", words)
	}
	for i, w := range words {
		if w.Start < 1 || w.End > 3 || w.End <= w.Start {
			t.Fatalf("word %d out of cue bounds: %+v", i, w)
		}
		if i > 0 && w.Start < words[i-1].End {
			t.Fatalf("word %d overlaps previous: %+v", i, w)
		}
	}
}

func TestParseCaptions_AutoGenerated(t *testing.T) {
	doc := "WEBVTT\nKind: captions\nLanguage: en\n\n" +
		"00:00:00.000 --> 00:00:02.000 align:start position:0%\n" +
		" \n" +
		"hello<00:00:00.500><c> world</c><00:00:01.200><c> again</c>\n" +
		"\n" +
		"00:00:02.000 --> 00:00:02.010 align:start position:0%\n" +
		"hello world again\n" +
		" \n" +
		"\n" +
		"00:00:02.010 --> 00:00:04.000 align:start position:0%\n" +
		"hello world again\n" +
		"next<00:00:02.500><c> line</c>\n"

	spans, err := ParseCaptions(strings.NewReader(doc), "v.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 timed spans, got %+v", spans)
	}
	want := []types.Word{
		{Text: "hello", Start: 0, End: 0.5},
		{Text: "world", Start: 0.5, End: 1.2},
		{Text: "again", Start: 1.2, End: 2},
	}
	if !reflect.DeepEqual(spans[0].Words, want) {
		t.Fatalf("words = %+v, want %+v", spans[0].Words, want)
	}
	if spans[0].Text != "hello world again" {
		t.Fatalf("unexpected text %q", spans[0].Text)
	}
	if spans[1].Text != "next line" || spans[1].Start != 2.01 || spans[1].End != 4 {
		t.Fatalf("unexpected second span %+v", spans[1])
	}
}

func TestTranscript_WriteThenParse(t *testing.T) {
	tr := types.Transcript{Segments: []types.TranscriptSegment{
		{Start: 0, End: 2, Text: "hello world", Words: []types.Word{
			{Start: 0.1, End: 0.6, Text: "hello"},
			{Start: 0.7, End: 1.5, Text: "world"},
		}},
		{Start: 3, End: 4, Text: "no word timing"},
		{Start: 5, End: 5, Text: ""},
	}}
	var buf bytes.Buffer
	if err := WriteTranscript(&buf, tr); err != nil {
		t.Fatalf("write: %v", err)
	}
	spans, err := ParseTranscript(&buf, "v.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("expected 2 sentences, got %+v", spans)
	}
	if spans[0].Text != "hello world" || spans[0].Start != 0.1 || spans[0].End != 1.5 {
		t.Fatalf("unexpected first sentence %+v", spans[0])
	}
	if spans[1].Text != "no word timing" || len(spans[1].Words) != 3 {
		t.Fatalf("unexpected second sentence %+v", spans[1])
	}
}

func TestParseTranscript_FillersAndAlternates(t *testing.T) {
	doc := "<s> 0.00 0.00\n<sil> 0.00 0.20 1.0\nhello(2) 0.20 0.50 0.9\n[NOISE] 0.50 0.60\nthere 0.60 0.90 0.8\n</s> 0.90 0.90\n"
	spans, err := ParseTranscript(strings.NewReader(doc), "v.mp4")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(spans) != 1 || spans[0].Text != "hello there" {
		t.Fatalf("unexpected spans %+v", spans)
	}
	if _, err := ParseTranscript(strings.NewReader("hello 0.1\n"), "v.mp4"); err == nil {
		t.Fatalf("expected error for short line")
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	touch := func(name string) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}
	a := touch("a.mp4")
	aSrt := touch("a.srt")
	b := touch("b.mkv")
	touch("b.en.vtt")
	c := touch("c.mov")
	touch("c.mov" + TranscriptSuffix)
	orphan := touch("orphan.srt")

	t.Run("srt", func(t *testing.T) {
		d, err := Discover([]string{a, b, orphan}, types.TrackCues)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(d.Tracks) != 1 || d.Tracks[0].Path != aSrt || d.Tracks[0].Source != a {
			t.Fatalf("unexpected tracks %+v", d.Tracks)
		}
		if len(d.Skipped) != 2 {
			t.Fatalf("expected b and orphan skipped, got %+v", d.Skipped)
		}
	})

	t.Run("track file passed directly", func(t *testing.T) {
		d, err := Discover([]string{aSrt}, types.TrackCues)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if d.Tracks[0].Source != a {
			t.Fatalf("expected video %s, got %+v", a, d.Tracks[0])
		}
	})

	t.Run("folder vtt", func(t *testing.T) {
		d, err := Discover([]string{dir}, types.TrackCaptions)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if len(d.Tracks) != 1 || d.Tracks[0].Source != b {
			t.Fatalf("unexpected tracks %+v", d.Tracks)
		}
	})

	t.Run("transcript", func(t *testing.T) {
		d, err := Discover([]string{c + TranscriptSuffix}, types.TrackTranscript)
		if err != nil {
			t.Fatalf("discover: %v", err)
		}
		if d.Tracks[0].Source != c {
			t.Fatalf("unexpected source %+v", d.Tracks[0])
		}
	})

	t.Run("videos", func(t *testing.T) {
		got, skipped := Videos([]string{dir, aSrt, filepath.Join(dir, "missing.mp4")})
		if len(got) != 3 || got[0] != a || got[1] != b || got[2] != c {
			t.Fatalf("unexpected videos %q", got)
		}
		if len(skipped) != 2 {
			t.Fatalf("expected srt and missing input skipped, got %+v", skipped)
		}
	})

	t.Run("nothing found", func(t *testing.T) {
		_, err := Discover([]string{b, filepath.Join(dir, "missing.mp4")}, types.TrackCues)
		if !errors.Is(err, ErrNoTracks) {
			t.Fatalf("err = %v, want ErrNoTracks", err)
		}
	})
}
