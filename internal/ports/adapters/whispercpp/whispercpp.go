package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

// Adapter runs the whisper.cpp CLI with one word per output segment, which
// is how whisper.cpp exposes word timings.
type Adapter struct {
	bin      string
	model    string
	language string
}

// New builds an adapter. language is a BCP-47 tag such as "en-US"; whisper
// only gets the primary subtag. Empty means auto-detect.
func New(binPath, modelPath, language string) *Adapter {
	lang, _, _ := strings.Cut(strings.TrimSpace(language), "-")
	return &Adapter{bin: binPath, model: modelPath, language: strings.ToLower(lang)}
}

func (a *Adapter) args(wavPath, outPrefix string) []string {
	args := []string{
		"-m", a.model,
		"-f", wavPath,
		"-oj",
		"-of", outPrefix,
		"-ml", "1",
		"-sow",
	}
	if a.language != "" {
		args = append(args, "-l", a.language)
	}
	return args
}

func (a *Adapter) Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error) {
	outPrefix := filepath.Join(cacheDir, "whisper")
	cmd := exec.CommandContext(ctx, a.bin, a.args(wavPath, outPrefix)...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return types.Transcript{}, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return types.Transcript{}, err
	}
	return decode(jb)
}

type output struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// decode turns whisper's per-word JSON into sentences. A word ending in
// terminal punctuation closes the current sentence.
func decode(jb []byte) (types.Transcript, error) {
	var out output
	if err := json.Unmarshal(jb, &out); err != nil {
		return types.Transcript{}, fmt.Errorf("decode whisper json: %w", err)
	}

	var tr types.Transcript
	var cur types.TranscriptSegment
	flush := func() {
		if len(cur.Words) == 0 {
			return
		}
		texts := make([]string, len(cur.Words))
		for i, w := range cur.Words {
			texts[i] = w.Text
		}
		cur.Start = cur.Words[0].Start
		cur.End = cur.Words[len(cur.Words)-1].End
		cur.Text = strings.Join(texts, " ")
		tr.Segments = append(tr.Segments, cur)
		cur = types.TranscriptSegment{}
	}

	for _, item := range out.Transcription {
		text := strings.TrimSpace(item.Text)
		if text == "" || isSpecial(text) || item.Offsets.To < item.Offsets.From {
			continue
		}
		cur.Words = append(cur.Words, types.Word{
			Start: float64(item.Offsets.From) / 1000,
			End:   float64(item.Offsets.To) / 1000,
			Text:  text,
		})
		if strings.ContainsAny(text[len(text)-1:], ".?!") {
			flush()
		}
	}
	flush()
	return tr, nil
}

// isSpecial reports whisper's bracketed non-speech tokens like [BLANK_AUDIO].
func isSpecial(text string) bool {
	return (strings.HasPrefix(text, "[") && strings.HasSuffix(text, "]")) ||
		(strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")"))
}
