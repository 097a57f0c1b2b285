package ports

import (
	"context"
	"time"

	"github.com/forPelevin/supercut/internal/types"
)

// MediaTool cuts, joins and inspects video files. Probe results are in
// seconds and frames per second.
type MediaTool interface {
	ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error
	RenderClip(ctx context.Context, inVideo string, start, end time.Duration, outVideo string) error
	Concat(ctx context.Context, parts []string, outVideo string) error
	ProbeFPS(ctx context.Context, inVideo string) (float64, error)
	ProbeDuration(ctx context.Context, inVideo string) (float64, error)
}

type ASR interface {
	Transcribe(ctx context.Context, wavPath, cacheDir string) (types.Transcript, error)
}

// Lexicon annotates text for part-of-speech and hypernym searches.
type Lexicon interface {
	Tag(ctx context.Context, text string) ([]types.TaggedToken, error)
	Hypernyms(ctx context.Context, word string) ([]string, error)
}
