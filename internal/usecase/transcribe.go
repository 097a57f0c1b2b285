package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/forPelevin/supercut/internal/domain/ngrams"
	"github.com/forPelevin/supercut/internal/domain/tracks"
	"github.com/forPelevin/supercut/internal/types"
)

// TranscribeJob is one video and its private cache directory.
type TranscribeJob struct {
	Video    string
	CacheDir string
}

type TranscribeInput struct {
	Jobs  []TranscribeJob
	Limit int
	Force bool
}

type TranscribeReport struct {
	Written []string
	Skipped []string
	Failed  []string
}

// Transcribe writes <video>.transcription.txt for every job, running at
// most Limit jobs at once. Existing transcripts are kept unless Force is
// set. A failing video is logged and reported; the call fails only when
// every job failed or the context ended.
func (u Usecase) Transcribe(ctx context.Context, in TranscribeInput) (TranscribeReport, error) {
	var (
		mu  sync.Mutex
		rep TranscribeReport
	)
	g, gctx := errgroup.WithContext(ctx)
	if in.Limit > 0 {
		g.SetLimit(in.Limit)
	}
	for _, job := range in.Jobs {
		job := job
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			log := u.d.Log.With("video", job.Video)
			out := job.Video + tracks.TranscriptSuffix
			if !in.Force {
				if _, err := os.Stat(out); err == nil {
					log.Info("transcript exists, skipping")
					mu.Lock()
					rep.Skipped = append(rep.Skipped, out)
					mu.Unlock()
					return nil
				}
			}
			err := u.transcribeOne(gctx, job, out)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Error("transcription failed", "error", err)
				rep.Failed = append(rep.Failed, job.Video)
				return nil
			}
			log.Info("transcript written", "file", out)
			rep.Written = append(rep.Written, out)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return rep, err
	}
	if len(in.Jobs) > 0 && len(rep.Failed) == len(in.Jobs) {
		return rep, fmt.Errorf("transcription failed for all %d videos", len(in.Jobs))
	}
	return rep, nil
}

func (u Usecase) transcribeOne(ctx context.Context, job TranscribeJob, out string) error {
	if err := os.MkdirAll(job.CacheDir, 0o755); err != nil {
		return err
	}
	wav := filepath.Join(job.CacheDir, "audio.wav")
	if err := u.d.Media.ExtractAudioMono16k(ctx, job.Video, wav); err != nil {
		return err
	}
	defer os.Remove(wav)

	tr, err := u.d.ASR.Transcribe(ctx, wav, job.CacheDir)
	if err != nil {
		return err
	}
	return writeTranscript(out, tr)
}

// writeTranscript replaces out atomically so a crash never leaves a
// truncated transcript behind.
func writeTranscript(out string, tr types.Transcript) error {
	tmp, err := os.CreateTemp(filepath.Dir(out), ".transcript-*")
	if err != nil {
		return err
	}
	if err := tracks.WriteTranscript(tmp, tr); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), out)
}

// NgramsLimit is the number of n-grams reported.
const NgramsLimit = 100

// Ngrams returns the most common n-word sequences across every usable track.
func (u Usecase) Ngrams(inputs []string, kind types.TrackKind, n int) ([]ngrams.Gram, error) {
	if n <= 0 {
		return nil, fmt.Errorf("n must be > 0, got %d", n)
	}
	loaded, err := u.loadTracks(inputs, kind)
	if err != nil {
		return nil, err
	}
	return ngrams.MostCommon(ngrams.Words(loaded), n, NgramsLimit), nil
}
