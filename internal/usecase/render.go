package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/forPelevin/supercut/internal/domain/composition"
	"github.com/forPelevin/supercut/internal/domain/interchange"
	"github.com/forPelevin/supercut/internal/types"
)

// DefaultBatchSize is the composition length above which rendering switches
// to batches.
const DefaultBatchSize = 20

type RenderInput struct {
	Output    string
	Padding   float64
	BatchSize int
}

type RenderReport struct {
	Clips          int
	Dropped        []int
	SkippedBatches []int
}

// stray per-run logs some encoders leave in the working directory
var strayLogPatterns = []string{"*.ogg.log", "ffmpeg2pass-*.log"}

// Render cuts the composition out of its sources and joins the clips into
// in.Output. Compositions longer than the batch size are rendered batch by
// batch; a failed batch is skipped and reported.
func (u Usecase) Render(ctx context.Context, c types.Composition, in RenderInput) (RenderReport, error) {
	c, dropped := u.correct(c, in.Padding)
	rep := RenderReport{Clips: len(c), Dropped: dropped}
	if len(c) == 0 {
		return rep, errors.New("nothing to render: every segment was dropped")
	}
	size := in.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	workDir, err := makeWorkDir(in.Output)
	if err != nil {
		return rep, err
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			u.d.Log.Warn("could not remove work dir", "dir", workDir, "error", err)
		}
		u.removeStrayLogs(filepath.Dir(in.Output))
	}()

	batches := composition.Batches(c, size)
	if len(batches) == 1 {
		return rep, u.renderBatch(ctx, c, in.Output, workDir)
	}

	u.d.Log.Info("starting batch job", "clips", len(c), "batches", len(batches))
	var parts []string
	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		u.d.Log.Logf("rendering batch %d of %d (%d clips)", i+1, len(batches), len(b))
		part := filepath.Join(workDir, fmt.Sprintf("batch_%04d%s", i, ext(in.Output)))
		if err := u.renderBatch(ctx, b, part, workDir); err != nil {
			u.d.Log.Error("skipping failed batch", "batch", i, "error", err)
			rep.SkippedBatches = append(rep.SkippedBatches, i)
		} else {
			parts = append(parts, part)
		}
		debug.FreeOSMemory()
	}
	if len(parts) == 0 {
		return rep, errors.New("render: every batch failed")
	}
	if err := u.d.Media.Concat(ctx, parts, in.Output); err != nil {
		return rep, fmt.Errorf("join batches: %w", err)
	}
	return rep, nil
}

// renderBatch renders every segment of b into workDir and concatenates them
// into out. Clip files are removed afterwards.
func (u Usecase) renderBatch(ctx context.Context, b types.Composition, out, workDir string) error {
	clips := make([]string, 0, len(b))
	defer func() {
		for _, p := range clips {
			_ = os.Remove(p)
		}
	}()
	for _, s := range b {
		clip := filepath.Join(workDir, "clip_"+uuid.NewString()+ext(out))
		if err := u.d.Media.RenderClip(ctx, s.Source, seconds(s.Start), seconds(s.End), clip); err != nil {
			return fmt.Errorf("cut %s %.2f-%.2f: %w", s.Source, s.Start, s.End, err)
		}
		clips = append(clips, clip)
	}
	return u.d.Media.Concat(ctx, clips, out)
}

// SplitClips writes every segment to its own file next to output, named
// <base>_<00000><ext>. It returns the written paths.
func (u Usecase) SplitClips(ctx context.Context, c types.Composition, output string, padding float64) ([]string, error) {
	c, _ = u.correct(c, padding)
	base := strings.TrimSuffix(output, filepath.Ext(output))
	var out []string
	for i, s := range c {
		p := fmt.Sprintf("%s_%05d%s", base, i, ext(output))
		if err := u.d.Media.RenderClip(ctx, s.Source, seconds(s.Start), seconds(s.End), p); err != nil {
			return out, fmt.Errorf("clip %d: %w", i, err)
		}
		out = append(out, p)
	}
	u.removeStrayLogs(filepath.Dir(output))
	return out, nil
}

// Demo prints the corrected cut list instead of rendering it.
func (u Usecase) Demo(w io.Writer, c types.Composition, padding float64) error {
	c, _ = u.correct(c, padding)
	for _, ln := range composition.DemoLines(c) {
		if _, err := fmt.Fprintln(w, ln); err != nil {
			return err
		}
	}
	return nil
}

// Export writes the composition as an EDL or OTIO file, chosen by the
// extension of output. Overlaps are kept as they are.
func (u Usecase) Export(ctx context.Context, c types.Composition, output string) error {
	timings := interchange.NewTimings(u.d.Media, u.d.Log.Warn)
	f, err := os.Create(output)
	if err != nil {
		return err
	}
	name := filepath.Base(output)
	switch strings.ToLower(filepath.Ext(output)) {
	case ".edl":
		err = interchange.WriteEDL(ctx, f, c, name, timings)
	case ".otio":
		err = interchange.WriteOTIO(ctx, f, c, strings.TrimSuffix(name, filepath.Ext(name)), timings)
	default:
		err = fmt.Errorf("unsupported export format %q", filepath.Ext(output))
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(output)
		return fmt.Errorf("export %s: %w", output, err)
	}
	u.d.Log.Info("exported", "file", output, "clips", len(c))
	return nil
}

func (u Usecase) correct(c types.Composition, padding float64) (types.Composition, []int) {
	out, dropped := composition.CorrectOverlaps(c, padding)
	for _, i := range dropped {
		u.d.Log.Warn("dropping segment swallowed by overlap correction", "index", i, "file", c[i].Source, "line", c[i].Text)
	}
	return out, dropped
}

func (u Usecase) removeStrayLogs(dirs ...string) {
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	for _, dir := range dirs {
		for _, pat := range strayLogPatterns {
			matches, _ := filepath.Glob(filepath.Join(dir, pat))
			for _, m := range matches {
				if err := os.Remove(m); err != nil {
					u.d.Log.Debug("could not remove log file", "file", m, "error", err)
				}
			}
		}
	}
}

func makeWorkDir(output string) (string, error) {
	dir := filepath.Join(filepath.Dir(output), ".supercut-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("work dir: %w", err)
	}
	return dir, nil
}

func ext(output string) string {
	if e := filepath.Ext(output); e != "" {
		return e
	}
	return ".mp4"
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
