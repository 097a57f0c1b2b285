package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) ExtractAudioMono16k(ctx context.Context, inVideo, outWav string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-i", inVideo,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-f", "wav",
		outWav,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg extract audio: %w\n%s", err, string(b))
	}
	return nil
}

// RenderClip re-encodes [start, end) of inVideo. A negative start is read
// from the beginning of the file.
func (a *Adapter) RenderClip(ctx context.Context, inVideo string, start, end time.Duration, outVideo string) error {
	if start < 0 {
		start = 0
	}
	if end <= start {
		return fmt.Errorf("ffmpeg render clip: empty range %s..%s", start, end)
	}
	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-ss", fmtSeconds(start),
		"-to", fmtSeconds(end),
		"-i", inVideo,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-crf", "18",
		"-pix_fmt", "yuv420p",
		"-r", "30",
		"-c:a", "aac",
		"-ar", "44100",
		"-ac", "2",
		"-b:a", "192k",
		outVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg render clip: %w\n%s", err, string(b))
	}
	return nil
}

// Concat joins parts that share one encoding into outVideo without
// re-encoding.
func (a *Adapter) Concat(ctx context.Context, parts []string, outVideo string) error {
	if len(parts) == 0 {
		return errors.New("ffmpeg concat: no parts")
	}
	list, err := os.CreateTemp(filepath.Dir(outVideo), ".concat-*.txt")
	if err != nil {
		return fmt.Errorf("ffmpeg concat list: %w", err)
	}
	defer os.Remove(list.Name())
	if _, err := list.WriteString(concatList(parts)); err != nil {
		list.Close()
		return fmt.Errorf("ffmpeg concat list: %w", err)
	}
	if err := list.Close(); err != nil {
		return fmt.Errorf("ffmpeg concat list: %w", err)
	}

	cmd := exec.CommandContext(ctx, a.ffmpeg,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", list.Name(),
		"-c", "copy",
		outVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg concat: %w\n%s", err, string(b))
	}
	return nil
}

func (a *Adapter) ProbeDuration(ctx context.Context, inVideo string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		inVideo,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return sec, nil
}

type probeStreams struct {
	Streams []struct {
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
	} `json:"streams"`
}

func (a *Adapter) ProbeFPS(ctx context.Context, inVideo string) (float64, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate,avg_frame_rate",
		"-of", "json",
		inVideo,
	)
	b, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe fps: %w", err)
	}
	return parseProbeFPS(b)
}

func parseProbeFPS(b []byte) (float64, error) {
	var ps probeStreams
	if err := json.Unmarshal(b, &ps); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(ps.Streams) == 0 {
		return 0, errors.New("no video stream")
	}
	s := ps.Streams[0]
	if fps, err := parseRate(s.AvgFrameRate); err == nil {
		return fps, nil
	}
	return parseRate(s.RFrameRate)
}

// parseRate reads ffprobe rates such as "30000/1001" or "25".
func parseRate(s string) (float64, error) {
	num, den, ok := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
	}
	d := 1.0
	if ok {
		d, err = strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("parse frame rate %q: %w", s, err)
		}
	}
	if n <= 0 || d <= 0 {
		return 0, fmt.Errorf("parse frame rate %q: not positive", s)
	}
	return n / d, nil
}

func concatList(parts []string) string {
	var b strings.Builder
	for _, p := range parts {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(p, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String()
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
