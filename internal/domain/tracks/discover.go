package tracks

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/forPelevin/supercut/internal/types"
)

var ErrNoTracks = errors.New("no track files were found for any input")

// VideoExtensions lists the containers accepted as source videos.
var VideoExtensions = []string{".mp4", ".avi", ".mov", ".mkv", ".m4v", ".webm"}

// Skip records an input that was left out and why.
type Skip struct {
	Input  string
	Reason string
}

type Discovery struct {
	Tracks  []types.Track
	Skipped []Skip
}

// Discover resolves every input (video, track file or folder) to a track of
// the given kind. Inputs without a companion track or video are skipped; it is
// an error only when nothing resolves.
func Discover(inputs []string, kind types.TrackKind) (Discovery, error) {
	var d Discovery
	seen := make(map[string]bool)
	for _, in := range inputs {
		paths, err := expand(in)
		if err != nil {
			d.Skipped = append(d.Skipped, Skip{Input: in, Reason: err.Error()})
			continue
		}
		for _, p := range paths {
			tr, reason := resolve(p, kind)
			if reason != "" {
				d.Skipped = append(d.Skipped, Skip{Input: p, Reason: reason})
				continue
			}
			if seen[tr.Path] {
				continue
			}
			seen[tr.Path] = true
			d.Tracks = append(d.Tracks, tr)
		}
	}
	if len(d.Tracks) == 0 {
		return d, ErrNoTracks
	}
	return d, nil
}

// Videos expands inputs (video files or folders) to video paths. Anything
// else is skipped.
func Videos(inputs []string) ([]string, []Skip) {
	var (
		out     []string
		skipped []Skip
	)
	for _, in := range inputs {
		paths, err := expand(in)
		if err != nil {
			skipped = append(skipped, Skip{Input: in, Reason: err.Error()})
			continue
		}
		for _, p := range paths {
			if !IsVideo(p) {
				skipped = append(skipped, Skip{Input: p, Reason: "not a video file"})
				continue
			}
			out = append(out, p)
		}
	}
	return out, skipped
}

// Load reads and parses the track file of t.
func Load(t types.Track) (types.Track, error) {
	f, err := os.Open(t.Path)
	if err != nil {
		return t, err
	}
	defer f.Close()

	switch t.Kind {
	case types.TrackCaptions:
		t.Spans, err = ParseCaptions(f, t.Source)
	case types.TrackTranscript:
		t.Spans, err = ParseTranscript(f, t.Source)
	default:
		t.Spans, err = ParseCues(f, t.Source)
	}
	if err != nil {
		return t, fmt.Errorf("%s: %w", t.Path, err)
	}
	return t, nil
}

func expand(in string) ([]string, error) {
	st, err := os.Stat(in)
	if err != nil {
		return nil, fmt.Errorf("stat input: %w", err)
	}
	if !st.IsDir() {
		return []string{in}, nil
	}
	entries, err := os.ReadDir(in)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsVideo(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(in, e.Name()))
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, errors.New("folder contains no video files")
	}
	return out, nil
}

func resolve(p string, kind types.TrackKind) (types.Track, string) {
	if IsVideo(p) {
		tp := companion(p, kind)
		if tp == "" {
			return types.Track{}, fmt.Sprintf("no %s track found", kind)
		}
		return types.Track{Kind: kind, Path: tp, Source: p}, ""
	}

	// a track file passed directly: find its video
	base, ok := trackBase(p, kind)
	if !ok {
		return types.Track{}, fmt.Sprintf("not a video or %s track", kind)
	}
	video := findVideo(base)
	if video == "" {
		return types.Track{}, "no video file found for track (supported: " + strings.Join(VideoExtensions, ", ") + ")"
	}
	return types.Track{Kind: kind, Path: p, Source: video}, ""
}

func companion(video string, kind types.TrackKind) string {
	base := strings.TrimSuffix(video, filepath.Ext(video))
	switch kind {
	case types.TrackCaptions:
		matches, _ := filepath.Glob(globEscape(base) + "*.vtt")
		sort.Strings(matches)
		if len(matches) > 0 {
			return matches[0]
		}
	case types.TrackTranscript:
		if fileExists(video + TranscriptSuffix) {
			return video + TranscriptSuffix
		}
	default:
		if fileExists(base + ".srt") {
			return base + ".srt"
		}
	}
	return ""
}

func trackBase(p string, kind types.TrackKind) (string, bool) {
	lower := strings.ToLower(p)
	switch kind {
	case types.TrackTranscript:
		if strings.HasSuffix(lower, TranscriptSuffix) {
			// transcripts are named after the full video path
			return strings.TrimSuffix(p, p[len(p)-len(TranscriptSuffix):]), true
		}
	case types.TrackCaptions:
		if strings.HasSuffix(lower, ".vtt") {
			base := strings.TrimSuffix(p, filepath.Ext(p))
			// yt-dlp style language suffix: video.en.vtt
			if ext := filepath.Ext(base); ext != "" && len(ext) <= 6 && !IsVideo(base) {
				base = strings.TrimSuffix(base, ext)
			}
			return base, true
		}
	default:
		if strings.HasSuffix(lower, ".srt") {
			return strings.TrimSuffix(p, filepath.Ext(p)), true
		}
	}
	return "", false
}

func findVideo(base string) string {
	if IsVideo(base) && fileExists(base) {
		return base
	}
	for _, ext := range VideoExtensions {
		if fileExists(base + ext) {
			return base + ext
		}
	}
	return ""
}

// IsVideo reports whether p has one of VideoExtensions.
func IsVideo(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, e := range VideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`)
	return r.Replace(s)
}
