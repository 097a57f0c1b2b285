package ffmpeg

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/forPelevin/supercut/internal/domain/interchange"
	"github.com/forPelevin/supercut/internal/ports"
)

var (
	_ ports.MediaTool    = (*Adapter)(nil)
	_ interchange.Prober = (*Adapter)(nil)
)

func TestParseRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "25/1", want: 25},
		{in: "30000/1001", want: 29.97002997},
		{in: "24", want: 24},
		{in: "0/0", wantErr: true},
		{in: "", wantErr: true},
		{in: "abc/1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseRate(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseRate: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-6 {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseProbeFPS(t *testing.T) {
	t.Parallel()

	fps, err := parseProbeFPS([]byte(`{"streams":[{"r_frame_rate":"60/1","avg_frame_rate":"0/0"}]}`))
	if err != nil || fps != 60 {
		t.Fatalf("expected r_frame_rate fallback 60, got %v %v", fps, err)
	}
	fps, err = parseProbeFPS([]byte(`{"streams":[{"r_frame_rate":"60/1","avg_frame_rate":"25/1"}]}`))
	if err != nil || fps != 25 {
		t.Fatalf("expected avg_frame_rate 25, got %v %v", fps, err)
	}
	if _, err := parseProbeFPS([]byte(`{"streams":[]}`)); err == nil {
		t.Fatalf("expected error for missing video stream")
	}
}

func TestConcatList(t *testing.T) {
	t.Parallel()

	got := concatList([]string{"/tmp/a.mp4", "/tmp/it's.mp4"})
	want := "file '/tmp/a.mp4'\nfile '/tmp/it'\\''s.mp4'\n"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
	if !strings.HasPrefix(concatList([]string{"rel.mp4"}), "file '/") {
		t.Fatalf("relative paths must be made absolute")
	}
}

func TestFmtSeconds(t *testing.T) {
	t.Parallel()

	if got := fmtSeconds(1500 * time.Millisecond); got != "1.500" {
		t.Fatalf("got %q", got)
	}
}
