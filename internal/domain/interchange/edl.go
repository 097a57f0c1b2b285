package interchange

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/forPelevin/supercut/internal/domain/timecode"
	"github.com/forPelevin/supercut/internal/types"
)

// edlReelLen is the reel width kept in the FCP reel comment.
const edlReelLen = 7

// ReelName is the sequential reel name of the i-th (0-based) clip.
func ReelName(i int) string { return fmt.Sprintf("reel_%04d", i+1) }

// WriteEDL writes c as a CMX-style non-drop-frame edit decision list. Source
// timecodes use each file's own rate. Record timecodes use the sequence rate,
// the rate of the first clip, so each event starts where the previous ended.
func WriteEDL(ctx context.Context, w io.Writer, c types.Composition, title string, t *Timings) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "TITLE: %s\nFCM: NON-DROP FRAME\n\n", title)
	if len(c) == 0 {
		return bw.Flush()
	}

	seq, err := timecode.New(t.FPS(ctx, c[0].Source))
	if err != nil {
		return fmt.Errorf("edl sequence: %w", err)
	}
	recIn := 0.0
	for i, s := range c {
		tc, err := timecode.New(t.FPS(ctx, s.Source))
		if err != nil {
			return fmt.Errorf("edl event %d: %w", i+1, err)
		}
		recOut := recIn + s.Duration()
		reel := ReelName(i)
		short := reel
		if len(short) > edlReelLen {
			short = short[:edlReelLen]
		}
		fmt.Fprintf(bw, "%04d %s AA/V  C        %s %s %s %s\n",
			i+1, reel,
			tc.Render(s.Start), tc.Render(s.End),
			seq.Render(recIn), seq.Render(recOut),
		)
		fmt.Fprintf(bw, "* FROM CLIP NAME:  %s\n", s.Source)
		fmt.Fprintf(bw, "* COMMENT: \n")
		fmt.Fprintf(bw, " FINAL CUT PRO REEL: %s REPLACED BY: %s\n\n", reel, short)
		recIn = recOut
	}
	return bw.Flush()
}
