package timecode

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidFrameRate = errors.New("frame rate must be a positive finite number")

// epsilon absorbs float error such as 0.29*100 = 28.999999999999996 so that a
// timestamp sitting exactly on a frame boundary lands on that frame.
const epsilon = 1e-6

// Timecode renders second offsets as non-drop-frame SMPTE timecodes.
type Timecode struct {
	fps  float64
	base int64
}

func New(fps float64) (Timecode, error) {
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps <= 0 {
		return Timecode{}, fmt.Errorf("%w: %v", ErrInvalidFrameRate, fps)
	}
	base := int64(math.Round(fps))
	if base < 1 {
		base = 1
	}
	return Timecode{fps: fps, base: base}, nil
}

// Frames truncates seconds to whole frames at the actual frame rate.
func (t Timecode) Frames(seconds float64) int64 {
	if seconds <= 0 || math.IsNaN(seconds) {
		return 0
	}
	return int64(math.Floor(seconds*t.fps + epsilon))
}

// Render returns HH:MM:SS:FF. Frames are counted at the real rate and laid out
// on the nominal integer rate, so FF never reaches the frame rate.
func (t Timecode) Render(seconds float64) string {
	frames := t.Frames(seconds)
	ff := frames % t.base
	total := frames / t.base
	ss := total % 60
	mm := (total / 60) % 60
	hh := total / 3600
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hh, mm, ss, ff)
}
