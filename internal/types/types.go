package types

// Transcript is the word-timed output of a transcription engine, grouped
// into sentences.
type Transcript struct {
	Segments []TranscriptSegment
}

type TranscriptSegment struct {
	Start float64
	End   float64
	Text  string
	Words []Word
}

// Word is one timed token. Times are seconds from the start of the video.
type Word struct {
	Start float64
	End   float64
	Text  string
}

// TextSpan is one line, cue or sentence of a track. End is always greater than Start.
type TextSpan struct {
	Text   string
	Start  float64
	End    float64
	Source string
	Words  []Word
}

type TrackKind int

const (
	TrackCues TrackKind = iota
	TrackCaptions
	TrackTranscript
)

func (k TrackKind) String() string {
	switch k {
	case TrackCaptions:
		return "vtt"
	case TrackTranscript:
		return "transcript"
	default:
		return "srt"
	}
}

// Track is a time-aligned text file and the video it belongs to.
type Track struct {
	Kind   TrackKind
	Path   string
	Source string
	Spans  []TextSpan
}

// Segment is one matched interval of a source video, in seconds.
type Segment struct {
	Source string
	Text   string
	Start  float64
	End    float64
}

func (s Segment) Duration() float64 { return s.End - s.Start }

// Composition is the cut list. Order is significant.
type Composition []Segment

// FileTiming holds the probed properties of one source video.
type FileTiming struct {
	Source   string
	FPS      float64
	Duration float64
}

// TaggedToken is one token of a part-of-speech tagged line.
type TaggedToken struct {
	Text string `json:"text"`
	Tag  string `json:"tag"`
}
