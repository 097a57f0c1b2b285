package gcpspeech

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"github.com/forPelevin/supercut/internal/types"
)

const (
	sampleRate     = 16000
	bytesPerSecond = sampleRate * 2
	// inline requests are capped at 10 MB; four minutes of 16 kHz mono
	// LINEAR16 stays well below that
	defaultChunk = 240 * bytesPerSecond
)

type recognizeFunc func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error)

// Adapter transcribes 16 kHz mono WAV files with Google Cloud Speech-to-Text.
type Adapter struct {
	client     *speech.Client
	recognize  recognizeFunc
	language   string
	maxRetries int
	backoff    time.Duration
	chunkBytes int
}

func New(ctx context.Context, language string, opts ...option.ClientOption) (*Adapter, error) {
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	a := newAdapter(language, func(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
		op, err := c.LongRunningRecognize(ctx, req)
		if err != nil {
			return nil, err
		}
		return op.Wait(ctx)
	})
	a.client = c
	return a, nil
}

func newAdapter(language string, fn recognizeFunc) *Adapter {
	if language == "" {
		language = "en-US"
	}
	return &Adapter{
		recognize:  fn,
		language:   language,
		maxRetries: 4,
		backoff:    750 * time.Millisecond,
		chunkBytes: defaultChunk,
	}
}

// OptionsFromEnv reads credentials from GOOGLE_APPLICATION_CREDENTIALS_JSON
// (inline JSON) or GOOGLE_APPLICATION_CREDENTIALS (file path). With neither,
// the client falls back to application default credentials.
func OptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (a *Adapter) Close() error {
	if a == nil || a.client == nil {
		return nil
	}
	return a.client.Close()
}

// Transcribe sends the PCM samples inline in chunks small enough for the
// inline request limit and shifts word times by each chunk's offset. A word
// spoken across a chunk boundary may be split or lost. cacheDir is unused.
func (a *Adapter) Transcribe(ctx context.Context, wavPath, _ string) (types.Transcript, error) {
	wav, err := os.ReadFile(wavPath)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read audio: %w", err)
	}
	pcm, err := pcmData(wav)
	if err != nil {
		return types.Transcript{}, fmt.Errorf("read audio %s: %w", wavPath, err)
	}

	var tr types.Transcript
	for off := 0; off < len(pcm); off += a.chunkBytes {
		end := min(off+a.chunkBytes, len(pcm))
		req := &speechpb.LongRunningRecognizeRequest{
			Config: &speechpb.RecognitionConfig{
				LanguageCode:               a.language,
				EnableWordTimeOffsets:      true,
				EnableAutomaticPunctuation: false,
				Encoding:                   speechpb.RecognitionConfig_LINEAR16,
				SampleRateHertz:            sampleRate,
				AudioChannelCount:          1,
			},
			Audio: &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: pcm[off:end]}},
		}
		resp, err := a.retry(ctx, req)
		if err != nil {
			return types.Transcript{}, fmt.Errorf("speech longrunningrecognize: %w", err)
		}
		part := toTranscript(resp)
		shift(part, float64(off)/bytesPerSecond)
		tr.Segments = append(tr.Segments, part.Segments...)
	}
	return tr, nil
}

// pcmData returns the samples of the "data" chunk of a RIFF/WAVE file. The
// chunk size is trusted only as far as the file goes.
func pcmData(wav []byte) ([]byte, error) {
	if len(wav) == 0 {
		return nil, nil
	}
	if len(wav) < 12 || string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}
	for p := 12; p+8 <= len(wav); {
		id := string(wav[p : p+4])
		size := int(binary.LittleEndian.Uint32(wav[p+4 : p+8]))
		body := p + 8
		if id == "data" {
			end := len(wav)
			if body+size <= len(wav) {
				end = body + size
			}
			data := wav[body:end]
			return data[:len(data)&^1], nil
		}
		// chunks are padded to even sizes
		p = body + size + size&1
	}
	return nil, errors.New("wav has no data chunk")
}

func shift(tr types.Transcript, by float64) {
	if by == 0 {
		return
	}
	for i := range tr.Segments {
		seg := &tr.Segments[i]
		seg.Start += by
		seg.End += by
		for j := range seg.Words {
			seg.Words[j].Start += by
			seg.Words[j].End += by
		}
	}
}

func (a *Adapter) retry(ctx context.Context, req *speechpb.LongRunningRecognizeRequest) (*speechpb.LongRunningRecognizeResponse, error) {
	backoff := a.backoff
	var last error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		resp, err := a.recognize(ctx, req)
		if err == nil {
			return resp, nil
		}
		last = err

		code := status.Code(err)
		if code != codes.Unavailable && code != codes.ResourceExhausted && code != codes.DeadlineExceeded {
			return nil, err
		}
		if attempt == a.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 10*time.Second)
	}
	return nil, last
}

// toTranscript maps every recognition result to one segment, using the top
// alternative.
func toTranscript(resp *speechpb.LongRunningRecognizeResponse) types.Transcript {
	var tr types.Transcript
	if resp == nil {
		return tr
	}
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		seg := types.TranscriptSegment{Text: strings.TrimSpace(alt.Transcript)}
		for _, w := range alt.Words {
			if w == nil || strings.TrimSpace(w.Word) == "" {
				continue
			}
			seg.Words = append(seg.Words, types.Word{
				Text:  strings.TrimSpace(w.Word),
				Start: durToSec(w.StartTime),
				End:   durToSec(w.EndTime),
			})
		}
		if len(seg.Words) == 0 {
			continue
		}
		seg.Start = seg.Words[0].Start
		seg.End = seg.Words[len(seg.Words)-1].End
		tr.Segments = append(tr.Segments, seg)
	}
	return tr
}

func durToSec(d *durationpb.Duration) float64 {
	if d == nil {
		return 0
	}
	return float64(d.Seconds) + float64(d.Nanos)/1e9
}
