// ABOUTME: Test tone reader
// ABOUTME: Generates a sine wave as float samples, finite or unbounded
package source

import (
	"io"
	"math"
	"sync"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// ToneReader generates a sine tone on every channel
type ToneReader struct {
	mu          sync.Mutex
	format      audio.Format
	frequency   float64
	amplitude   float64
	frameIndex  uint64
	totalFrames uint64
}

// NewTone creates a tone generator. frames of 0 means unbounded.
func NewTone(sampleRate, channels int, frequency float64, frames uint64) *ToneReader {
	return &ToneReader{
		format: audio.Format{
			SampleRate: sampleRate,
			Channels:   channels,
			BitDepth:   32,
			Kind:       audio.KindFloat,
		},
		frequency:   frequency,
		amplitude:   0.5,
		totalFrames: frames,
	}
}

func (t *ToneReader) Read(b Batch) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	channels := t.format.Channels
	frames := len(b.Float) / channels
	if t.totalFrames > 0 {
		left := t.totalFrames - t.frameIndex
		if left == 0 {
			return 0, io.EOF
		}
		if uint64(frames) > left {
			frames = int(left)
		}
	}

	rate := float64(t.format.SampleRate)
	for i := 0; i < frames; i++ {
		phase := float64(t.frameIndex+uint64(i)) / rate
		sample := float32(t.amplitude * math.Sin(2*math.Pi*t.frequency*phase))
		for ch := 0; ch < channels; ch++ {
			b.Float[i*channels+ch] = sample
		}
	}
	t.frameIndex += uint64(frames)

	return frames * channels, nil
}

func (t *ToneReader) Format() audio.Format { return t.format }
func (t *ToneReader) Title() string        { return "Test Tone" }
func (t *ToneReader) Close() error         { return nil }
