// ABOUTME: Software capture backend generating a test tone
// ABOUTME: Drives the sink from a ticker goroutine like a hardware callback would
package capture

import (
	"fmt"
	"sync"
	"time"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
)

const toneDeviceName = "Test Tone"

// Tone is a capture backend with a single virtual 440 Hz input device
type Tone struct {
	SampleRate int
	Channels   int
	Frequency  float64
	// Period is the callback interval
	Period time.Duration
}

// NewTone creates a 48 kHz stereo tone backend with 10 ms callbacks
func NewTone() *Tone {
	return &Tone{
		SampleRate: 48000,
		Channels:   2,
		Frequency:  440,
		Period:     10 * time.Millisecond,
	}
}

func (t *Tone) Name() string { return "tone" }

func (t *Tone) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "tone", Name: toneDeviceName, Default: true}}, nil
}

func (t *Tone) Open(name string) (Input, error) {
	if name != "" && name != toneDeviceName && name != "tone" {
		return nil, fmt.Errorf("%w: %q", ErrNoDevice, name)
	}

	return newToneInput(source.NewTone(t.SampleRate, t.Channels, t.Frequency, 0), t.Period), nil
}

func (t *Tone) Close() error { return nil }

type toneInput struct {
	reader source.Reader
	period time.Duration
	frames int

	quit      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// newToneInput paces reader like a device callback firing every period
func newToneInput(reader source.Reader, period time.Duration) *toneInput {
	return &toneInput{
		reader: reader,
		period: period,
		frames: int(time.Duration(reader.Format().SampleRate) * period / time.Second),
		quit:   make(chan struct{}),
	}
}

func (in *toneInput) Device() DeviceInfo {
	return DeviceInfo{ID: "tone", Name: toneDeviceName, Default: true}
}

func (in *toneInput) Format() audio.Format { return in.reader.Format() }

func (in *toneInput) Start(sink source.Sink) error {
	if in.frames <= 0 {
		return fmt.Errorf("tone period %s too short for %d Hz", in.period, in.reader.Format().SampleRate)
	}

	batch := source.NewBatch(audio.KindFloat, in.frames*in.reader.Format().Channels)
	in.wg.Add(1)
	go func() {
		defer in.wg.Done()
		ticker := time.NewTicker(in.period)
		defer ticker.Stop()

		deaf := false
		for {
			select {
			case <-in.quit:
				return
			case <-ticker.C:
				if deaf {
					continue
				}
				n, err := in.reader.Read(batch)
				if n > 0 {
					deaf = !sink.OnSamples(batch.Slice(n))
				}
				if err != nil && !deaf {
					// a live device never ends, so exhaustion is a fault too
					sink.OnError(fmt.Errorf("tone source read: %w", err))
					deaf = true
				}
			}
		}
	}()
	return nil
}

func (in *toneInput) Close() error {
	in.closeOnce.Do(func() {
		close(in.quit)
		in.wg.Wait()
	})
	return nil
}
