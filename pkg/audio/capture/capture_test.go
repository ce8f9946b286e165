// ABOUTME: Tests for capture backends
// ABOUTME: Tests backend selection, native format mapping and the tone device
package capture

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
)

type countingSink struct {
	mu      sync.Mutex
	batches int
	samples int
	errs    []error
	listen  atomic.Bool
}

func (s *countingSink) OnSamples(b source.Batch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches++
	s.samples += b.Len()
	return s.listen.Load()
}

func (s *countingSink) OnError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
}

func (s *countingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches
}

func (s *countingSink) faults() []error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]error(nil), s.errs...)
}

// brokenReader yields one batch of silence, then err
type brokenReader struct {
	err   error
	reads int
}

func (r *brokenReader) Format() audio.Format {
	return audio.Format{SampleRate: 1000, Channels: 1, BitDepth: 32, Kind: audio.KindFloat}
}
func (r *brokenReader) Title() string { return "broken" }
func (r *brokenReader) Close() error  { return nil }

func (r *brokenReader) Read(b source.Batch) (int, error) {
	r.reads++
	if r.reads == 1 {
		return b.Len(), nil
	}
	return 0, r.err
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New("cpal"); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNativeFormat(t *testing.T) {
	tests := []struct {
		name    string
		format  malgo.FormatType
		want    audio.Format
		wantErr bool
	}{
		{"s16", malgo.FormatS16, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 16, Kind: audio.KindInt}, false},
		{"s24", malgo.FormatS24, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24, Kind: audio.KindInt}, false},
		{"s32", malgo.FormatS32, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 32, Kind: audio.KindInt}, false},
		{"f32", malgo.FormatF32, audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 32, Kind: audio.KindFloat}, false},
		{"u8", malgo.FormatU8, audio.Format{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nativeFormat(tt.format, 2, 48000)
			if (err != nil) != tt.wantErr {
				t.Fatalf("nativeFormat() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, audio.ErrUnsupportedFormat) {
					t.Errorf("expected ErrUnsupportedFormat, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestMalgoInputConvert(t *testing.T) {
	in := &malgoInput{
		format: audio.Format{SampleRate: 48000, Channels: 1, BitDepth: 24, Kind: audio.KindInt},
		width:  3,
		batch:  source.NewBatch(audio.KindInt, 0),
	}

	batch := in.convert([]byte{0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x80}, 2)
	if batch.Len() != 2 || batch.Int[0] != audio.Max24Bit || batch.Int[1] != audio.Min24Bit {
		t.Errorf("unexpected conversion: %v", batch.Int)
	}
}

func TestToneBackend(t *testing.T) {
	backend := NewTone()
	backend.Period = 2 * time.Millisecond

	devices, err := backend.Devices()
	if err != nil || len(devices) != 1 || !devices[0].Default {
		t.Fatalf("unexpected devices: %v, %v", devices, err)
	}

	if _, err := backend.Open("Built-in Microphone"); !errors.Is(err, ErrNoDevice) {
		t.Errorf("expected ErrNoDevice, got %v", err)
	}

	in, err := backend.Open("")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if in.Format().Kind != audio.KindFloat || in.Format().SampleRate != 48000 {
		t.Errorf("unexpected tone format %s", in.Format())
	}

	sink := &countingSink{}
	sink.listen.Store(true)
	if err := in.Start(sink); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for sink.count() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if sink.count() < 3 {
		t.Fatalf("expected callbacks, got %d", sink.count())
	}

	if err := in.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	after := sink.count()
	time.Sleep(10 * time.Millisecond)
	if sink.count() != after {
		t.Errorf("callbacks continued after Close: %d -> %d", after, sink.count())
	}

	// Close is idempotent
	in.Close()
}

func TestToneBackendStopsCallingDeafSink(t *testing.T) {
	backend := NewTone()
	backend.Period = time.Millisecond

	in, err := backend.Open("tone")
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer in.Close()

	sink := &countingSink{}
	if err := in.Start(sink); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if got := sink.count(); got != 1 {
		t.Errorf("expected exactly one callback after the sink refused, got %d", got)
	}
}

func TestToneInputReportsReadErrors(t *testing.T) {
	boom := errors.New("generator fault")

	tests := []struct {
		name string
		err  error
	}{
		{"read error", boom},
		{"exhausted", io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newToneInput(&brokenReader{err: tt.err}, time.Millisecond)
			defer in.Close()

			sink := &countingSink{}
			sink.listen.Store(true)
			if err := in.Start(sink); err != nil {
				t.Fatalf("Start() failed: %v", err)
			}

			deadline := time.Now().Add(time.Second)
			for len(sink.faults()) == 0 && time.Now().Before(deadline) {
				time.Sleep(time.Millisecond)
			}
			time.Sleep(10 * time.Millisecond)

			errs := sink.faults()
			if len(errs) != 1 {
				t.Fatalf("expected exactly one error, got %v", errs)
			}
			if !errors.Is(errs[0], tt.err) {
				t.Errorf("expected %v, got %v", tt.err, errs[0])
			}
			if got := sink.count(); got != 1 {
				t.Errorf("expected only the good batch delivered, got %d", got)
			}
		})
	}
}
