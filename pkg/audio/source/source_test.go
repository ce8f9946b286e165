// ABOUTME: Tests for source contracts and file readers
// ABOUTME: Tests batches, extension dispatch, WAV/FLAC/MP3 decoding and the tone generator
package source

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

func TestBatch(t *testing.T) {
	ints := NewBatch(audio.KindInt, 8)
	if ints.Len() != 8 || ints.Float != nil {
		t.Errorf("unexpected int batch: %+v", ints)
	}
	if got := ints.Slice(3).Len(); got != 3 {
		t.Errorf("expected slice of 3, got %d", got)
	}

	floats := NewBatch(audio.KindFloat, 4)
	if floats.Len() != 4 || floats.Int != nil {
		t.Errorf("unexpected float batch: %+v", floats)
	}
	if floats.Slice(2).Float == nil {
		t.Error("float slice lost its kind")
	}
}

func TestOpenFileErrors(t *testing.T) {
	dir := t.TempDir()
	bogus := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(bogus, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		path        string
		notExist    bool
		errContains string
	}{
		{"missing file", filepath.Join(dir, "crosswalk.wav"), true, "not found"},
		{"unknown extension", bogus, false, "unsupported audio format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenFile(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.Is(err, fs.ErrNotExist) != tt.notExist {
				t.Errorf("errors.Is(err, fs.ErrNotExist) = %v, want %v (%v)", !tt.notExist, tt.notExist, err)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("error %q does not contain %q", err, tt.errContains)
			}
		})
	}
}

func writeWAV(t *testing.T, path string, rate, bits, channels int, data []int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, rate, bits, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: bits,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav: %v", err)
	}
}

func TestWAVReader(t *testing.T) {
	tests := []struct {
		name     string
		bits     int
		channels int
		data     []int
	}{
		{"16-bit stereo", 16, 2, []int{0, 1, -1, 32767, -32768, 1234}},
		{"24-bit mono", 24, 1, []int{0, 8388607, -8388608, 0x123456, -0x123456}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "crosswalk.wav")
			writeWAV(t, path, 48000, tt.bits, tt.channels, tt.data)

			r, err := OpenFile(path)
			if err != nil {
				t.Fatalf("OpenFile() failed: %v", err)
			}
			defer r.Close()

			want := audio.Format{SampleRate: 48000, Channels: tt.channels, BitDepth: tt.bits, Kind: audio.KindInt}
			if r.Format() != want {
				t.Errorf("expected format %s, got %s", want, r.Format())
			}
			if r.Title() != "crosswalk" {
				t.Errorf("expected title crosswalk, got %q", r.Title())
			}

			var got []int32
			batch := NewBatch(audio.KindInt, 4)
			for {
				n, err := r.Read(batch)
				got = append(got, batch.Int[:n]...)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Read() failed: %v", err)
				}
			}

			if len(got) != len(tt.data) {
				t.Fatalf("expected %d samples, got %d", len(tt.data), len(got))
			}
			for i := range got {
				if int(got[i]) != tt.data[i] {
					t.Errorf("sample %d: expected %d, got %d", i, tt.data[i], got[i])
				}
			}
		})
	}
}

// writeRawWAV lays out a RIFF file by hand so fmt tags go-audio/wav cannot
// encode (IEEE float, extensible) can be exercised.
func writeRawWAV(t *testing.T, path string, tag, subFormat uint16, rate, bits, channels int, payload []byte) {
	t.Helper()

	le := binary.LittleEndian
	blockAlign := channels * bits / 8
	fmtChunk := le.AppendUint16(nil, tag)
	fmtChunk = le.AppendUint16(fmtChunk, uint16(channels))
	fmtChunk = le.AppendUint32(fmtChunk, uint32(rate))
	fmtChunk = le.AppendUint32(fmtChunk, uint32(rate*blockAlign))
	fmtChunk = le.AppendUint16(fmtChunk, uint16(blockAlign))
	fmtChunk = le.AppendUint16(fmtChunk, uint16(bits))
	if tag == wavFormatExtensible {
		fmtChunk = le.AppendUint16(fmtChunk, 22)
		fmtChunk = le.AppendUint16(fmtChunk, uint16(bits))
		fmtChunk = le.AppendUint32(fmtChunk, 0)
		fmtChunk = le.AppendUint16(fmtChunk, subFormat)
		fmtChunk = append(fmtChunk, 0x00, 0x00, 0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0xAA, 0x00, 0x38, 0x9B, 0x71)
	}

	var body []byte
	body = append(body, "WAVE"...)
	body = append(body, "fmt "...)
	body = le.AppendUint32(body, uint32(len(fmtChunk)))
	body = append(body, fmtChunk...)
	body = append(body, "data"...)
	body = le.AppendUint32(body, uint32(len(payload)))
	body = append(body, payload...)

	file := append([]byte("RIFF"), le.AppendUint32(nil, uint32(len(body)))...)
	file = append(file, body...)
	if err := os.WriteFile(path, file, 0o644); err != nil {
		t.Fatal(err)
	}
}

func floatPayload(samples []float32) []byte {
	var b []byte
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(s))
	}
	return b
}

func intPayload(samples []int32) []byte {
	var b []byte
	for _, s := range samples {
		b = binary.LittleEndian.AppendUint32(b, uint32(s))
	}
	return b
}

func TestWAVFormatTags(t *testing.T) {
	floats := []float32{0.5, -0.25, 1.0}
	ints := []int32{0, math.MaxInt32, math.MinInt32, 123456789}

	tests := []struct {
		name      string
		tag       uint16
		subFormat uint16
		channels  int
		payload   []byte
		kind      audio.Kind
		floats    []float32
		ints      []int32
		wantErr   error
	}{
		{"float tag", wavFormatFloat, 0, 1, floatPayload(floats), audio.KindFloat, floats, nil, nil},
		{"extensible float", wavFormatExtensible, wavFormatFloat, 1, floatPayload(floats), audio.KindFloat, floats, nil, nil},
		{"pcm tag 32-bit", wavFormatPCM, 0, 2, intPayload(ints), audio.KindInt, nil, ints, nil},
		{"extensible pcm 32-bit", wavFormatExtensible, wavFormatPCM, 2, intPayload(ints), audio.KindInt, nil, ints, nil},
		{"extensible unknown subformat", wavFormatExtensible, 2, 1, intPayload(ints), 0, nil, nil, audio.ErrUnsupportedFormat},
		{"unknown tag", 2, 0, 1, intPayload(ints), 0, nil, nil, audio.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "crosswalk.wav")
			writeRawWAV(t, path, tt.tag, tt.subFormat, 48000, 32, tt.channels, tt.payload)

			r, err := OpenFile(path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("OpenFile() failed: %v", err)
			}
			defer r.Close()

			want := audio.Format{SampleRate: 48000, Channels: tt.channels, BitDepth: 32, Kind: tt.kind}
			if r.Format() != want {
				t.Fatalf("expected format %s, got %s", want, r.Format())
			}

			batch := NewBatch(tt.kind, 8)
			n, err := r.Read(batch)
			if err != nil {
				t.Fatalf("Read() failed: %v", err)
			}
			if tt.kind == audio.KindFloat {
				if n != len(tt.floats) {
					t.Fatalf("expected %d samples, got %d", len(tt.floats), n)
				}
				for i, s := range tt.floats {
					if batch.Float[i] != s {
						t.Errorf("sample %d: expected %v, got %v", i, s, batch.Float[i])
					}
				}
			} else {
				if n != len(tt.ints) {
					t.Fatalf("expected %d samples, got %d", len(tt.ints), n)
				}
				for i, s := range tt.ints {
					if batch.Int[i] != s {
						t.Errorf("sample %d: expected %d, got %d", i, s, batch.Int[i])
					}
				}
			}

			if _, err := r.Read(batch); err != io.EOF {
				t.Errorf("expected io.EOF after data, got %v", err)
			}
		})
	}
}

// writeFLAC encodes interleaved samples as verbatim frames of blockSize
func writeFLAC(t *testing.T, path string, bits, channels, blockSize int, samples []int32) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	info := &meta.StreamInfo{
		BlockSizeMin:  uint16(blockSize),
		BlockSizeMax:  uint16(blockSize),
		SampleRate:    48000,
		NChannels:     uint8(channels),
		BitsPerSample: uint8(bits),
	}
	enc, err := flac.NewEncoder(f, info)
	if err != nil {
		f.Close()
		t.Fatalf("flac encoder: %v", err)
	}

	layout := frame.ChannelsMono
	if channels == 2 {
		layout = frame.ChannelsLR
	}
	frames := len(samples) / channels
	for offset := 0; offset < frames; offset += blockSize {
		fr := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(blockSize),
				SampleRate:        48000,
				Channels:          layout,
				BitsPerSample:     uint8(bits),
			},
			Subframes: make([]*frame.Subframe, channels),
		}
		for ch := 0; ch < channels; ch++ {
			sub := make([]int32, blockSize)
			for i := range sub {
				sub[i] = samples[(offset+i)*channels+ch]
			}
			fr.Subframes[ch] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   sub,
				NSamples:  blockSize,
			}
		}
		if err := enc.WriteFrame(fr); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close flac: %v", err)
	}
}

func TestFLACReader(t *testing.T) {
	tests := []struct {
		name      string
		bits      int
		channels  int
		container int
		limit     int32
	}{
		{"16-bit stereo", 16, 2, 16, 1 << 15},
		{"20-bit stereo widens to 24", 20, 2, 24, 1 << 19},
		{"24-bit mono", 24, 1, 24, 1 << 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			const blockSize = 16
			samples := make([]int32, 2*blockSize*tt.channels)
			for i := range samples {
				samples[i] = int32(i*7919)%tt.limit - tt.limit/2
			}
			samples[0] = tt.limit - 1
			samples[1] = -tt.limit

			path := filepath.Join(t.TempDir(), "crosswalk.flac")
			writeFLAC(t, path, tt.bits, tt.channels, blockSize, samples)

			r, err := OpenFile(path)
			if err != nil {
				t.Fatalf("OpenFile() failed: %v", err)
			}
			defer r.Close()

			want := audio.Format{SampleRate: 48000, Channels: tt.channels, BitDepth: tt.container, Kind: audio.KindInt}
			if r.Format() != want {
				t.Fatalf("expected format %s, got %s", want, r.Format())
			}

			// batches straddle frame boundaries
			var got []int32
			batch := NewBatch(audio.KindInt, 10)
			for {
				n, err := r.Read(batch)
				got = append(got, batch.Int[:n]...)
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Read() failed: %v", err)
				}
			}

			if len(got) != len(samples) {
				t.Fatalf("expected %d samples, got %d", len(samples), len(got))
			}
			shift := uint(tt.container - tt.bits)
			for i := range samples {
				if got[i] != samples[i]<<shift {
					t.Errorf("sample %d: expected %d, got %d", i, samples[i]<<shift, got[i])
				}
			}
		})
	}
}

func TestMP3ReaderPartialReads(t *testing.T) {
	format := audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16, Kind: audio.KindInt}

	tests := []struct {
		name  string
		pcm   []byte
		batch int
		reads [][]int32
	}{
		{"short tail", []byte{0x01, 0x00, 0xFF, 0xFF, 0x07}, 4, [][]int32{{1, -1}}},
		{"exact fill", []byte{0x00, 0x80, 0xFF, 0x7F}, 2, [][]int32{{-32768, 32767}}},
		{"several batches", []byte{1, 0, 2, 0, 3, 0}, 2, [][]int32{{1, 2}, {3}}},
		{"empty", nil, 4, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &MP3Reader{decoder: bytes.NewReader(tt.pcm), format: format}
			batch := NewBatch(audio.KindInt, tt.batch)
			for i, want := range tt.reads {
				n, err := r.Read(batch)
				if err != nil {
					t.Fatalf("read %d failed: %v", i, err)
				}
				if n != len(want) {
					t.Fatalf("read %d: expected %d samples, got %d", i, len(want), n)
				}
				for j, s := range want {
					if batch.Int[j] != s {
						t.Errorf("read %d sample %d: expected %d, got %d", i, j, s, batch.Int[j])
					}
				}
			}
			for i := 0; i < 2; i++ {
				if n, err := r.Read(batch); n != 0 || err != io.EOF {
					t.Errorf("expected (0, io.EOF) at end, got (%d, %v)", n, err)
				}
			}
		})
	}

	t.Run("decode error", func(t *testing.T) {
		boom := errors.New("bad frame")
		r := &MP3Reader{decoder: iotest.ErrReader(boom), format: format}
		if _, err := r.Read(NewBatch(audio.KindInt, 4)); !errors.Is(err, boom) {
			t.Errorf("expected wrapped decode error, got %v", err)
		}
	})
}

func TestToneReader(t *testing.T) {
	tone := NewTone(48000, 2, 440, 10)
	if tone.Format().Kind != audio.KindFloat {
		t.Fatalf("expected float tone, got %s", tone.Format())
	}

	batch := NewBatch(audio.KindFloat, 16)
	n, err := tone.Read(batch)
	if err != nil || n != 16 {
		t.Fatalf("first read: n=%d err=%v", n, err)
	}
	for i := 0; i < n; i += 2 {
		if batch.Float[i] != batch.Float[i+1] {
			t.Errorf("frame %d: channels differ", i/2)
		}
		if batch.Float[i] > 0.5 || batch.Float[i] < -0.5 {
			t.Errorf("sample %d out of amplitude: %f", i, batch.Float[i])
		}
	}

	n, err = tone.Read(batch)
	if err != nil || n != 4 {
		t.Fatalf("second read: expected the remaining 2 frames, got n=%d err=%v", n, err)
	}
	if _, err := tone.Read(batch); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
