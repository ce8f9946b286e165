// ABOUTME: WAV file reader
// ABOUTME: Decodes integer and IEEE float WAV data via go-audio/wav
package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/riff"
	"github.com/go-audio/wav"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatFloat      = 3
	wavFormatExtensible = 0xFFFE
)

// WAVReader reads samples from a WAV file
type WAVReader struct {
	file    *os.File
	decoder *wav.Decoder
	format  audio.Format
	title   string
	buf     *goaudio.IntBuffer
}

// NewWAVReader opens a WAV file and reads its header
func NewWAVReader(path string) (*WAVReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		if err := decoder.Err(); err != nil {
			return nil, fmt.Errorf("failed to decode WAV: %w", err)
		}
		return nil, fmt.Errorf("failed to decode WAV: %s is not a valid WAV file", path)
	}

	format := audio.Format{
		SampleRate: int(decoder.SampleRate),
		Channels:   int(decoder.NumChans),
		BitDepth:   int(decoder.BitDepth),
	}
	kind, err := wavKind(f, decoder.WavAudioFormat)
	if err != nil {
		f.Close()
		return nil, err
	}
	format.Kind = kind
	if err := format.Validate(); err != nil {
		f.Close()
		return nil, err
	}

	title := titleFromPath(path)
	log.Info().Str("file", path).Object("format", format).Msg("Loaded WAV")

	return &WAVReader{
		file:    f,
		decoder: decoder,
		format:  format,
		title:   title,
		buf: &goaudio.IntBuffer{
			Format:         decoder.Format(),
			SourceBitDepth: format.BitDepth,
		},
	}, nil
}

// wavKind maps a fmt tag to a sample kind. Extensible files carry the real
// tag in the first two bytes of their SubFormat GUID.
func wavKind(f *os.File, tag uint16) (audio.Kind, error) {
	if tag == wavFormatExtensible {
		sub, err := extensibleSubFormat(f)
		if err != nil {
			return 0, err
		}
		tag = sub
	}
	switch tag {
	case wavFormatPCM:
		return audio.KindInt, nil
	case wavFormatFloat:
		return audio.KindFloat, nil
	default:
		return 0, fmt.Errorf("%w: WAV encoding %d", audio.ErrUnsupportedFormat, tag)
	}
}

// extensibleSubFormat rescans the fmt chunk through ReadAt so the decoder's
// read offset is left alone.
func extensibleSubFormat(f *os.File) (uint16, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat WAV file: %w", err)
	}
	parser := riff.New(io.NewSectionReader(f, 0, info.Size()))
	if err := parser.ParseHeaders(); err != nil {
		return 0, fmt.Errorf("failed to decode WAV: %w", err)
	}
	for {
		chunk, err := parser.NextChunk()
		if err != nil {
			return 0, fmt.Errorf("failed to decode WAV: no fmt chunk: %w", err)
		}
		if chunk.ID != riff.FmtID {
			chunk.Drain()
			continue
		}
		// 16 base bytes, cbSize, valid bits, channel mask, then the GUID
		if chunk.Size < 26 {
			return 0, fmt.Errorf("%w: extensible fmt chunk of %d bytes", audio.ErrUnsupportedFormat, chunk.Size)
		}
		fields := make([]byte, 26)
		if _, err := io.ReadFull(chunk, fields); err != nil {
			return 0, fmt.Errorf("failed to decode WAV: %w", err)
		}
		return binary.LittleEndian.Uint16(fields[24:]), nil
	}
}

func (r *WAVReader) Read(b Batch) (int, error) {
	want := b.Len()
	if cap(r.buf.Data) < want {
		r.buf.Data = make([]int, want)
	}
	r.buf.Data = r.buf.Data[:want]

	n, err := r.decoder.PCMBuffer(r.buf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("wav decode error: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	if r.format.Kind == audio.KindFloat {
		// 32-bit data arrives as the sign-extended bit pattern
		for i := 0; i < n; i++ {
			b.Float[i] = math.Float32frombits(uint32(r.buf.Data[i]))
		}
	} else {
		for i := 0; i < n; i++ {
			b.Int[i] = int32(r.buf.Data[i])
		}
	}
	return n, nil
}

func (r *WAVReader) Format() audio.Format { return r.format }
func (r *WAVReader) Title() string        { return r.title }
func (r *WAVReader) Close() error {
	return r.file.Close()
}
