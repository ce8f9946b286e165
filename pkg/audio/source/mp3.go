// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 to 16-bit stereo samples via go-mp3
package source

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// MP3Reader reads samples from an MP3 file
type MP3Reader struct {
	file    *os.File
	decoder io.Reader
	format  audio.Format
	title   string
	raw     []byte
	done    bool
}

// NewMP3Reader opens an MP3 file
func NewMP3Reader(path string) (*MP3Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	format := audio.Format{
		SampleRate: decoder.SampleRate(),
		Channels:   2, // go-mp3 always decodes to stereo
		BitDepth:   16,
		Kind:       audio.KindInt,
	}
	title := titleFromPath(path)
	log.Info().Str("file", path).Object("format", format).Msg("Loaded MP3")

	return &MP3Reader{
		file:    f,
		decoder: decoder,
		format:  format,
		title:   title,
	}, nil
}

func (r *MP3Reader) Read(b Batch) (int, error) {
	if r.done {
		return 0, io.EOF
	}

	need := b.Len() * 2
	if cap(r.raw) < need {
		r.raw = make([]byte, need)
	}
	r.raw = r.raw[:need]

	n, err := io.ReadFull(r.decoder, r.raw)
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		r.done = true
	case err != nil:
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	numSamples := n / 2
	for i := 0; i < numSamples; i++ {
		b.Int[i] = int32(int16(binary.LittleEndian.Uint16(r.raw[i*2:])))
	}
	if numSamples == 0 {
		return 0, io.EOF
	}
	return numSamples, nil
}

func (r *MP3Reader) Format() audio.Format { return r.format }
func (r *MP3Reader) Title() string        { return r.title }
func (r *MP3Reader) Close() error {
	return r.file.Close()
}
