// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames and interleaves subframes via mewkiz/flac
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// FLACReader reads samples from a FLAC file
type FLACReader struct {
	file    *os.File
	stream  *flac.Stream
	format  audio.Format
	title   string
	shift   uint
	frame   []int32
	pending []int32
}

// NewFLACReader opens a FLAC file and parses its stream info
func NewFLACReader(path string) (*FLACReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	bitsPerSample := int(info.BitsPerSample)
	container := containerDepth(bitsPerSample)

	format := audio.Format{
		SampleRate: int(info.SampleRate),
		Channels:   int(info.NChannels),
		BitDepth:   container,
		Kind:       audio.KindInt,
	}
	if err := format.Validate(); err != nil {
		f.Close()
		return nil, err
	}

	title := titleFromPath(path)
	log.Info().Str("file", path).Int("bits_per_sample", bitsPerSample).Object("format", format).Msg("Loaded FLAC")

	return &FLACReader{
		file:   f,
		stream: stream,
		format: format,
		title:  title,
		shift:  uint(container - bitsPerSample),
	}, nil
}

// containerDepth rounds odd FLAC sample sizes up to 16, 24 or 32 bits
func containerDepth(bits int) int {
	switch {
	case bits <= 16:
		return 16
	case bits <= 24:
		return 24
	default:
		return 32
	}
}

func (r *FLACReader) Read(b Batch) (int, error) {
	samplesRead := 0
	for samplesRead < len(b.Int) {
		if len(r.pending) == 0 {
			frame, err := r.stream.ParseNext()
			if err == io.EOF {
				break
			}
			if err != nil {
				return samplesRead, fmt.Errorf("flac decode error: %w", err)
			}

			channels := r.format.Channels
			r.frame = r.frame[:0]
			for i := 0; i < int(frame.BlockSize); i++ {
				for ch := 0; ch < channels; ch++ {
					r.frame = append(r.frame, frame.Subframes[ch].Samples[i]<<r.shift)
				}
			}
			r.pending = r.frame
		}

		n := copy(b.Int[samplesRead:], r.pending)
		r.pending = r.pending[n:]
		samplesRead += n
	}

	if samplesRead == 0 {
		return 0, io.EOF
	}
	return samplesRead, nil
}

func (r *FLACReader) Format() audio.Format { return r.format }
func (r *FLACReader) Title() string        { return r.title }
func (r *FLACReader) Close() error {
	return r.file.Close()
}
