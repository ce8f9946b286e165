// ABOUTME: Wire PCM to float32 conversion for playback
// ABOUTME: Streams int<N>le bytes out as gain-scaled float32le bytes
package player

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/decode"
)

// readBlock is divisible by every supported sample width
const readBlock = 12 * 1024

// FloatReader converts a wire PCM byte stream to float32le.
// Samples split across reads of the source are reassembled.
type FloatReader struct {
	src   io.Reader
	dec   *decode.PCMDecoder
	width int
	gain  atomic.Uint32

	in    []byte
	carry int
	buf   []byte
	out   []byte
	err   error
}

// NewFloatReader reads int<bits>le samples from r
func NewFloatReader(r io.Reader, bits int) (*FloatReader, error) {
	dec, err := decode.NewPCM(audio.Format{BitDepth: bits, Kind: audio.KindInt})
	if err != nil {
		return nil, err
	}

	f := &FloatReader{
		src:   r,
		dec:   dec,
		width: dec.Width(),
		in:    make([]byte, readBlock),
	}
	f.SetGain(1)
	return f, nil
}

// SetGain scales subsequent samples; 0 mutes
func (f *FloatReader) SetGain(g float32) {
	f.gain.Store(math.Float32bits(g))
}

// Read implements io.Reader
func (f *FloatReader) Read(p []byte) (int, error) {
	for len(f.out) == 0 {
		if f.err != nil {
			return 0, f.err
		}
		f.fill()
	}

	n := copy(p, f.out)
	f.out = f.out[n:]
	return n, nil
}

func (f *FloatReader) fill() {
	n, err := f.src.Read(f.in[f.carry:])
	total := f.carry + n
	whole := total - total%f.width

	samples, decErr := f.dec.DecodeFloat(f.in[:whole])
	if decErr != nil {
		f.err = decErr
		return
	}
	gain := math.Float32frombits(f.gain.Load())

	f.buf = f.buf[:0]
	for _, s := range samples {
		f.buf = binary.LittleEndian.AppendUint32(f.buf, math.Float32bits(s*gain))
	}
	f.out = f.buf
	f.carry = copy(f.in, f.in[whole:total])

	if err != nil {
		if errors.Is(err, io.EOF) && f.carry != 0 {
			err = io.ErrUnexpectedEOF
		}
		f.err = err
	}
}
