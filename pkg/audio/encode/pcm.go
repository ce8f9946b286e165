// ABOUTME: PCM audio encoder
// ABOUTME: Encodes integer or float samples to 16/24-bit little-endian wire PCM
package encode

import (
	"fmt"
	"math"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// PCMEncoder encodes samples of one source format to its wire format
type PCMEncoder struct {
	source audio.Format
	wire   audio.Format
}

// NewPCM creates an encoder for samples in the given source format
func NewPCM(source audio.Format) (*PCMEncoder, error) {
	if err := source.Validate(); err != nil {
		return nil, fmt.Errorf("invalid source format for PCM encoder: %w", err)
	}

	return &PCMEncoder{
		source: source,
		wire:   source.Wire(),
	}, nil
}

// Source returns the format the encoder accepts
func (e *PCMEncoder) Source() audio.Format {
	return e.source
}

// Wire returns the format the encoder produces
func (e *PCMEncoder) Wire() audio.Format {
	return e.wire
}

// AppendInt appends the wire encoding of one integer sample to dst
func (e *PCMEncoder) AppendInt(dst []byte, sample int32) []byte {
	return PutSample(dst, ConvertInt(sample, e.source.BitDepth, e.wire.BitDepth), e.wire.BitDepth)
}

// AppendFloat appends the wire encoding of one float sample to dst
func (e *PCMEncoder) AppendFloat(dst []byte, sample float32) []byte {
	return PutSample(dst, QuantizeFloat(float64(sample), e.wire.BitDepth), e.wire.BitDepth)
}

// ConvertInt moves a sample right-justified in srcBits to dstBits.
// Widening pads with zero low bits; narrowing drops low bits.
func ConvertInt(sample int32, srcBits, dstBits int) int32 {
	switch {
	case srcBits < dstBits:
		return sample << uint(dstBits-srcBits)
	case srcBits > dstBits:
		return sample >> uint(srcBits-dstBits)
	default:
		return sample
	}
}

// QuantizeFloat maps a float sample to a signed integer of the given width.
func QuantizeFloat(sample float64, bits int) int32 {
	if math.IsNaN(sample) {
		return 0
	}

	scale := float64(int64(1) << uint(bits-1))
	q := math.Round(sample * scale)
	if q > scale-1 {
		q = scale - 1
	} else if q < -scale {
		q = -scale
	}
	return int32(q)
}

// PutSample appends the low bits/8 bytes of sample, little-endian
func PutSample(dst []byte, sample int32, bits int) []byte {
	switch bits {
	case 16:
		return append(dst, byte(sample), byte(sample>>8))
	case 24:
		b := audio.SampleTo24Bit(sample)
		return append(dst, b[0], b[1], b[2])
	default:
		return append(dst, byte(sample), byte(sample>>8), byte(sample>>16), byte(sample>>24))
	}
}
