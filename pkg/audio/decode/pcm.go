// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16/24/32-bit little-endian PCM to int32 or float32 samples
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// PCMDecoder decodes wire PCM audio
type PCMDecoder struct {
	bitDepth int
	width    int
	scale    float32
}

// NewPCM creates a new PCM decoder for the given wire format
func NewPCM(format audio.Format) (*PCMDecoder, error) {
	if format.Kind != audio.KindInt {
		return nil, fmt.Errorf("invalid sample kind for PCM decoder: %s", format.Kind)
	}

	if format.BitDepth != 16 && format.BitDepth != 24 && format.BitDepth != 32 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", format.BitDepth)
	}

	return &PCMDecoder{
		bitDepth: format.BitDepth,
		width:    format.BitDepth / 8,
		scale:    float32(int64(1) << uint(format.BitDepth-1)),
	}, nil
}

// Width is the packed sample size in bytes
func (d *PCMDecoder) Width() int {
	return d.width
}

// Decode converts PCM bytes to int32 samples
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	if len(data)%d.width != 0 {
		return nil, fmt.Errorf("pcm data length %d is not a multiple of %d", len(data), d.width)
	}

	samples := make([]int32, len(data)/d.width)
	for i := range samples {
		samples[i] = Sample(data[i*d.width:], d.bitDepth)
	}
	return samples, nil
}

// DecodeFloat converts PCM bytes to float32 samples in [-1, 1)
func (d *PCMDecoder) DecodeFloat(data []byte) ([]float32, error) {
	if len(data)%d.width != 0 {
		return nil, fmt.Errorf("pcm data length %d is not a multiple of %d", len(data), d.width)
	}

	samples := make([]float32, len(data)/d.width)
	for i := range samples {
		samples[i] = float32(Sample(data[i*d.width:], d.bitDepth)) / d.scale
	}
	return samples, nil
}

// Sample reads one little-endian signed sample of the given width from b
func Sample(b []byte, bits int) int32 {
	switch bits {
	case 16:
		return int32(int16(binary.LittleEndian.Uint16(b)))
	case 24:
		return audio.SampleFrom24Bit([3]byte{b[0], b[1], b[2]})
	default:
		return int32(binary.LittleEndian.Uint32(b))
	}
}
