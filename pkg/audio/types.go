// ABOUTME: Audio type definitions
// ABOUTME: Defines sample formats, wire format derivation and 24-bit packing
package audio

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23

	// MaxWireBitDepth is the widest sample written to clients.
	MaxWireBitDepth = 24

	// ChunksPerSecond fixes chunk duration at 100 ms of audio.
	ChunksPerSecond = 10
)

var (
	// ErrUnsupportedFormat is returned for formats the pipeline cannot carry.
	ErrUnsupportedFormat = errors.New("unsupported sample format")

	// ErrZeroCapacity is returned when a format yields an empty chunk.
	ErrZeroCapacity = errors.New("chunk capacity is zero")
)

// Kind distinguishes integer from floating point samples.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Format describes an interleaved PCM sample stream
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Kind       Kind
}

// Validate reports whether the format is one the pipeline can encode.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrUnsupportedFormat, f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrUnsupportedFormat, f.Channels)
	}
	switch f.Kind {
	case KindInt:
		if f.BitDepth != 16 && f.BitDepth != 24 && f.BitDepth != 32 {
			return fmt.Errorf("%w: bit depth %d (supported: 16, 24, 32)", ErrUnsupportedFormat, f.BitDepth)
		}
	case KindFloat:
		if f.BitDepth != 32 {
			return fmt.Errorf("%w: float bit depth %d (supported: 32)", ErrUnsupportedFormat, f.BitDepth)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, f.Kind)
	}
	return nil
}

// Wire returns the format written on the wire for samples of this format.
func (f Format) Wire() Format {
	bits := f.BitDepth
	if bits > MaxWireBitDepth {
		bits = MaxWireBitDepth
	}
	return Format{
		SampleRate: f.SampleRate,
		Channels:   f.Channels,
		BitDepth:   bits,
		Kind:       KindInt,
	}
}

// BytesPerSample is the packed width of one sample.
func (f Format) BytesPerSample() int {
	return f.BitDepth / 8
}

// ChunkCapacity returns the byte size of 100 ms of interleaved samples.
func (f Format) ChunkCapacity() (int, error) {
	size := f.BytesPerSample() * (f.SampleRate / ChunksPerSecond) * f.Channels
	if size <= 0 {
		return 0, fmt.Errorf("%w: %s", ErrZeroCapacity, f)
	}
	return size, nil
}

// Name returns the raw format label, e.g. "int24le".
func (f Format) Name() string {
	if f.Kind == KindFloat {
		return fmt.Sprintf("float%dle", f.BitDepth)
	}
	return fmt.Sprintf("int%dle", f.BitDepth)
}

func (f Format) String() string {
	return fmt.Sprintf("%d Hz, %d ch, %s", f.SampleRate, f.Channels, f.Name())
}

// MarshalZerologObject logs the format as structured fields.
func (f Format) MarshalZerologObject(e *zerolog.Event) {
	e.Int("sample_rate", f.SampleRate).
		Int("channels", f.Channels).
		Int("bit_depth", f.BitDepth).
		Str("kind", f.Kind.String())
}

// SampleTo24Bit converts int32 to 24-bit packed bytes (little-endian)
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{
		byte(sample),
		byte(sample >> 8),
		byte(sample >> 16),
	}
}

// SampleFrom24Bit converts 24-bit packed bytes to int32 (little-endian)
func SampleFrom24Bit(b [3]byte) int32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return val
}
