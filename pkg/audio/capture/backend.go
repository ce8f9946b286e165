// ABOUTME: Backend and Input interfaces for live capture
// ABOUTME: Selects a backend implementation by name
package capture

import (
	"errors"
	"fmt"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
)

var (
	// ErrNoDevice is returned when no matching input device exists.
	ErrNoDevice = errors.New("no input device available")

	// ErrDeviceStopped is reported to the sink when a device stops on its own.
	ErrDeviceStopped = errors.New("input device stopped unexpectedly")
)

// DeviceInfo describes one input device
type DeviceInfo struct {
	ID      string
	Name    string
	Default bool
}

// Backend discovers and opens input devices
type Backend interface {
	// Name identifies the backend, e.g. "malgo"
	Name() string
	// Devices lists the available input devices
	Devices() ([]DeviceInfo, error)
	// Open negotiates the native format of the named device, or of the
	// default input device when name is empty. Capture starts with Input.Start.
	Open(name string) (Input, error)
	// Close releases the backend
	Close() error
}

// Input is one opened capture device
type Input interface {
	Device() DeviceInfo
	Format() audio.Format
	// Start begins delivering batches to sink
	Start(sink source.Sink) error
	// Close stops capture and releases the device. No callbacks run after
	// it returns. It is safe to call more than once.
	Close() error
}

// New creates the backend registered under name
func New(name string) (Backend, error) {
	switch name {
	case "", "malgo":
		return NewMalgo()
	case "portaudio":
		return NewPortAudio()
	case "tone":
		return NewTone(), nil
	default:
		return nil, fmt.Errorf("unknown capture backend: %s (supported: malgo, portaudio, tone)", name)
	}
}
