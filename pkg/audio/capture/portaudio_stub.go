//go:build !portaudio

// ABOUTME: Stub for the PortAudio capture backend
// ABOUTME: Used when building without the portaudio tag
package capture

import "errors"

// NewPortAudio reports that PortAudio support was not compiled in
func NewPortAudio() (Backend, error) {
	return nil, errors.New("PortAudio support not enabled (build with -tags portaudio)")
}
