// ABOUTME: Live capture backends
// ABOUTME: malgo by default, PortAudio behind a build tag, and a software tone device
// Package capture abstracts audio input devices.
//
// A Backend enumerates devices and opens one in its native format. The
// returned Input delivers interleaved batches to a source.Sink from the
// backend's real-time callback thread until it is closed.
//
//	backend, err := capture.New("malgo")
//	in, err := backend.Open("") // default input device
//	log.Info().Object("format", in.Format()).Msg("capturing")
//	err = in.Start(sink)
//	defer in.Close()
package capture
