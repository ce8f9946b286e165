// ABOUTME: Pull-based chunk sequence over a Channel
// ABOUTME: Adapts the receiving end of the pipeline for streaming response bodies
package stream

import (
	"context"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// Stream is the consumer view of one streaming session
type Stream struct {
	ch     *Channel
	format audio.Format
	title  string
}

// New wraps ch as a Stream carrying samples of the given wire format
func New(ch *Channel, format audio.Format, title string) *Stream {
	return &Stream{ch: ch, format: format, title: title}
}

// Next returns the next chunk. It returns io.EOF when the stream ended
// cleanly; any other error means the stream must be aborted.
func (s *Stream) Next(ctx context.Context) ([]byte, error) {
	return s.ch.Recv(ctx)
}

// Close signals the producer that the consumer disconnected
func (s *Stream) Close() error {
	s.ch.Close()
	return nil
}

// Format is the wire format of every chunk
func (s *Stream) Format() audio.Format {
	return s.format
}

// Title is the label of the source feeding the stream
func (s *Stream) Title() string {
	return s.title
}
