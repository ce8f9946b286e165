// ABOUTME: Tests for the streaming adapter
// ABOUTME: Tests that Next and Close map onto the underlying channel
package stream

import (
	"context"
	"io"
	"testing"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

func TestStreamNext(t *testing.T) {
	ch := NewChannel()
	wire := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24}
	s := New(ch, wire, "NetworkInput")

	if s.Format() != wire || s.Title() != "NetworkInput" {
		t.Errorf("unexpected stream description: %s %q", s.Format(), s.Title())
	}

	ch.Send([]byte{1, 2, 3})
	ch.CloseSend(nil)

	chunk, err := s.Next(context.Background())
	if err != nil || len(chunk) != 3 {
		t.Fatalf("expected chunk, got %v, %v", chunk, err)
	}
	if _, err := s.Next(context.Background()); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestStreamCloseDisconnectsProducer(t *testing.T) {
	ch := NewChannel()
	s := New(ch, audio.Format{}, "")

	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if ch.Send([]byte{1}) {
		t.Error("producer send succeeded after stream close")
	}
}
