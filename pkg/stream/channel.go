// ABOUTME: Unbounded single-producer single-consumer chunk channel
// ABOUTME: Never blocks the producer and signals consumer disconnect back to it
package stream

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrClosed is returned by Recv after the consumer closed the channel.
var ErrClosed = errors.New("stream: channel closed by consumer")

// Channel carries sealed chunks from one producer to one consumer, in order.
//
// Send appends to an unbounded queue and returns immediately. Memory stays
// bounded because the consumer drains promptly and the producer stops as soon
// as Send reports that the consumer is gone.
type Channel struct {
	notify chan struct{}
	gone   chan struct{}

	mu       sync.Mutex
	queue    [][]byte
	finished bool
	err      error
	left     bool
}

// NewChannel creates an empty channel
func NewChannel() *Channel {
	return &Channel{
		notify: make(chan struct{}, 1),
		gone:   make(chan struct{}),
	}
}

// Send enqueues chunk. It returns false once the consumer has disconnected or
// the producer side is closed; the chunk is then dropped.
func (c *Channel) Send(chunk []byte) bool {
	c.mu.Lock()
	if c.left || c.finished {
		c.mu.Unlock()
		return false
	}
	c.queue = append(c.queue, chunk)
	c.mu.Unlock()

	c.wake()
	return true
}

// CloseSend marks the producer finished. A nil err ends the stream cleanly
// once queued chunks are drained; a non-nil err is reported to the consumer
// after them. Only the first call has effect.
func (c *Channel) CloseSend(err error) {
	c.mu.Lock()
	if c.finished {
		c.mu.Unlock()
		return
	}
	c.finished = true
	c.err = err
	c.mu.Unlock()

	c.wake()
}

// Recv returns the next chunk, blocking until one is available.
// It returns io.EOF after a clean finish and the producer's error after a
// failed one.
func (c *Channel) Recv(ctx context.Context) ([]byte, error) {
	for {
		c.mu.Lock()
		if c.left {
			c.mu.Unlock()
			return nil, ErrClosed
		}
		if len(c.queue) > 0 {
			chunk := c.queue[0]
			c.queue[0] = nil
			c.queue = c.queue[1:]
			c.mu.Unlock()
			return chunk, nil
		}
		if c.finished {
			err := c.err
			c.mu.Unlock()
			if err == nil {
				return nil, io.EOF
			}
			return nil, err
		}
		c.mu.Unlock()

		select {
		case <-c.notify:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Close is called by the consumer when it stops reading. Queued chunks are
// dropped and Disconnected is closed.
func (c *Channel) Close() {
	c.mu.Lock()
	if c.left {
		c.mu.Unlock()
		return
	}
	c.left = true
	c.queue = nil
	c.mu.Unlock()

	close(c.gone)
	c.wake()
}

// Disconnected is closed once the consumer has gone away
func (c *Channel) Disconnected() <-chan struct{} {
	return c.gone
}

// Len is the number of queued chunks
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Channel) wake() {
	select {
	case c.notify <- struct{}{}:
	default:
	}
}
