// ABOUTME: Fixed-capacity chunk assembly
// ABOUTME: Seals chunks exactly at capacity and flushes the partial remainder
package stream

import (
	"fmt"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

// Chunker accumulates bytes into chunks of a fixed capacity.
// It is not safe for concurrent use.
type Chunker struct {
	capacity int
	current  []byte
}

// NewChunker creates a chunker that seals chunks of exactly capacity bytes
func NewChunker(capacity int) (*Chunker, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity %d", audio.ErrZeroCapacity, capacity)
	}
	return &Chunker{
		capacity: capacity,
		current:  make([]byte, 0, capacity),
	}, nil
}

// Push appends p and returns every chunk it sealed, in order.
// Returned chunks are owned by the caller.
func (c *Chunker) Push(p []byte) [][]byte {
	var sealed [][]byte
	for len(p) > 0 {
		n := c.capacity - len(c.current)
		if n > len(p) {
			n = len(p)
		}
		c.current = append(c.current, p[:n]...)
		p = p[n:]

		if len(c.current) == c.capacity {
			sealed = append(sealed, c.current)
			c.current = make([]byte, 0, c.capacity)
		}
	}
	return sealed
}

// Flush returns the partial chunk, or nil if nothing is pending
func (c *Chunker) Flush() []byte {
	if len(c.current) == 0 {
		return nil
	}
	rest := c.current
	c.current = make([]byte, 0, c.capacity)
	return rest
}

// Pending is the number of bytes in the unsealed chunk
func (c *Chunker) Pending() int {
	return len(c.current)
}

// Capacity is the fixed sealed chunk size
func (c *Chunker) Capacity() int {
	return c.capacity
}
