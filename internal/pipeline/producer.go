// ABOUTME: Producer side of a session
// ABOUTME: Encodes sample batches, seals chunks and hands them to the transfer channel
package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Resonate-Protocol/rawstream-go/internal/metrics"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
	"github.com/Resonate-Protocol/rawstream-go/pkg/stream"
)

// producer is the source.Sink of one session. OnSamples never blocks beyond
// the channel's short critical section.
type producer struct {
	enc     *encode.PCMEncoder
	ch      *stream.Channel
	metrics *metrics.Metrics

	mu      sync.Mutex
	chunker *stream.Chunker
	scratch []byte
	stopped bool

	bytes  atomic.Uint64
	chunks atomic.Uint64
	faults chan error
}

func newProducer(enc *encode.PCMEncoder, ch *stream.Channel, m *metrics.Metrics) (*producer, error) {
	capacity, err := enc.Wire().ChunkCapacity()
	if err != nil {
		return nil, err
	}
	chunker, err := stream.NewChunker(capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	return &producer{
		enc:     enc,
		ch:      ch,
		metrics: m,
		chunker: chunker,
		faults:  make(chan error, 1),
	}, nil
}

func (p *producer) OnSamples(b source.Batch) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return false
	}
	select {
	case <-p.ch.Disconnected():
		p.stopped = true
		return false
	default:
	}

	encoded := p.scratch[:0]
	if b.Float != nil {
		for _, sample := range b.Float {
			encoded = p.enc.AppendFloat(encoded, sample)
		}
	} else {
		for _, sample := range b.Int {
			encoded = p.enc.AppendInt(encoded, sample)
		}
	}
	p.scratch = encoded

	for _, chunk := range p.chunker.Push(encoded) {
		if !p.send(chunk) {
			p.stopped = true
			return false
		}
	}
	return true
}

func (p *producer) OnError(err error) {
	select {
	case p.faults <- err:
	default:
	}
}

// send must be called with mu held
func (p *producer) send(chunk []byte) bool {
	if !p.ch.Send(chunk) {
		return false
	}
	p.bytes.Add(uint64(len(chunk)))
	p.chunks.Add(1)
	p.metrics.RecordChunkSent(len(chunk), p.ch.Len())
	return true
}

// finish flushes the partial chunk and stops accepting samples
func (p *producer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.stopped {
		if rest := p.chunker.Flush(); rest != nil {
			p.send(rest)
		}
	}
	p.stopped = true
}

// halt stops accepting samples and drops anything pending
func (p *producer) halt() {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
}
