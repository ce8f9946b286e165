// ABOUTME: Sample batch, sink and reader contracts
// ABOUTME: Shared by live capture backends and file readers
package source

import "github.com/Resonate-Protocol/rawstream-go/pkg/audio"

// Batch is a run of interleaved samples. Exactly one of Int or Float is
// used, matching the Kind of the source format.
type Batch struct {
	Int   []int32
	Float []float32
}

// NewBatch allocates a batch of n samples of the given kind
func NewBatch(kind audio.Kind, n int) Batch {
	if kind == audio.KindFloat {
		return Batch{Float: make([]float32, n)}
	}
	return Batch{Int: make([]int32, n)}
}

// Len is the number of samples in the batch
func (b Batch) Len() int {
	if b.Float != nil {
		return len(b.Float)
	}
	return len(b.Int)
}

// Slice returns the first n samples
func (b Batch) Slice(n int) Batch {
	if b.Float != nil {
		return Batch{Float: b.Float[:n]}
	}
	return Batch{Int: b.Int[:n]}
}

// Sink receives samples from a push source.
//
// OnSamples runs on the source's real-time thread and must not block; the
// batch is only valid for the duration of the call. Returning false tells
// the source that nobody is listening anymore. OnError reports a fault that
// ends the source, and must not block either.
type Sink interface {
	OnSamples(b Batch) bool
	OnError(err error)
}

// Reader is a finite pull source
type Reader interface {
	// Format is the native format of the samples Read produces
	Format() audio.Format
	// Title labels the source for clients
	Title() string
	// Read fills b with up to b.Len() samples and returns how many it wrote.
	// It returns io.EOF once the source is exhausted.
	Read(b Batch) (int, error)
	Close() error
}
