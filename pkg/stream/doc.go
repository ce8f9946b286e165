// ABOUTME: Chunked producer/consumer plumbing between a sample source and a response body
// ABOUTME: Provides the Chunker, the unbounded transfer Channel and the pull-based Stream
// Package stream moves encoded wire bytes from a real-time producer to an
// asynchronous consumer.
//
// A Chunker groups bytes into fixed-capacity chunks. Sealed chunks are handed
// to a Channel, which never blocks the producer and reports consumer
// disconnect through Send's return value. A Stream wraps the receiving end as
// the pull-based sequence an HTTP handler drains:
//
//	ch := stream.NewChannel()
//	s := stream.New(ch, wire, "NetworkInput")
//	for {
//	    chunk, err := s.Next(ctx)
//	    if err == io.EOF {
//	        break // clean end of stream
//	    }
//	    ...
//	}
package stream
