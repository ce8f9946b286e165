// ABOUTME: Capture-to-stream pipeline orchestration
// ABOUTME: Opens sources, wires encoder, chunker and channel, and supervises sessions
// Package pipeline runs streaming sessions.
//
// A session connects one sample source (a live capture device or a decoded
// file) to one consumer through encode → chunk → transfer. The Orchestrator
// owns the device handles and the background goroutines and moves each
// session through
//
//	Idle → Opening → Streaming → Draining → Closed
//	                          ↘ Failed → Closed
//	                          ↘ Closed (consumer disconnected)
//
// Opening errors are returned synchronously so callers can reject a request
// before committing any response bytes.
package pipeline
