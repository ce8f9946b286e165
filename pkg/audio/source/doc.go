// ABOUTME: Sample source contracts and file-backed sources
// ABOUTME: Defines Batch, Sink and Reader plus WAV, MP3, FLAC and tone readers
// Package source defines how samples enter the pipeline.
//
// Push sources (live devices) deliver interleaved batches to a Sink from
// their own real-time callback. Pull sources implement Reader and are
// iterated by the pipeline on a background goroutine. Both carry raw samples
// in their native Format: integers right-justified in the source bit depth,
// or floats nominally in [-1, 1].
package source
