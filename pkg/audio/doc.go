// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, its wire projection and packed sample conversion
// Package audio provides the sample format descriptor shared by every stage of
// the raw streaming pipeline.
//
// A Format describes what a source produces natively. Wire returns the
// format actually written to clients: same rate and channel layout, signed
// little-endian integers, at most 24 bits.
//
// Example:
//
//	native := audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 32, Kind: audio.KindFloat}
//	wire := native.Wire()             // 48000 Hz, 2 ch, int24le
//	size, err := wire.ChunkCapacity() // 28800 bytes per 100 ms chunk
package audio
