// ABOUTME: Audio decoder package for reading wire PCM back into samples
// ABOUTME: Used by the player and by round-trip tests of the encoder
// Package decode parses signed little-endian wire PCM (int16le, int24le,
// int32le) into int32 samples right-justified in the wire depth, or into
// float32 samples normalized to [-1, 1).
package decode
