// ABOUTME: Audio encoder package for converting native samples to wire PCM
// ABOUTME: Provides the PCM encoder and the pure per-sample conversions behind it
// Package encode converts raw source samples into the fixed wire
// representation: signed little-endian integers at the wire bit depth.
//
// Integer samples are re-justified to the wire depth: narrower sources are
// shifted left, wider sources are shifted right. Float samples are scaled by
// 2^(W-1), rounded half away from zero and clamped, so out-of-range input
// saturates instead of wrapping.
//
// Example:
//
//	enc, err := encode.NewPCM(audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 32, Kind: audio.KindFloat})
//	buf = enc.AppendFloat(buf, 0.5) // 3 bytes, int24le
package encode
