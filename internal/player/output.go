// ABOUTME: Audio output using oto library
// ABOUTME: Plays a raw PCM stream as float32 with software volume control
package player

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
)

const pollInterval = 50 * time.Millisecond

// Output manages audio output
type Output struct {
	logger zerolog.Logger
	reader *FloatReader
	volume int
	muted  bool
}

// NewOutput creates an audio output at full volume
func NewOutput() *Output {
	return &Output{
		logger: log.With().Str("component", "output").Logger(),
		volume: 100,
	}
}

// Play plays body until it ends or ctx is cancelled
func (o *Output) Play(ctx context.Context, info rawpcm.Info, body io.Reader) error {
	reader, err := NewFloatReader(body, info.Format.BitDepth)
	if err != nil {
		return err
	}
	reader.SetGain(float32(getVolumeMultiplier(o.volume, o.muted)))
	o.reader = reader

	op := &oto.NewContextOptions{
		SampleRate:   info.Format.SampleRate,
		ChannelCount: info.Format.Channels,
		Format:       oto.FormatFloat32LE,
	}

	otoCtx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	o.logger.Info().
		Str("title", info.Title).
		Object("format", info.Format).
		Msg("Audio output initialized")

	player := otoCtx.NewPlayer(reader)
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			player.Pause()
			return nil
		case <-ticker.C:
		}
	}

	if err := player.Err(); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	return nil
}

// SetVolume sets the volume (0-100)
func (o *Output) SetVolume(volume int) {
	o.volume = min(max(volume, 0), 100)
	o.applyGain()
	o.logger.Debug().Int("volume", o.volume).Msg("Volume set")
}

// SetMuted sets mute state
func (o *Output) SetMuted(muted bool) {
	o.muted = muted
	o.applyGain()
	o.logger.Debug().Bool("muted", muted).Msg("Mute changed")
}

// GetVolume returns current volume
func (o *Output) GetVolume() int {
	return o.volume
}

// IsMuted returns mute state
func (o *Output) IsMuted() bool {
	return o.muted
}

func (o *Output) applyGain() {
	if o.reader != nil {
		o.reader.SetGain(float32(getVolumeMultiplier(o.volume, o.muted)))
	}
}

// getVolumeMultiplier calculates volume multiplier
func getVolumeMultiplier(volume int, muted bool) float64 {
	if muted {
		return 0.0
	}
	return float64(volume) / 100.0
}
