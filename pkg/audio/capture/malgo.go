// ABOUTME: Capture backend using miniaudio via malgo
// ABOUTME: Opens devices in their native format and converts callback bytes to sample batches
package capture

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
)

// Malgo captures through the platform's default miniaudio backend
type Malgo struct {
	ctx    *malgo.AllocatedContext
	logger zerolog.Logger
}

// NewMalgo initializes a miniaudio context
func NewMalgo() (*Malgo, error) {
	logger := log.With().Str("component", "malgo").Logger()

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		logger.Debug().Msg(strings.TrimSpace(message))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	return &Malgo{ctx: ctx, logger: logger}, nil
}

func (m *Malgo) Name() string { return "malgo" }

func (m *Malgo) Devices() ([]DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("failed to list capture devices: %w", err)
	}

	devices := make([]DeviceInfo, 0, len(infos))
	for _, info := range infos {
		devices = append(devices, DeviceInfo{
			ID:      info.ID.String(),
			Name:    info.Name(),
			Default: info.IsDefault != 0,
		})
	}
	return devices, nil
}

func (m *Malgo) Open(name string) (Input, error) {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Alsa.NoMMap = 1

	device := DeviceInfo{Name: "default", Default: true}
	if name != "" {
		infos, err := m.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, fmt.Errorf("failed to list capture devices: %w", err)
		}
		found := false
		for _, info := range infos {
			if info.Name() == name {
				id := info.ID
				deviceConfig.Capture.DeviceID = id.Pointer()
				device = DeviceInfo{ID: id.String(), Name: info.Name(), Default: info.IsDefault != 0}
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", ErrNoDevice, name)
		}
	}

	in := &malgoInput{device: device}
	callbacks := malgo.DeviceCallbacks{
		Data: in.onData,
		Stop: in.onStop,
	}

	dev, err := malgo.InitDevice(m.ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
	}

	format, err := nativeFormat(dev.CaptureFormat(), int(dev.CaptureChannels()), int(dev.SampleRate()))
	if err != nil {
		dev.Uninit()
		return nil, err
	}

	in.dev = dev
	in.format = format
	in.width = format.BytesPerSample()
	in.batch = source.NewBatch(format.Kind, 0)

	m.logger.Info().
		Str("device", device.Name).
		Str("native", formatName(dev.CaptureFormat())).
		Object("format", format).
		Msg("Opened capture device")

	return in, nil
}

func (m *Malgo) Close() error {
	if err := m.ctx.Uninit(); err != nil {
		return fmt.Errorf("failed to uninit malgo context: %w", err)
	}
	m.ctx.Free()
	return nil
}

// nativeFormat maps a negotiated miniaudio device format onto a sample format
func nativeFormat(ft malgo.FormatType, channels, sampleRate int) (audio.Format, error) {
	format := audio.Format{SampleRate: sampleRate, Channels: channels}
	switch ft {
	case malgo.FormatS16:
		format.BitDepth, format.Kind = 16, audio.KindInt
	case malgo.FormatS24:
		format.BitDepth, format.Kind = 24, audio.KindInt
	case malgo.FormatS32:
		format.BitDepth, format.Kind = 32, audio.KindInt
	case malgo.FormatF32:
		format.BitDepth, format.Kind = 32, audio.KindFloat
	default:
		return audio.Format{}, fmt.Errorf("%w: device format %s", audio.ErrUnsupportedFormat, formatName(ft))
	}
	if err := format.Validate(); err != nil {
		return audio.Format{}, err
	}
	return format, nil
}

func formatName(ft malgo.FormatType) string {
	switch ft {
	case malgo.FormatU8:
		return "U8"
	case malgo.FormatS16:
		return "S16"
	case malgo.FormatS24:
		return "S24"
	case malgo.FormatS32:
		return "S32"
	case malgo.FormatF32:
		return "F32"
	default:
		return "Unknown"
	}
}

type sinkBox struct {
	sink source.Sink
}

type malgoInput struct {
	device DeviceInfo
	format audio.Format
	width  int
	dev    *malgo.Device

	sink    atomic.Value // sinkBox
	closing atomic.Bool
	deaf    atomic.Bool

	// batch is only touched from the callback thread
	batch source.Batch

	closeOnce sync.Once
}

func (in *malgoInput) Device() DeviceInfo    { return in.device }
func (in *malgoInput) Format() audio.Format { return in.format }

func (in *malgoInput) Start(sink source.Sink) error {
	in.sink.Store(sinkBox{sink: sink})
	if err := in.dev.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (in *malgoInput) Close() error {
	in.closeOnce.Do(func() {
		in.closing.Store(true)
		if in.dev.IsStarted() {
			_ = in.dev.Stop()
		}
		in.dev.Uninit()
	})
	return nil
}

func (in *malgoInput) onData(_, pInput []byte, frameCount uint32) {
	if in.deaf.Load() || in.closing.Load() {
		return
	}
	box, ok := in.sink.Load().(sinkBox)
	if !ok {
		return
	}

	n := int(frameCount) * in.format.Channels
	if len(pInput) < n*in.width {
		n = len(pInput) / in.width
	}
	if !box.sink.OnSamples(in.convert(pInput, n)) {
		in.deaf.Store(true)
	}
}

func (in *malgoInput) onStop() {
	if in.closing.Load() {
		return
	}
	if box, ok := in.sink.Load().(sinkBox); ok {
		box.sink.OnError(ErrDeviceStopped)
	}
}

// convert decodes n native little-endian samples into the reusable batch
func (in *malgoInput) convert(data []byte, n int) source.Batch {
	if in.batch.Len() < n {
		in.batch = source.NewBatch(in.format.Kind, n)
	}
	batch := in.batch.Slice(n)

	if in.format.Kind == audio.KindFloat {
		for i := 0; i < n; i++ {
			batch.Float[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		}
		return batch
	}

	switch in.width {
	case 2:
		for i := 0; i < n; i++ {
			batch.Int[i] = int32(int16(binary.LittleEndian.Uint16(data[i*2:])))
		}
	case 3:
		for i := 0; i < n; i++ {
			batch.Int[i] = audio.SampleFrom24Bit([3]byte{data[i*3], data[i*3+1], data[i*3+2]})
		}
	default:
		for i := 0; i < n; i++ {
			batch.Int[i] = int32(binary.LittleEndian.Uint32(data[i*4:]))
		}
	}
	return batch
}
