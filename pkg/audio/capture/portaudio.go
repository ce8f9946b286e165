//go:build portaudio

// ABOUTME: Capture backend using PortAudio
// ABOUTME: Requires building with -tags portaudio and the native library
package capture

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
)

// PortAudio captures float32 frames through PortAudio
type PortAudio struct {
	logger zerolog.Logger
}

// NewPortAudio initializes the PortAudio library
func NewPortAudio() (Backend, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &PortAudio{logger: log.With().Str("component", "portaudio").Logger()}, nil
}

func (p *PortAudio) Name() string { return "portaudio" }

func (p *PortAudio) Devices() ([]DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	var defaultName string
	if def, err := portaudio.DefaultInputDevice(); err == nil {
		defaultName = def.Name
	}

	var devices []DeviceInfo
	for i, info := range infos {
		if info.MaxInputChannels == 0 {
			continue
		}
		devices = append(devices, DeviceInfo{
			ID:      fmt.Sprintf("%d", i),
			Name:    info.Name,
			Default: info.Name == defaultName,
		})
	}
	return devices, nil
}

func (p *PortAudio) Open(name string) (Input, error) {
	dev, err := p.find(name)
	if err != nil {
		return nil, err
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = channels

	format := audio.Format{
		SampleRate: int(dev.DefaultSampleRate),
		Channels:   channels,
		BitDepth:   32,
		Kind:       audio.KindFloat,
	}
	if err := format.Validate(); err != nil {
		return nil, err
	}

	p.logger.Info().Str("device", dev.Name).Object("format", format).Msg("Opened capture device")

	return &portaudioInput{
		device: DeviceInfo{Name: dev.Name, Default: name == ""},
		format: format,
		params: params,
	}, nil
}

func (p *PortAudio) find(name string) (*portaudio.DeviceInfo, error) {
	if name == "" {
		dev, err := portaudio.DefaultInputDevice()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		return dev, nil
	}

	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, info := range infos {
		if info.Name == name && info.MaxInputChannels > 0 {
			return info, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDevice, name)
}

func (p *PortAudio) Close() error {
	return portaudio.Terminate()
}

type portaudioInput struct {
	device DeviceInfo
	format audio.Format
	params portaudio.StreamParameters

	mu     sync.Mutex
	stream *portaudio.Stream
	sink   source.Sink
	deaf   bool
}

func (in *portaudioInput) Device() DeviceInfo    { return in.device }
func (in *portaudioInput) Format() audio.Format { return in.format }

func (in *portaudioInput) Start(sink source.Sink) error {
	in.mu.Lock()
	defer in.mu.Unlock()

	in.sink = sink
	stream, err := portaudio.OpenStream(in.params, in.process)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}
	in.stream = stream
	return nil
}

func (in *portaudioInput) process(samples []float32) {
	if in.deaf {
		return
	}
	if !in.sink.OnSamples(source.Batch{Float: samples}) {
		in.deaf = true
	}
}

func (in *portaudioInput) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.stream == nil {
		return nil
	}
	stream := in.stream
	in.stream = nil
	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return stream.Close()
}
