// ABOUTME: Pipeline orchestrator
// ABOUTME: Opens live and file sessions and supervises their producers until they close
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/internal/metrics"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/capture"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/encode"
	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/source"
	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
	"github.com/Resonate-Protocol/rawstream-go/pkg/stream"
)

const (
	// DefaultTitle labels live sessions when no title is configured
	DefaultTitle = "NetworkInput"

	maxEmptyReads = 100
)

var (
	// ErrDeviceBusy is returned when the capture device already feeds a session.
	ErrDeviceBusy = errors.New("capture device busy")

	// ErrNoFile is returned when no file source is configured.
	ErrNoFile = errors.New("no file source configured")

	// ErrShuttingDown is returned for sessions requested during shutdown.
	ErrShuttingDown = errors.New("orchestrator shutting down")
)

// Config controls how sessions are opened
type Config struct {
	// Device is the capture device name; empty selects the default input
	Device string
	// Title labels live sessions
	Title string
	// FilePath is the file served by file sessions
	FilePath string
	// Pace throttles file sessions to real time
	Pace bool
	// OpenFile opens file sources; defaults to source.OpenFile
	OpenFile func(path string) (source.Reader, error)
}

// Orchestrator owns capture backends, file readers and session goroutines
type Orchestrator struct {
	backend capture.Backend
	cfg     Config
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	busy     map[string]string
	closed   bool

	quit chan struct{}
	wg   sync.WaitGroup
}

// New creates an orchestrator capturing through backend
func New(backend capture.Backend, cfg Config, m *metrics.Metrics) *Orchestrator {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.OpenFile == nil {
		cfg.OpenFile = source.OpenFile
	}

	return &Orchestrator{
		backend:  backend,
		cfg:      cfg,
		metrics:  m,
		logger:   log.With().Str("component", "pipeline").Logger(),
		sessions: make(map[string]*Session),
		busy:     make(map[string]string),
		quit:     make(chan struct{}),
	}
}

func (o *Orchestrator) deviceKey() string {
	if o.cfg.Device == "" {
		return "default"
	}
	return o.cfg.Device
}

// DescribeLive reports the stream a live session would carry
func (o *Orchestrator) DescribeLive(ctx context.Context) (rawpcm.Info, error) {
	if err := ctx.Err(); err != nil {
		return rawpcm.Info{}, err
	}

	o.mu.Lock()
	if id, ok := o.busy[o.deviceKey()]; ok {
		if s, ok := o.sessions[id]; ok {
			o.mu.Unlock()
			return rawpcm.Info{Title: s.title, Format: s.wire}, nil
		}
	}
	o.mu.Unlock()

	in, err := o.backend.Open(o.cfg.Device)
	if err != nil {
		return rawpcm.Info{}, fmt.Errorf("failed to open capture device: %w", err)
	}
	defer in.Close()

	return describe(o.cfg.Title, in.Format())
}

// DescribeFile reports the stream a file session would carry
func (o *Orchestrator) DescribeFile(ctx context.Context) (rawpcm.Info, error) {
	if err := ctx.Err(); err != nil {
		return rawpcm.Info{}, err
	}
	if o.cfg.FilePath == "" {
		return rawpcm.Info{}, ErrNoFile
	}

	reader, err := o.cfg.OpenFile(o.cfg.FilePath)
	if err != nil {
		return rawpcm.Info{}, fmt.Errorf("failed to open file source: %w", err)
	}
	defer reader.Close()

	return describe(reader.Title(), reader.Format())
}

// describe applies the checks prepare would make so describing and opening
// the same source agree.
func describe(title string, format audio.Format) (rawpcm.Info, error) {
	if err := format.Validate(); err != nil {
		return rawpcm.Info{}, err
	}
	wire := format.Wire()
	if _, err := wire.ChunkCapacity(); err != nil {
		return rawpcm.Info{}, err
	}
	return rawpcm.Info{Title: title, Format: wire}, nil
}

// OpenLive starts a session capturing from the configured device.
// At most one live session runs per device.
func (o *Orchestrator) OpenLive(ctx context.Context) (*Session, error) {
	key := o.deviceKey()

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if holder, ok := o.busy[key]; ok {
		o.mu.Unlock()
		o.metrics.RecordOpenFailure(string(SourceLive))
		return nil, fmt.Errorf("%w: %s is held by session %s", ErrDeviceBusy, key, holder)
	}
	s := newSession(SourceLive, o.logger)
	o.busy[key] = s.id
	o.mu.Unlock()

	release := func() {
		o.mu.Lock()
		delete(o.busy, key)
		o.mu.Unlock()
	}

	_ = s.transition(StateOpening)
	in, prod, err := o.openLive(ctx, s)
	if err != nil {
		release()
		o.abortOpen(s, err)
		return nil, err
	}

	o.register(s, prod)
	o.wg.Add(1)
	go o.superviseLive(s, in, prod, release)
	return s, nil
}

func (o *Orchestrator) openLive(ctx context.Context, s *Session) (capture.Input, *producer, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	in, err := o.backend.Open(o.cfg.Device)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open capture device: %w", err)
	}

	s.title = o.cfg.Title
	s.device = in.Device().Name
	prod, err := o.prepare(s, in.Format())
	if err != nil {
		in.Close()
		return nil, nil, err
	}

	if err := in.Start(prod); err != nil {
		in.Close()
		return nil, nil, fmt.Errorf("failed to start capture: %w", err)
	}
	return in, prod, nil
}

// OpenFile starts a session replaying the configured file
func (o *Orchestrator) OpenFile(ctx context.Context) (*Session, error) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil, ErrShuttingDown
	}
	o.mu.Unlock()

	s := newSession(SourceFile, o.logger)
	_ = s.transition(StateOpening)

	reader, prod, err := o.openFile(ctx, s)
	if err != nil {
		o.abortOpen(s, err)
		return nil, err
	}

	o.register(s, prod)
	o.wg.Add(1)
	go o.pumpFile(s, reader, prod)
	return s, nil
}

func (o *Orchestrator) openFile(ctx context.Context, s *Session) (source.Reader, *producer, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	if o.cfg.FilePath == "" {
		return nil, nil, ErrNoFile
	}

	reader, err := o.cfg.OpenFile(o.cfg.FilePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file source: %w", err)
	}

	s.title = reader.Title()
	s.device = o.cfg.FilePath
	prod, err := o.prepare(s, reader.Format())
	if err != nil {
		reader.Close()
		return nil, nil, err
	}
	return reader, prod, nil
}

// prepare builds the encoder, chunker and channel for a source format
func (o *Orchestrator) prepare(s *Session, format audio.Format) (*producer, error) {
	enc, err := encode.NewPCM(format)
	if err != nil {
		return nil, err
	}

	ch := stream.NewChannel()
	prod, err := newProducer(enc, ch, o.metrics)
	if err != nil {
		return nil, err
	}

	s.source = format
	s.wire = enc.Wire()
	s.ch = ch
	s.stream = stream.New(ch, s.wire, s.title)
	s.prod = prod
	return prod, nil
}

func (o *Orchestrator) abortOpen(s *Session, err error) {
	s.fail(err)
	_ = s.transition(StateClosed)
	o.metrics.RecordOpenFailure(string(s.kind))
	s.logger.Warn().Err(err).Msg("Session failed to open")
}

func (o *Orchestrator) register(s *Session, prod *producer) {
	_ = s.transition(StateStreaming)

	o.mu.Lock()
	o.sessions[s.id] = s
	o.mu.Unlock()

	o.metrics.RecordSessionStarted(string(s.kind))
	s.logger.Info().
		Str("title", s.title).
		Str("device", s.device).
		Object("native", s.source).
		Object("wire", s.wire).
		Int("chunk_bytes", prod.chunker.Capacity()).
		Msg("Session streaming")
}

// superviseLive waits for the session to end and releases the device
func (o *Orchestrator) superviseLive(s *Session, in capture.Input, prod *producer, release func()) {
	defer o.wg.Done()

	select {
	case <-s.ch.Disconnected():
		prod.halt()
		in.Close()
		release()
		o.end(s, "disconnected")

	case err := <-prod.faults:
		prod.halt()
		in.Close()
		release()
		s.ch.CloseSend(err)
		s.fail(err)
		o.end(s, "failed")

	case <-o.quit:
		in.Close()
		release()
		o.drain(s, prod)
	}
}

// pumpFile iterates the reader on the session's goroutine
func (o *Orchestrator) pumpFile(s *Session, reader source.Reader, prod *producer) {
	defer o.wg.Done()
	defer reader.Close()

	format := reader.Format()
	frames := format.SampleRate / audio.ChunksPerSecond
	batch := source.NewBatch(format.Kind, frames*format.Channels)

	start := time.Now()
	var produced uint64
	empty := 0

	for {
		select {
		case <-s.ch.Disconnected():
			prod.halt()
			o.end(s, "disconnected")
			return
		case <-o.quit:
			o.drain(s, prod)
			return
		default:
		}

		n, err := reader.Read(batch)
		if n > 0 {
			empty = 0
			if !prod.OnSamples(batch.Slice(n)) {
				o.end(s, "disconnected")
				return
			}
			produced += uint64(n / format.Channels)
		}

		switch {
		case errors.Is(err, io.EOF):
			o.drain(s, prod)
			return
		case err != nil:
			o.failSession(s, prod, fmt.Errorf("file source read: %w", err))
			return
		case n == 0:
			if empty++; empty >= maxEmptyReads {
				o.failSession(s, prod, fmt.Errorf("file source read: %w", io.ErrNoProgress))
				return
			}
		}

		if o.cfg.Pace {
			due := start.Add(time.Duration(produced) * time.Second / time.Duration(format.SampleRate))
			if wait := time.Until(due); wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-timer.C:
				case <-s.ch.Disconnected():
					timer.Stop()
				case <-o.quit:
					timer.Stop()
				}
			}
		}
	}
}

func (o *Orchestrator) failSession(s *Session, prod *producer, err error) {
	prod.halt()
	s.ch.CloseSend(err)
	s.fail(err)
	o.end(s, "failed")
}

// drain flushes the partial chunk and ends the stream cleanly
func (o *Orchestrator) drain(s *Session, prod *producer) {
	_ = s.transition(StateDraining)
	prod.finish()
	s.ch.CloseSend(nil)
	o.end(s, "completed")
}

func (o *Orchestrator) end(s *Session, outcome string) {
	info := s.Info()

	o.mu.Lock()
	delete(o.sessions, s.id)
	o.mu.Unlock()

	_ = s.transition(StateClosed)

	duration := time.Since(s.started)
	o.metrics.RecordSessionEnded(string(s.kind), outcome, duration.Seconds())

	err := s.Err()
	level := zerolog.InfoLevel
	if err != nil {
		level = zerolog.WarnLevel
	}
	s.logger.WithLevel(level).Err(err).
		Str("outcome", outcome).
		Uint64("bytes", info.Bytes).
		Uint64("chunks", info.Chunks).
		Dur("duration", duration).
		Msg("Session closed")
}

// Sessions returns snapshots of the active sessions, oldest first
func (o *Orchestrator) Sessions() []SessionInfo {
	o.mu.Lock()
	active := make([]*Session, 0, len(o.sessions))
	for _, s := range o.sessions {
		active = append(active, s)
	}
	o.mu.Unlock()

	infos := make([]SessionInfo, 0, len(active))
	for _, s := range active {
		infos = append(infos, s.Info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Started.Before(infos[j].Started)
	})
	return infos
}

// Shutdown drains every session and waits for their goroutines
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.quit)
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info().Msg("All sessions closed")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions: %w", ctx.Err())
	}
}
