// ABOUTME: Main server implementation for raw PCM streaming
// ABOUTME: Owns the HTTP listener, mDNS advertisement and TUI around a pipeline orchestrator
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Resonate-Protocol/rawstream-go/internal/discovery"
	"github.com/Resonate-Protocol/rawstream-go/internal/metrics"
	"github.com/Resonate-Protocol/rawstream-go/internal/pipeline"
	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
)

const (
	// LivePath streams the capture device
	LivePath = "/stream.raw"

	// FilePath streams the configured file
	FilePath = "/file.raw"

	// WebSocketPath streams the capture device over a websocket
	WebSocketPath = "/stream.ws"

	shutdownTimeout = 5 * time.Second
)

// Config holds server configuration
type Config struct {
	Address    string
	Port       int
	Name       string
	Marker     string
	EnableMDNS bool
	UseTUI     bool
}

// Addr returns the listen address
func (c Config) Addr() string {
	return net.JoinHostPort(c.Address, strconv.Itoa(c.Port))
}

// Server serves pipeline sessions over HTTP
type Server struct {
	config  Config
	orch    *pipeline.Orchestrator
	metrics *metrics.Metrics
	logger  zerolog.Logger

	upgrader   websocket.Upgrader
	httpServer *http.Server
	mux        *http.ServeMux

	mdnsManager *discovery.Manager
	tui         *ServerTUI
	startTime   time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a server streaming sessions opened by orch
func New(config Config, orch *pipeline.Orchestrator, m *metrics.Metrics) *Server {
	if config.Marker == "" {
		config.Marker = rawpcm.DefaultMarker
	}

	s := &Server{
		config:  config,
		orch:    orch,
		metrics: m,
		logger:  log.With().Str("component", "server").Logger(),
		mux:     http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
			// Served to trusted local networks only
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	s.setupRoutes()

	// No write timeout: streams are unbounded
	s.httpServer = &http.Server{
		Addr:              config.Addr(),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the server's route multiplexer
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called, the TUI quits or the listener fails.
// Sessions are drained before it returns.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ln)
}

// Serve is Start on an existing listener
func (s *Server) Serve(ln net.Listener) error {
	if s.config.UseTUI {
		s.tui = NewServerTUI(s.config.Name, s.config.Addr())

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(); err != nil {
				s.logger.Error().Err(err).Msg("TUI error")
			}
		}()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.refreshTUI()
		}()
	}

	if s.config.EnableMDNS {
		_, port, _ := net.SplitHostPort(ln.Addr().String())
		p, _ := strconv.Atoi(port)
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        p,
			LivePath:    LivePath,
			FilePath:    FilePath,
			Marker:      s.config.Marker,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to start mDNS advertisement")
		}
	}

	s.logger.Info().
		Str("name", s.config.Name).
		Str("address", ln.Addr().String()).
		Str("content_type", rawpcm.ContentType(s.config.Marker)).
		Msg("Server listening")

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var tuiQuit <-chan struct{}
	if s.tui != nil {
		tuiQuit = s.tui.QuitChan()
	}

	var serverErr error
	select {
	case <-s.stopChan:
		s.logger.Info().Msg("Server shutting down")
	case <-tuiQuit:
		s.logger.Info().Msg("TUI quit requested, shutting down")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		serverErr = err
	}

	s.Stop()
	s.shutdown()

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

func (s *Server) shutdown() {
	if s.tui != nil {
		s.tui.Stop()
	}
	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Draining sessions end their responses, which lets Shutdown finish
	if err := s.orch.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("Sessions did not drain")
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("HTTP server shutdown error")
		s.httpServer.Close()
	}

	s.wg.Wait()
	s.logger.Info().Msg("Server stopped cleanly")
}

// Stop asks a running server to shut down
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}
