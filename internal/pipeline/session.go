// ABOUTME: Streaming session
// ABOUTME: Tracks identity, formats, state and transfer counters for one consumer
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
	"github.com/Resonate-Protocol/rawstream-go/pkg/stream"
)

// SourceKind names the source variant feeding a session
type SourceKind string

const (
	SourceLive SourceKind = "live"
	SourceFile SourceKind = "file"
)

// Session is one source-to-consumer stream
type Session struct {
	id      string
	kind    SourceKind
	started time.Time
	logger  zerolog.Logger

	// Set while opening, read-only afterwards
	title  string
	device string
	source audio.Format
	wire   audio.Format
	ch     *stream.Channel
	stream *stream.Stream
	prod   *producer

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

// SessionInfo is a point-in-time snapshot of a session
type SessionInfo struct {
	ID         string     `json:"id"`
	Source     SourceKind `json:"source"`
	Title      string     `json:"title"`
	Device     string     `json:"device,omitempty"`
	Format     string     `json:"format"`
	State      string     `json:"state"`
	Bytes      uint64     `json:"bytes"`
	Chunks     uint64     `json:"chunks"`
	QueueDepth int        `json:"queue_depth"`
	Started    time.Time  `json:"started"`
}

func newSession(kind SourceKind, logger zerolog.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:      id,
		kind:    kind,
		started: time.Now(),
		logger:  logger.With().Str("session", id).Str("source", string(kind)).Logger(),
		state:   StateIdle,
		done:    make(chan struct{}),
	}
}

// ID is the session's unique identifier
func (s *Session) ID() string { return s.id }

// Kind is the source variant
func (s *Session) Kind() SourceKind { return s.kind }

// Stream is the consumer end of the session
func (s *Session) Stream() *stream.Stream { return s.stream }

// Done is closed once the session reaches StateClosed
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the current state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that failed the session, if any
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Info returns a snapshot of the session
func (s *Session) Info() SessionInfo {
	info := SessionInfo{
		ID:      s.id,
		Source:  s.kind,
		Title:   s.title,
		Device:  s.device,
		Format:  s.wire.String(),
		State:   s.State().String(),
		Started: s.started,
	}
	if s.prod != nil {
		info.Bytes = s.prod.bytes.Load()
		info.Chunks = s.prod.chunks.Load()
	}
	if s.ch != nil {
		info.QueueDepth = s.ch.Len()
	}
	return info
}

// transition moves the session to the next state, rejecting illegal moves
func (s *Session) transition(to State) error {
	s.mu.Lock()
	from := s.state
	if !canTransition(from, to) {
		s.mu.Unlock()
		s.logger.Error().Str("from", from.String()).Str("to", to.String()).Msg("Illegal session transition")
		return fmt.Errorf("illegal session transition %s -> %s", from, to)
	}
	s.state = to
	if to == StateClosed {
		close(s.done)
	}
	s.mu.Unlock()

	s.logger.Debug().Str("from", from.String()).Str("to", to.String()).Msg("Session state changed")
	return nil
}

// fail records err and moves through Failed
func (s *Session) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	_ = s.transition(StateFailed)
}
