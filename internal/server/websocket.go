// ABOUTME: WebSocket transport for live sessions
// ABOUTME: Sends a JSON format message followed by one binary message per chunk
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
)

const wsWriteTimeout = 10 * time.Second

// StreamStart is the first message on a websocket stream
type StreamStart struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	Format      string `json:"format"`
	ContentType string `json:"content_type"`
}

func newStreamStart(marker string, info rawpcm.Info) StreamStart {
	return StreamStart{
		Type:        "stream/start",
		Title:       info.Title,
		SampleRate:  info.Format.SampleRate,
		Channels:    info.Format.Channels,
		Format:      info.Format.Name(),
		ContentType: rawpcm.ContentType(marker),
	}
}

// handleWebSocket streams the live device to a websocket client.
// The session is opened before upgrading so open errors keep their HTTP status.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.OpenLive(r.Context())
	if err != nil {
		s.logger.Warn().Err(err).Str("remote", r.RemoteAddr).Msg("WebSocket open failed")
		s.openError(w, err)
		return
	}

	st := sess.Stream()
	defer st.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	logger := s.logger.With().
		Str("session", sess.ID()).
		Str("remote", r.RemoteAddr).
		Str("transport", "websocket").
		Logger()
	logger.Info().Msg("Streaming to client")

	// The hijacked connection no longer cancels the request context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reads only detect the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	start := newStreamStart(s.config.Marker, rawpcm.Info{Title: st.Title(), Format: st.Format()})
	if err := conn.WriteJSON(start); err != nil {
		logger.Debug().Err(err).Msg("Failed to send stream start")
		return
	}

	for {
		chunk, err := st.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.closeWebSocket(conn, websocket.CloseNormalClosure, "stream complete")
			return
		}
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug().Msg("Client disconnected")
				return
			}
			logger.Warn().Err(err).Msg("Stream failed")
			s.closeWebSocket(conn, websocket.CloseInternalServerErr, "stream failed")
			return
		}

		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
			logger.Debug().Err(err).Msg("Client write failed")
			return
		}
	}
}

func (s *Server) closeWebSocket(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}
