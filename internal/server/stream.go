// ABOUTME: Raw PCM stream handlers
// ABOUTME: Opens a session per request and writes its chunks as the response body
package server

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/Resonate-Protocol/rawstream-go/internal/pipeline"
	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
)

// handleRaw serves GET and HEAD for one source kind
func (s *Server) handleRaw(kind pipeline.SourceKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
		default:
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		logger := s.logger.With().
			Str("source", string(kind)).
			Str("remote", r.RemoteAddr).
			Logger()

		if r.Method == http.MethodHead {
			info, err := s.describe(r.Context(), kind)
			if err != nil {
				logger.Warn().Err(err).Msg("Describe failed")
				s.openError(w, err)
				return
			}
			s.writeHeaders(w, info)
			w.WriteHeader(http.StatusOK)
			return
		}

		sess, err := s.open(r.Context(), kind)
		if err != nil {
			logger.Warn().Err(err).Msg("Open failed")
			s.openError(w, err)
			return
		}

		st := sess.Stream()
		defer st.Close()

		logger = logger.With().Str("session", sess.ID()).Logger()
		logger.Info().Msg("Streaming to client")

		s.writeHeaders(w, rawpcm.Info{Title: st.Title(), Format: st.Format()})
		w.WriteHeader(http.StatusOK)
		rc := http.NewResponseController(w)

		for {
			chunk, err := st.Next(r.Context())
			if errors.Is(err, io.EOF) {
				logger.Debug().Msg("Stream complete")
				return
			}
			if err != nil {
				if r.Context().Err() != nil {
					logger.Debug().Msg("Client disconnected")
					return
				}
				// Headers are committed; aborting is the only way to signal failure
				logger.Warn().Err(err).Msg("Stream failed, aborting response")
				panic(http.ErrAbortHandler)
			}

			if _, err := w.Write(chunk); err != nil {
				logger.Debug().Err(err).Msg("Client write failed")
				return
			}
			if err := rc.Flush(); err != nil {
				logger.Debug().Err(err).Msg("Flush failed")
				return
			}
		}
	}
}

func (s *Server) describe(ctx context.Context, kind pipeline.SourceKind) (rawpcm.Info, error) {
	if kind == pipeline.SourceFile {
		return s.orch.DescribeFile(ctx)
	}
	return s.orch.DescribeLive(ctx)
}

func (s *Server) open(ctx context.Context, kind pipeline.SourceKind) (*pipeline.Session, error) {
	if kind == pipeline.SourceFile {
		return s.orch.OpenFile(ctx)
	}
	return s.orch.OpenLive(ctx)
}

func (s *Server) writeHeaders(w http.ResponseWriter, info rawpcm.Info) {
	rawpcm.SetHeaders(w.Header(), s.config.Marker, info)
}

// openError answers a request whose session never started
func (s *Server) openError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	http.Error(w, http.StatusText(code), code)
}

// statusFor maps an open error to an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrDeviceBusy):
		return http.StatusConflict
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, pipeline.ErrNoFile):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}
