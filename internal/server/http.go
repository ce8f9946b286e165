// ABOUTME: HTTP routing and instrumentation
// ABOUTME: Route table, metrics middleware, health endpoint and status-capturing writer
package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Resonate-Protocol/rawstream-go/internal/pipeline"
	"github.com/Resonate-Protocol/rawstream-go/internal/version"
)

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() {
	s.mux.HandleFunc(LivePath, s.withMetrics(LivePath, s.handleRaw(pipeline.SourceLive)))
	s.mux.HandleFunc(FilePath, s.withMetrics(FilePath, s.handleRaw(pipeline.SourceFile)))
	s.mux.HandleFunc(WebSocketPath, s.withMetrics(WebSocketPath, s.handleWebSocket))
	s.mux.HandleFunc("/health", s.withMetrics("/health", s.handleHealth))

	if s.metrics != nil {
		s.mux.Handle("/metrics", s.metrics.Handler())
	}

	s.mux.HandleFunc("/", s.withMetrics("/", http.NotFound))
}

// withMetrics wraps an HTTP handler with metrics collection.
// Aborted streams are still recorded.
func (s *Server) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		defer func() {
			duration := time.Since(startTime).Seconds()
			statusCode := fmt.Sprintf("%d", ww.statusCode)
			s.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

			if ww.statusCode >= 400 {
				errorType := "client_error"
				if ww.statusCode >= 500 {
					errorType = "server_error"
				}
				s.metrics.RecordHTTPError(r.Method, endpoint, errorType)
			}
		}()

		handler(ww, r)
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(p)
}

// Flush pushes each chunk to the client as soon as it is written
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack hands the connection to the websocket upgrader
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// healthResponse is the /health body
type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Service   serviceInfo            `json:"service"`
	Sessions  []pipeline.SessionInfo `json:"sessions"`
}

type serviceInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// handleHealth implements the /health endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := healthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Service: serviceInfo{
			Name:    s.config.Name,
			Version: version.Version,
		},
		Sessions: s.orch.Sessions(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(health); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write health response")
	}
}
