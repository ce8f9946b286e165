// ABOUTME: Tests for Prometheus metrics
// ABOUTME: Tests recording helpers and registry isolation
package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewIsolatedRegistries(t *testing.T) {
	// Two instances must not collide on registration
	a := New()
	b := New()

	a.RecordChunkSent(28800, 1)
	if got := testutil.ToFloat64(b.BytesSent); got != 0 {
		t.Errorf("expected registries to be independent, got %v bytes on b", got)
	}
	if got := testutil.ToFloat64(a.BytesSent); got != 28800 {
		t.Errorf("expected 28800 bytes, got %v", got)
	}
}

func TestSessionLifecycleMetrics(t *testing.T) {
	m := New()

	m.RecordSessionStarted("live")
	m.RecordSessionStarted("file")
	m.RecordSessionEnded("live", "disconnected", 1.5)

	if got := testutil.ToFloat64(m.ActiveSessions.WithLabelValues("live")); got != 0 {
		t.Errorf("expected 0 active live sessions, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActiveSessions.WithLabelValues("file")); got != 1 {
		t.Errorf("expected 1 active file session, got %v", got)
	}
	if got := testutil.ToFloat64(m.SessionsEnded.WithLabelValues("live", "disconnected")); got != 1 {
		t.Errorf("expected 1 ended session, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSessionStarted("live")
	m.RecordChunkSent(3, 0)
	m.RecordHTTPRequest("GET", "/stream.raw", "200", 0.1)
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordHTTPRequest("GET", "/stream.raw", "200", 0.01)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	if !strings.Contains(rec.Body.String(), "rawstream_http_requests_total") {
		t.Error("expected request counter in exposition output")
	}
}
