// ABOUTME: Prometheus collectors and recording helpers
// ABOUTME: Counts sessions, transferred chunks and bytes, and HTTP requests
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the streaming service
type Metrics struct {
	registry *prometheus.Registry

	// Session metrics
	ActiveSessions  *prometheus.GaugeVec
	SessionsStarted *prometheus.CounterVec
	SessionsEnded   *prometheus.CounterVec
	SessionDuration *prometheus.HistogramVec
	OpenFailures    *prometheus.CounterVec

	// Transfer metrics
	ChunksSent prometheus.Counter
	BytesSent  prometheus.Counter
	QueueDepth prometheus.Histogram

	// HTTP metrics
	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPErrors          *prometheus.CounterVec
}

// New creates all collectors on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ActiveSessions: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rawstream_active_sessions",
			Help: "Current number of streaming sessions",
		}, []string{"source"}),
		SessionsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rawstream_sessions_started_total",
			Help: "Total number of streaming sessions started",
		}, []string{"source"}),
		SessionsEnded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rawstream_sessions_ended_total",
			Help: "Total number of streaming sessions ended, by outcome",
		}, []string{"source", "outcome"}),
		SessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rawstream_session_duration_seconds",
			Help:    "Duration of streaming sessions",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 14400},
		}, []string{"source"}),
		OpenFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rawstream_open_failures_total",
			Help: "Total number of sessions that failed to open",
		}, []string{"source"}),

		ChunksSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawstream_chunks_sent_total",
			Help: "Total number of sealed chunks handed to consumers",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "rawstream_bytes_sent_total",
			Help: "Total number of encoded bytes handed to consumers",
		}),
		QueueDepth: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "rawstream_queue_depth_chunks",
			Help:    "Chunks waiting in the transfer channel when a chunk is sent",
			Buckets: []float64{0, 1, 2, 5, 10, 50, 100, 1000},
		}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rawstream_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rawstream_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		HTTPErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rawstream_http_errors_total",
			Help: "Total number of HTTP errors",
		}, []string{"method", "endpoint", "error_type"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordSessionStarted counts a session entering the streaming state
func (m *Metrics) RecordSessionStarted(source string) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(source).Inc()
	m.ActiveSessions.WithLabelValues(source).Inc()
}

// RecordSessionEnded counts a closed session and its duration
func (m *Metrics) RecordSessionEnded(source, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ActiveSessions.WithLabelValues(source).Dec()
	m.SessionsEnded.WithLabelValues(source, outcome).Inc()
	m.SessionDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordOpenFailure counts a session that never started streaming
func (m *Metrics) RecordOpenFailure(source string) {
	if m == nil {
		return
	}
	m.OpenFailures.WithLabelValues(source).Inc()
}

// RecordChunkSent records one chunk handed to the transfer channel
func (m *Metrics) RecordChunkSent(sizeBytes, queueDepth int) {
	if m == nil {
		return
	}
	m.ChunksSent.Inc()
	m.BytesSent.Add(float64(sizeBytes))
	m.QueueDepth.Observe(float64(queueDepth))
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(durationSeconds)
}

// RecordHTTPError records an HTTP error
func (m *Metrics) RecordHTTPError(method, endpoint, errorType string) {
	if m == nil {
		return
	}
	m.HTTPErrors.WithLabelValues(method, endpoint, errorType).Inc()
}
