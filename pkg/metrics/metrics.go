// Package metrics holds the Prometheus instruments shared by the builder,
// the dataset readers and the HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so packages can take one optionally.
type Metrics struct {
	// Build metrics
	buildWindowsTotal    prometheus.Counter
	buildSamplesTotal    *prometheus.CounterVec
	buildCommitDuration  prometheus.Histogram
	buildWindowsInFlight prometheus.Gauge

	// Reader metrics
	readerReadsTotal   *prometheus.CounterVec
	readerRetriesTotal prometheus.Counter
	readerReadDuration prometheus.Histogram

	// HTTP request metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	// API key authentication metrics
	authRequestsTotal *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		buildWindowsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "saber_build_windows_committed_total",
				Help: "Total number of windows committed to a store",
			},
		),

		buildSamplesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saber_build_samples_total",
				Help: "Total number of source samples processed by outcome",
			},
			[]string{"outcome"},
		),

		buildCommitDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "saber_build_commit_duration_seconds",
				Help:    "Duration of one window commit in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		buildWindowsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "saber_build_windows_in_flight",
				Help: "Number of transformed windows waiting for or undergoing commit",
			},
		),

		readerReadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saber_reader_reads_total",
				Help: "Total number of dataset item reads",
			},
			[]string{"status"},
		),

		readerRetriesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "saber_reader_missing_key_retries_total",
				Help: "Total number of random retries caused by excluded samples",
			},
		),

		readerReadDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "saber_reader_read_duration_seconds",
				Help:    "Dataset item read duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saber_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "saber_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "saber_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		authRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "saber_auth_requests_total",
				Help: "Total number of authentication requests",
			},
			[]string{"status"},
		),
	}
}

// WindowQueued marks a transformed window handed to the committer.
func (m *Metrics) WindowQueued() {
	if m == nil {
		return
	}
	m.buildWindowsInFlight.Inc()
}

// RecordCommit records one window commit.
func (m *Metrics) RecordCommit(written, excluded int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.buildWindowsInFlight.Dec()
	if err != nil {
		return
	}
	m.buildWindowsTotal.Inc()
	m.buildSamplesTotal.WithLabelValues("written").Add(float64(written))
	m.buildSamplesTotal.WithLabelValues("excluded").Add(float64(excluded))
	m.buildCommitDuration.Observe(duration.Seconds())
}

// RecordRead records one dataset item read and the retries it needed.
func (m *Metrics) RecordRead(retries int, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.readerReadsTotal.WithLabelValues(status).Inc()
	m.readerRetriesTotal.Add(float64(retries))
	m.readerReadDuration.Observe(duration.Seconds())
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	if m == nil {
		return
	}
	statusCodeStr := strconv.Itoa(statusCode)

	m.httpRequestsTotal.WithLabelValues(method, endpoint, statusCodeStr).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordAuthRequest records an authentication request
func (m *Metrics) RecordAuthRequest(success bool) {
	if m == nil {
		return
	}
	status := statusSuccess
	if !success {
		status = statusError
	}
	m.authRequestsTotal.WithLabelValues(status).Inc()
}

// InstrumentHandler instruments an HTTP handler with metrics
func (m *Metrics) InstrumentHandler(method, endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	if m == nil {
		return handler
	}
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		gauge := m.httpRequestsInFlight.WithLabelValues(method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		// capture the status code
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		handler(rw, r)

		m.RecordHTTPRequest(method, endpoint, rw.statusCode, time.Since(start))
	}
}

// InstrumentAuthMiddleware records the outcome of requests that carry an API key
func (m *Metrics) InstrumentAuthMiddleware(next func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return func(h http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hasAPIKey := r.Header.Get("X-API-Key") != ""

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(h).ServeHTTP(rw, r)

			if hasAPIKey {
				m.RecordAuthRequest(rw.statusCode != http.StatusUnauthorized)
			}
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
