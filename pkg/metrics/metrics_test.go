package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordCommit(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.WindowQueued()
	m.WindowQueued()
	assert.Equal(t, 2.0, testutil.ToFloat64(m.buildWindowsInFlight))

	m.RecordCommit(98, 2, 10*time.Millisecond, nil)
	m.RecordCommit(50, 0, 0, errors.New("disk full"))

	assert.Equal(t, 0.0, testutil.ToFloat64(m.buildWindowsInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.buildWindowsTotal))
	assert.Equal(t, 98.0, testutil.ToFloat64(m.buildSamplesTotal.WithLabelValues("written")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.buildSamplesTotal.WithLabelValues("excluded")))
}

func TestMetrics_RecordRead(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRead(0, true, time.Millisecond)
	m.RecordRead(3, true, time.Millisecond)
	m.RecordRead(128, false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.readerReadsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.readerReadsTotal.WithLabelValues(statusError)))
	assert.Equal(t, 131.0, testutil.ToFloat64(m.readerRetriesTotal))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.WindowQueued()
		m.RecordCommit(1, 1, time.Second, nil)
		m.RecordRead(1, true, time.Second)
		m.RecordHTTPRequest("GET", "/", 200, time.Second)
		m.RecordAuthRequest(true)
	})

	called := false
	h := m.InstrumentHandler("GET", "/x", func(w http.ResponseWriter, r *http.Request) { called = true })
	h(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, called)
}

func TestMetrics_InstrumentHandler(t *testing.T) {
	m := New(prometheus.NewRegistry())

	h := m.InstrumentHandler("GET", "/api/v1/datasets/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/v1/datasets/missing", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/datasets/{name}", "404")))
}

func TestMetrics_InstrumentAuthMiddleware(t *testing.T) {
	m := New(prometheus.NewRegistry())

	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := m.InstrumentAuthMiddleware(deny)(ok)

	for _, key := range []string{"secret", "wrong", ""} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authRequestsTotal.WithLabelValues(statusError)))
}

func TestNew_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)

	families, err := reg.Gather()
	require.NoError(t, err)
	// vectors without observations are not gathered
	assert.NotEmpty(t, families)

	assert.Panics(t, func() { New(reg) })
}
