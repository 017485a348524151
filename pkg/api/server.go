// Package api serves opened datasets over HTTP.
//
// Routes, under /api/v1:
//
//	GET /health
//	GET /datasets
//	GET /datasets/{name}
//	PUT /datasets/{name}/epoch           body {"epoch": n}
//	GET /datasets/{name}/records/{index}
//
// Prometheus metrics are exposed unauthenticated at /metrics. When an API key
// is configured every /api/v1 route requires it in the X-API-Key header.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/paulista5/SABER/pkg/dataset"
	"github.com/paulista5/SABER/pkg/metrics"
)

// datasetEntry serialises access to one dataset
type datasetEntry struct {
	name  string
	mutex sync.Mutex
	ds    dataset.Dataset
}

// Server holds the API server state
type Server struct {
	datasets map[string]*datasetEntry
	names    []string
	config   ServerConfig
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewServer creates a new API server over the named datasets. The caller
// keeps ownership of the datasets.
func NewServer(datasets map[string]dataset.Dataset, config ServerConfig, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		datasets: make(map[string]*datasetEntry, len(datasets)),
		config:   config,
		metrics:  m,
		logger:   logger,
	}
	for name, ds := range datasets {
		s.datasets[name] = &datasetEntry{name: name, ds: ds}
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	return s
}

// Router returns the HTTP handler with all routes configured. Metrics are
// served from gatherer; nil serves the default registry.
func (s *Server) Router(gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// unprotected for scraping
	if gatherer == nil {
		r.Handle("/metrics", promhttp.Handler())
	} else {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		if s.config.APIKey != "" {
			r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))
		}

		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))

		r.Get("/datasets", m.InstrumentHandler("GET", "/api/v1/datasets", s.handleListDatasets))
		r.Get("/datasets/{name}", m.InstrumentHandler("GET", "/api/v1/datasets/{name}", s.handleGetDataset))
		r.Put("/datasets/{name}/epoch", m.InstrumentHandler("PUT", "/api/v1/datasets/{name}/epoch", s.handleSetEpoch))
		r.Get("/datasets/{name}/records/{index}",
			m.InstrumentHandler("GET", "/api/v1/datasets/{name}/records/{index}", s.handleGetRecord))
	})

	return r
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, gatherer prometheus.Gatherer) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Router(gatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting SABER API server", "addr", srv.Addr, "datasets", s.names)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down SABER API server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}
