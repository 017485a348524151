// Package di provides dependency injection container
package di

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/paulista5/SABER/pkg/api"
	"github.com/paulista5/SABER/pkg/builder"
	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/config"
	"github.com/paulista5/SABER/pkg/dataset"
	"github.com/paulista5/SABER/pkg/logging"
	"github.com/paulista5/SABER/pkg/metrics"
	"github.com/paulista5/SABER/pkg/store"
)

// ServerStarter runs an API server until ctx is done
type ServerStarter interface {
	Start(ctx context.Context, server *api.Server, gatherer prometheus.Gatherer) error
}

// DefaultServerStarter listens on the server's configured address
type DefaultServerStarter struct{}

// Start starts the API server
func (DefaultServerStarter) Start(ctx context.Context, server *api.Server, gatherer prometheus.Gatherer) error {
	return server.ListenAndServe(ctx, gatherer)
}

// Container holds all the dependencies for the application
type Container struct {
	config        *config.Config
	logger        *slog.Logger
	registry      *prometheus.Registry
	metrics       *metrics.Metrics
	serverStarter ServerStarter
}

// NewContainer creates a new dependency injection container. Logs go to logOut.
func NewContainer(cfg *config.Config, logOut io.Writer) (*Container, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger, err := logging.New(cfg.Logging.Level, logOut)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Container{
		config:        cfg,
		logger:        logger,
		registry:      registry,
		metrics:       metrics.New(registry),
		serverStarter: DefaultServerStarter{},
	}, nil
}

// Config returns the loaded configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the process logger
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Registry returns the metrics registry
func (c *Container) Registry() *prometheus.Registry {
	return c.registry
}

// Metrics returns the shared metrics
func (c *Container) Metrics() *metrics.Metrics {
	return c.metrics
}

// GetServerStarter returns the server starter
func (c *Container) GetServerStarter() ServerStarter {
	return c.serverStarter
}

// SetServerStarter allows overriding the server starter (for testing)
func (c *Container) SetServerStarter(starter ServerStarter) {
	c.serverStarter = starter
}

// StoreOptions converts the store section
func (c *Container) StoreOptions() (store.Options, error) {
	engine, err := store.ParseEngine(c.config.Store.Engine)
	if err != nil {
		return store.Options{}, err
	}
	return store.Options{Engine: engine, MaxSize: c.config.Store.MaxSize}, nil
}

// NewCodec returns a codec with the configured compression. The caller closes it.
func (c *Container) NewCodec() (*codec.RecordCodec, error) {
	compression, err := codec.ParseCompression(c.config.Builder.Compression)
	if err != nil {
		return nil, err
	}
	return codec.NewRecordCodec(codec.WithCompression(compression)), nil
}

// BuilderOptions converts the builder and filter sections. rc may be nil.
func (c *Container) BuilderOptions(rc *codec.RecordCodec) (builder.Options, error) {
	storeOpts, err := c.StoreOptions()
	if err != nil {
		return builder.Options{}, fmt.Errorf("invalid store config: %w", err)
	}

	opts := builder.Options{
		Workers:    c.config.Builder.Workers,
		WindowSize: c.config.Builder.WindowSize,
		Store:      storeOpts,
		Codec:      rc,
		Logger:     c.logger,
		Metrics:    c.metrics,
	}
	if f := c.config.Filter; f.Enabled {
		opts.Exclude = builder.DurationFilter{
			SampleRate:     f.SampleRate,
			MinSeconds:     f.MinSeconds,
			MaxSeconds:     f.MaxSeconds,
			MaxLabelLength: f.MaxLabelLength,
		}.Exclude
	}
	return opts, nil
}

// ReaderOptions converts the reader and store sections
func (c *Container) ReaderOptions() (dataset.Options, error) {
	storeOpts, err := c.StoreOptions()
	if err != nil {
		return dataset.Options{}, fmt.Errorf("invalid store config: %w", err)
	}
	return dataset.Options{
		MaxRetries: c.config.Reader.MaxRetries,
		Seed:       c.config.Reader.Seed,
		Store:      storeOpts,
		Metrics:    c.metrics,
		Logger:     c.logger,
	}, nil
}

// ServerConfig converts the server section
func (c *Container) ServerConfig() api.ServerConfig {
	return api.ServerConfig{
		Bind:   c.config.Server.Bind,
		Port:   c.config.Server.Port,
		APIKey: c.config.Server.APIKey,
	}
}
