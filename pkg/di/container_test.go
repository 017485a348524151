package di

import (
	"context"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paulista5/SABER/pkg/api"
	"github.com/paulista5/SABER/pkg/builder"
	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/config"
	"github.com/paulista5/SABER/pkg/ndarray"
	"github.com/paulista5/SABER/pkg/store"
)

type recordingStarter struct {
	started bool
}

func (s *recordingStarter) Start(ctx context.Context, server *api.Server, gatherer prometheus.Gatherer) error {
	s.started = true
	return nil
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, config.DefaultConfig(), c.Config())
	assert.NotNil(t, c.Logger())
	assert.NotNil(t, c.Metrics())
	assert.IsType(t, DefaultServerStarter{}, c.GetServerStarter())

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewContainer_InvalidLevel(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Logging.Level = "chatty"

	_, err := NewContainer(cfg, io.Discard)
	assert.Error(t, err)
}

func TestContainer_SetServerStarter(t *testing.T) {
	c, err := NewContainer(nil, io.Discard)
	require.NoError(t, err)

	starter := &recordingStarter{}
	c.SetServerStarter(starter)

	require.NoError(t, c.GetServerStarter().Start(context.Background(), nil, c.Registry()))
	assert.True(t, starter.started)
}

func TestContainer_Options(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Engine = "pebble"
	cfg.Store.MaxSize = 1 << 20
	cfg.Builder.Workers = 3
	cfg.Builder.WindowSize = 10
	cfg.Builder.Compression = "zstd"
	cfg.Reader.MaxRetries = 7
	cfg.Reader.Seed = 42
	cfg.Server.APIKey = "key"

	c, err := NewContainer(cfg, io.Discard)
	require.NoError(t, err)

	storeOpts, err := c.StoreOptions()
	require.NoError(t, err)
	assert.Equal(t, store.Options{Engine: store.EnginePebble, MaxSize: 1 << 20}, storeOpts)

	rc, err := c.NewCodec()
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, codec.CompressionZstd, rc.Compression())

	opts, err := c.BuilderOptions(rc)
	require.NoError(t, err)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, 10, opts.WindowSize)
	assert.Same(t, rc, opts.Codec)
	assert.Same(t, c.Metrics(), opts.Metrics)
	assert.Nil(t, opts.Exclude, "filter disabled")

	readerOpts, err := c.ReaderOptions()
	require.NoError(t, err)
	assert.Equal(t, storeOpts, readerOpts.Store)
	assert.Equal(t, 7, readerOpts.MaxRetries)
	assert.Equal(t, uint64(42), readerOpts.Seed)

	assert.Equal(t, api.ServerConfig{Bind: "127.0.0.1", Port: 9200, APIKey: "key"}, c.ServerConfig())
}

func TestContainer_BuilderOptionsFilter(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Filter.Enabled = true
	cfg.Filter.SampleRate = 10
	cfg.Filter.MinSeconds = 1
	cfg.Filter.MaxSeconds = 2
	cfg.Filter.MaxLabelLength = 4

	c, err := NewContainer(cfg, io.Discard)
	require.NoError(t, err)

	opts, err := c.BuilderOptions(nil)
	require.NoError(t, err)
	require.NotNil(t, opts.Exclude)

	sample := func(frames int, label string) builder.Sample {
		a, err := ndarray.FromSlice(make([]float32, frames), frames)
		require.NoError(t, err)
		return builder.Sample{Feature: a, Label: label}
	}

	assert.False(t, opts.Exclude(sample(15, "ok")))
	assert.True(t, opts.Exclude(sample(5, "ok")), "too short")
	assert.True(t, opts.Exclude(sample(25, "ok")), "too long")
	assert.True(t, opts.Exclude(sample(15, "too long")), "label too long")
}

func TestContainer_InvalidEngine(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Store.Engine = "lmdb"

	c, err := NewContainer(cfg, io.Discard)
	require.NoError(t, err)

	_, err = c.StoreOptions()
	assert.ErrorIs(t, err, store.ErrUnknownEngine)
	_, err = c.BuilderOptions(nil)
	assert.ErrorIs(t, err, store.ErrUnknownEngine)
	_, err = c.ReaderOptions()
	assert.ErrorIs(t, err, store.ErrUnknownEngine)
}
