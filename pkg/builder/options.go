package builder

import (
	"log/slog"
	"runtime"

	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/metrics"
	"github.com/paulista5/SABER/pkg/ndarray"
	"github.com/paulista5/SABER/pkg/store"
)

// DefaultWindowSize is the number of consecutive source indices committed per batch.
const DefaultWindowSize = 100

// Sample is one feature/label pair drawn from a Source
type Sample struct {
	Feature *ndarray.Array
	Label   any
}

// Source is an ordered, indexable collection of samples. Sample is called
// from several workers at once and must be safe for concurrent use.
type Source interface {
	Len() int
	Sample(i int) (Sample, error)
}

// Options configures a build
type Options struct {
	// Exclude reports samples to skip. It sees the sample before any transform.
	Exclude func(Sample) bool
	// TransformFeature and TransformLabel run on kept samples before encoding.
	TransformFeature func(*ndarray.Array) (*ndarray.Array, error)
	TransformLabel   func(any) (any, error)

	Workers    int // Concurrent transforms per window; 0 = runtime.NumCPU()
	WindowSize int // Indices per committed batch; 0 = DefaultWindowSize

	Store store.Options
	// OpenStore opens the destination; nil = store.OpenForWrite.
	OpenStore func(path string, opts store.Options) (store.Store, error)

	Codec   *codec.RecordCodec // nil = uncompressed codec owned by the build
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	if o.WindowSize <= 0 {
		o.WindowSize = DefaultWindowSize
	}
	if o.OpenStore == nil {
		o.OpenStore = store.OpenForWrite
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	return o
}
