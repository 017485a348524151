package dataset

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/metrics"
	"github.com/paulista5/SABER/pkg/ndarray"
	"github.com/paulista5/SABER/pkg/store"
)

// DefaultMaxRetries bounds the random substitutions for one Get.
const DefaultMaxRetries = 128

// Options configures a Reader
type Options struct {
	// TransformFeature and TransformLabel run after decoding, on every read.
	TransformFeature func(*ndarray.Array) (*ndarray.Array, error)
	TransformLabel   func(any) (any, error)

	MaxRetries int    // Missing-key substitutions before giving up; 0 = DefaultMaxRetries
	Seed       uint64 // Substitution RNG seed; 0 = random

	Codec   *codec.RecordCodec // nil = codec owned by the reader
	Store   store.Options
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Reader serves decoded records of one store by index
type Reader struct {
	store      store.Store
	codec      *codec.RecordCodec
	ownsCodec  bool
	opts       Options
	numSamples int
	epoch      atomic.Int64
	logger     *slog.Logger

	rngMutex sync.Mutex
	rng      *rand.Rand
}

// Open opens the store at path read-only and caches its sample count. A store
// that cannot be opened or lacks a valid num-samples key is reported as
// *store.OpenError.
func Open(path string, opts Options) (*Reader, error) {
	s, err := store.OpenForRead(path, opts.Store)
	if err != nil {
		return nil, err
	}

	n, err := store.ReadNumSamples(s)
	if err != nil {
		s.Close()
		return nil, &store.OpenError{Path: path, Err: err}
	}

	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	seed1, seed2 := opts.Seed, opts.Seed
	if opts.Seed == 0 {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}

	r := &Reader{
		store:      s,
		codec:      opts.Codec,
		opts:       opts,
		numSamples: n,
		logger:     opts.Logger,
		rng:        rand.New(rand.NewPCG(seed1, seed2)),
	}
	if r.codec == nil {
		r.codec = codec.NewRecordCodec()
		r.ownsCodec = true
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.logger.Debug("opened dataset", "path", path, "samples", n, "engine", s.Engine())
	return r, nil
}

// Len returns the attempted sample count recorded at build time. Excluded
// indices are counted.
func (r *Reader) Len() int {
	return r.numSamples
}

// SetEpoch sets the epoch echoed by subsequent reads.
func (r *Reader) SetEpoch(epoch int) {
	r.epoch.Store(int64(epoch))
}

// Epoch returns the current epoch.
func (r *Reader) Epoch() int {
	return int(r.epoch.Load())
}

// Path returns the store directory.
func (r *Reader) Path() string {
	return r.store.Path()
}

// Get returns the record at index. When index was excluded at build time a
// uniformly drawn index is served instead; Item.Index tells which one.
func (r *Reader) Get(index int) (Item, error) {
	if index < 0 || index >= r.numSamples {
		return Item{}, fmt.Errorf("%w: %d not in [0, %d)", ErrIndexOutOfRange, index, r.numSamples)
	}

	start := time.Now()
	current := index
	for misses := 0; ; misses++ {
		raw, err := r.store.Get([]byte(store.DataKey(current)))
		if err == nil {
			item, err := r.decode(current, raw)
			r.opts.Metrics.RecordRead(misses, err == nil, time.Since(start))
			return item, err
		}
		if !errors.Is(err, store.ErrKeyNotFound) {
			r.opts.Metrics.RecordRead(misses, false, time.Since(start))
			return Item{}, fmt.Errorf("failed to read sample %d: %w", current, err)
		}

		if misses == r.opts.MaxRetries {
			r.opts.Metrics.RecordRead(misses, false, time.Since(start))
			return Item{}, &MissingKeyExhaustedError{Index: index, Attempts: misses + 1}
		}
		current = r.randomIndex()
	}
}

func (r *Reader) decode(index int, raw []byte) (Item, error) {
	rec, err := r.codec.Decode(raw)
	if err != nil {
		return Item{}, fmt.Errorf("failed to decode sample %d: %w", index, err)
	}

	feature, label := rec.Feature, rec.Label
	if r.opts.TransformFeature != nil {
		if feature, err = r.opts.TransformFeature(feature); err != nil {
			return Item{}, fmt.Errorf("failed to transform feature of sample %d: %w", index, err)
		}
	}
	if r.opts.TransformLabel != nil {
		if label, err = r.opts.TransformLabel(label); err != nil {
			return Item{}, fmt.Errorf("failed to transform label of sample %d: %w", index, err)
		}
	}

	return Item{Feature: feature, Label: label, Epoch: r.Epoch(), Index: index}, nil
}

func (r *Reader) randomIndex() int {
	r.rngMutex.Lock()
	defer r.rngMutex.Unlock()
	return r.rng.IntN(r.numSamples)
}

// Close releases the store handle.
func (r *Reader) Close() error {
	err := r.store.Close()
	if r.ownsCodec {
		r.codec.Close()
	}
	return err
}
