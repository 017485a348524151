// Package builder materializes a sample source into a record store.
//
// The source is walked in windows of consecutive indices. The samples of a
// window are fetched, filtered, transformed and encoded by a bounded worker
// pool, each worker filling its own slot. The orchestrator merges the slots
// into one batch that a single committer writes in one transaction, while the
// next window is already being transformed. Once every window is durable the
// attempted sample count is written under store.NumSamplesKey.
package builder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"golang.org/x/sync/errgroup"

	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/store"
)

// Result summarizes a finished build
type Result struct {
	BuildID   ksuid.KSUID
	Path      string
	Attempted int // Source indices visited, the stored num-samples value
	Written   int
	Excluded  int
	Windows   int
	Duration  time.Duration
}

// slot is one worker's output for one index of a window
type slot struct {
	value    []byte
	excluded bool
}

// window is a merged batch ready to commit
type window struct {
	start, end int
	batch      map[string][]byte
	excluded   int
}

type builder struct {
	src   Source
	opts  Options
	codec *codec.RecordCodec
}

// Build writes every non-excluded sample of src to the store at path, keyed
// by its source index, then records the attempted count. A failed build
// leaves the windows committed so far in place and no num-samples key.
func Build(ctx context.Context, path string, src Source, opts Options) (_ *Result, err error) {
	opts = opts.withDefaults()
	logger := opts.Logger

	start := time.Now()
	result := &Result{BuildID: ksuid.New(), Path: path}

	s, err := opts.OpenStore(path, opts.Store)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close store: %w", cerr)
		}
	}()

	rc := opts.Codec
	if rc == nil {
		rc = codec.NewRecordCodec()
		defer rc.Close()
	}
	b := &builder{src: src, opts: opts, codec: rc}

	n := src.Len()
	logger.Info("beginning to create dataset",
		"path", path, "samples", n, "build_id", result.BuildID.String(), "engine", s.Engine())

	g, gctx := errgroup.WithContext(ctx)
	windows := make(chan *window, 1)
	var drain sync.WaitGroup

	// committer
	g.Go(func() error {
		for w := range windows {
			commitStart := time.Now()
			err := s.CommitBatch(w.batch)
			opts.Metrics.RecordCommit(len(w.batch), w.excluded, time.Since(commitStart), err)
			if err != nil {
				// drop windows the producer queued until it sees gctx canceled
				drain.Add(1)
				go func() {
					defer drain.Done()
					for range windows {
						opts.Metrics.RecordCommit(0, 0, 0, err)
					}
				}()
				return fmt.Errorf("failed to commit window [%d, %d): %w", w.start, w.end, err)
			}

			result.Windows++
			result.Written += len(w.batch)
			result.Excluded += w.excluded
			logger.Info("written", "done", w.end, "total", n)
		}
		return nil
	})

	// producer
	g.Go(func() error {
		defer close(windows)
		for done := 0; done < n; {
			if err := gctx.Err(); err != nil {
				return err
			}
			end := min(done+opts.WindowSize, n)

			w, err := b.transformWindow(gctx, done, end)
			if err != nil {
				return err
			}

			opts.Metrics.WindowQueued()
			select {
			case windows <- w:
			case <-gctx.Done():
				opts.Metrics.RecordCommit(0, 0, 0, gctx.Err())
				return gctx.Err()
			}
			done = end
		}
		return nil
	})

	err = g.Wait()
	drain.Wait()
	if err != nil {
		logger.Error("dataset build failed", "path", path, "error", err, "committed_windows", result.Windows)
		return nil, err
	}

	meta := map[string][]byte{store.NumSamplesKey: store.EncodeNumSamples(n)}
	if err := s.CommitBatch(meta); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", store.NumSamplesKey, err)
	}

	result.Attempted = n
	result.Duration = time.Since(start)
	logger.Info("created dataset",
		"path", path, "samples", n, "written", result.Written, "excluded", result.Excluded,
		"duration", result.Duration)

	return result, nil
}

// transformWindow processes [start, end) on the worker pool and merges the
// slots into a batch.
func (b *builder) transformWindow(ctx context.Context, start, end int) (*window, error) {
	slots := make([]slot, end-start)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Workers)
	for i := range slots {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return b.fill(start+i, &slots[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &window{start: start, end: end, batch: make(map[string][]byte, len(slots))}
	for i := range slots {
		if slots[i].excluded {
			w.excluded++
			continue
		}
		w.batch[store.DataKey(start+i)] = slots[i].value
	}
	return w, nil
}

// fill runs one index through fetch, exclusion, transforms and encoding.
func (b *builder) fill(index int, out *slot) error {
	sample, err := b.src.Sample(index)
	if err != nil {
		return &TransformError{Index: index, Stage: StageFetch, Err: err}
	}

	if b.opts.Exclude != nil && b.opts.Exclude(sample) {
		out.excluded = true
		return nil
	}

	feature := sample.Feature
	if b.opts.TransformFeature != nil {
		if feature, err = b.opts.TransformFeature(feature); err != nil {
			return &TransformError{Index: index, Stage: StageFeature, Err: err}
		}
	}

	label := sample.Label
	if b.opts.TransformLabel != nil {
		if label, err = b.opts.TransformLabel(label); err != nil {
			return &TransformError{Index: index, Stage: StageLabel, Err: err}
		}
	}

	value, err := b.codec.Encode(codec.Record{Feature: feature, Label: label})
	if err != nil {
		return &TransformError{Index: index, Stage: StageEncode, Err: err}
	}
	out.value = value
	return nil
}
