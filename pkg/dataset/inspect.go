package dataset

import (
	"errors"
	"fmt"

	"github.com/paulista5/SABER/pkg/codec"
	"github.com/paulista5/SABER/pkg/store"
)

// Report describes the contents of one store
type Report struct {
	Path       string       `json:"path" yaml:"path"`
	Engine     store.Engine `json:"engine" yaml:"engine"`
	NumSamples int          `json:"num_samples" yaml:"num_samples"`
	Present    int          `json:"present" yaml:"present"`
	Missing    []int        `json:"missing" yaml:"missing"` // Excluded indices
	Corrupt    []int        `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
	Bytes      int64        `json:"bytes" yaml:"bytes"` // Sum of record payload sizes
}

// Inspect walks every index of the store at path and decodes each record.
func Inspect(path string, opts store.Options) (*Report, error) {
	s, err := store.OpenForRead(path, opts)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	n, err := store.ReadNumSamples(s)
	if err != nil {
		return nil, &store.OpenError{Path: path, Err: err}
	}

	rc := codec.NewRecordCodec()
	defer rc.Close()

	report := &Report{Path: path, Engine: s.Engine(), NumSamples: n, Missing: []int{}}
	for i := 0; i < n; i++ {
		raw, err := s.Get([]byte(store.DataKey(i)))
		if errors.Is(err, store.ErrKeyNotFound) {
			report.Missing = append(report.Missing, i)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read sample %d: %w", i, err)
		}

		report.Present++
		report.Bytes += int64(len(raw))
		if _, err := rc.Decode(raw); err != nil {
			report.Corrupt = append(report.Corrupt, i)
		}
	}

	return report, nil
}
