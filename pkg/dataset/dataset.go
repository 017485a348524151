// Package dataset reads records back from stores written by the builder.
//
// A Reader serves one store. Indices follow the source order used at build
// time; an index whose sample was excluded is answered with a randomly chosen
// present sample, so callers iterating 0..Len()-1 always receive data. Every
// item carries the epoch set by the training loop through SetEpoch.
package dataset

import (
	"errors"
	"fmt"

	"github.com/paulista5/SABER/pkg/ndarray"
)

// Item is one served record
type Item struct {
	Feature *ndarray.Array
	Label   any
	Epoch   int
	Index   int // Index actually served, which differs from the requested one after a substitution
}

// Dataset is the read contract shared by Reader and Composite
type Dataset interface {
	Len() int
	SetEpoch(epoch int)
	Epoch() int
	Get(index int) (Item, error)
	Close() error
}

var (
	_ Dataset = (*Reader)(nil)
	_ Dataset = (*Composite)(nil)
)

// Errors
var (
	ErrIndexOutOfRange     = errors.New("index out of range")
	ErrMissingKeyExhausted = errors.New("no present sample found")
)

// MissingKeyExhaustedError reports a Get that hit only missing keys
type MissingKeyExhaustedError struct {
	Index    int // Requested index
	Attempts int // Lookups made, including the requested index
}

func (e *MissingKeyExhaustedError) Error() string {
	return fmt.Sprintf("sample %d: %v after %d lookups", e.Index, ErrMissingKeyExhausted, e.Attempts)
}

func (e *MissingKeyExhaustedError) Unwrap() error {
	return ErrMissingKeyExhausted
}
