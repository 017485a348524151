package store

import (
	"errors"
	"fmt"
	"strings"
)

// DefaultMaxSize is the address space reserved for a store opened for write (1 TiB).
const DefaultMaxSize int64 = 1 << 40

// Engine names an embedded key-value engine
type Engine string

const (
	// EngineBolt is a memory-mapped B+tree (go.etcd.io/bbolt).
	EngineBolt Engine = "bolt"
	// EnginePebble is an LSM tree (github.com/cockroachdb/pebble).
	EnginePebble Engine = "pebble"
)

// ParseEngine parses an engine name; "" selects the default.
func ParseEngine(s string) (Engine, error) {
	switch Engine(strings.ToLower(s)) {
	case "", EngineBolt:
		return EngineBolt, nil
	case EnginePebble:
		return EnginePebble, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngine, s)
}

// Options holds configuration for opening a store
type Options struct {
	Engine  Engine // Engine used when creating a store; detected on existing stores
	MaxSize int64  // Reserved mmap size for writers (bolt only); 0 = DefaultMaxSize
}

func (o Options) maxSize() int64 {
	if o.MaxSize <= 0 {
		return DefaultMaxSize
	}
	return o.MaxSize
}

// Store is a record container for one dataset split
type Store interface {
	// CommitBatch writes every entry in one transaction. Either all entries
	// become visible or none do.
	CommitBatch(entries map[string][]byte) error
	// Get returns a copy of the value stored under key, or ErrKeyNotFound.
	Get(key []byte) ([]byte, error)
	Engine() Engine
	Path() string
	Close() error
}

// Errors
var (
	ErrKeyNotFound   = &KVError{"key not found"}
	ErrReadOnly      = &KVError{"store is read-only"}
	ErrClosed        = &KVError{"store is closed"}
	ErrUnknownEngine = &KVError{"unknown store engine"}
	ErrOpen          = &KVError{"store open failed"}
)

// KVError represents a key-value store error
type KVError struct {
	Message string
}

func (e *KVError) Error() string {
	return e.Message
}

// OpenError reports a store that cannot be opened. Callers at the process
// entry point typically treat it as fatal configuration error.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open store at %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() []error {
	return []error{ErrOpen, e.Err}
}

// IsOpenError reports whether err came from opening a store.
func IsOpenError(err error) bool {
	return errors.Is(err, ErrOpen)
}
