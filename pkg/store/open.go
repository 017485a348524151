package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// engineMarker records which engine created a store directory
const engineMarker = "ENGINE"

// OpenForWrite creates the store directory (with parents) if needed and opens
// it for batched writes. Opening an existing store is idempotent; it keeps the
// engine the store was created with.
func OpenForWrite(path string, opts Options) (Store, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, &OpenError{Path: path, Err: fmt.Errorf("failed to create store directory: %w", err)}
	}

	engine, err := detectEngine(path)
	switch {
	case err == nil:
		if opts.Engine != "" && opts.Engine != engine {
			return nil, &OpenError{Path: path, Err: fmt.Errorf("store was created with %s, not %s", engine, opts.Engine)}
		}
	case errors.Is(err, os.ErrNotExist):
		if engine, err = ParseEngine(string(opts.Engine)); err != nil {
			return nil, &OpenError{Path: path, Err: err}
		}
		if err := os.WriteFile(filepath.Join(path, engineMarker), []byte(engine+"\n"), 0o644); err != nil {
			return nil, &OpenError{Path: path, Err: fmt.Errorf("failed to write engine marker: %w", err)}
		}
	default:
		return nil, &OpenError{Path: path, Err: err}
	}

	s, err := openEngine(path, engine, opts, false)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return s, nil
}

// OpenForRead opens an existing store read-only. The engine is detected from
// the store directory. Any failure is returned as *OpenError.
func OpenForRead(path string, opts Options) (Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	if !info.IsDir() {
		return nil, &OpenError{Path: path, Err: errors.New("not a directory")}
	}

	engine, err := detectEngine(path)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}

	s, err := openEngine(path, engine, opts, true)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return s, nil
}

// DetectEngine reports the engine of an existing store directory.
func DetectEngine(path string) (Engine, error) {
	return detectEngine(path)
}

func detectEngine(path string) (Engine, error) {
	raw, err := os.ReadFile(filepath.Join(path, engineMarker))
	if err == nil {
		return ParseEngine(strings.TrimSpace(string(raw)))
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}

	// stores copied without their marker
	if _, statErr := os.Stat(filepath.Join(path, boltFileName)); statErr == nil {
		return EngineBolt, nil
	}
	return "", fmt.Errorf("no store found: %w", err)
}

func openEngine(path string, engine Engine, opts Options, readOnly bool) (Store, error) {
	switch engine {
	case EngineBolt:
		return openBolt(path, opts, readOnly)
	case EnginePebble:
		return openPebble(path, readOnly)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, engine)
}
