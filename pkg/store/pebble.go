package store

import (
	"errors"
	"sync"

	"github.com/cockroachdb/pebble"
)

// pebbleStore keeps records in a pebble LSM directory
type pebbleStore struct {
	db       *pebble.DB
	path     string
	readOnly bool
	mutex    sync.Mutex
	isOpen   bool
}

func openPebble(path string, readOnly bool) (*pebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		ReadOnly:         readOnly,
		ErrorIfNotExists: readOnly,
	})
	if err != nil {
		return nil, err
	}
	return &pebbleStore{db: db, path: path, readOnly: readOnly, isOpen: true}, nil
}

func (s *pebbleStore) CommitBatch(entries map[string][]byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if !s.open() {
		return ErrClosed
	}

	b := s.db.NewBatch()
	defer b.Close()

	for _, k := range sortedKeys(entries) {
		if err := b.Set([]byte(k), entries[k], nil); err != nil {
			return err
		}
	}
	return b.Commit(pebble.Sync)
}

func (s *pebbleStore) Get(key []byte) ([]byte, error) {
	if !s.open() {
		return nil, ErrClosed
	}

	data, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	defer closer.Close()

	return append([]byte(nil), data...), nil
}

func (s *pebbleStore) Engine() Engine {
	return EnginePebble
}

func (s *pebbleStore) Path() string {
	return s.path
}

func (s *pebbleStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	return s.db.Close()
}

func (s *pebbleStore) open() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isOpen
}
