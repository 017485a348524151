package store

import (
	"math"
	"path/filepath"
	"sort"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

const boltFileName = "data.db"

var recordsBucket = []byte("records")

// boltStore keeps every record in one bucket of a memory-mapped bbolt file
type boltStore struct {
	db       *bolt.DB
	path     string
	readOnly bool
	mutex    sync.Mutex
	isOpen   bool
}

func openBolt(path string, opts Options, readOnly bool) (*boltStore, error) {
	bopts := &bolt.Options{
		Timeout:      time.Second,
		ReadOnly:     readOnly,
		FreelistType: bolt.FreelistMapType,
	}
	if !readOnly {
		size := opts.maxSize()
		if size > math.MaxInt {
			size = math.MaxInt
		}
		bopts.InitialMmapSize = int(size)
		// bulk loads never reuse freed pages
		bopts.NoFreelistSync = true
	}

	db, err := bolt.Open(filepath.Join(path, boltFileName), 0o644, bopts)
	if err != nil {
		return nil, err
	}

	if !readOnly {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(recordsBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	return &boltStore{db: db, path: path, readOnly: readOnly, isOpen: true}, nil
}

func (s *boltStore) CommitBatch(entries map[string][]byte) error {
	if s.readOnly {
		return ErrReadOnly
	}
	if !s.open() {
		return ErrClosed
	}

	keys := sortedKeys(entries)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		for _, k := range keys {
			if err := b.Put([]byte(k), entries[k]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *boltStore) Get(key []byte) ([]byte, error) {
	if !s.open() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(recordsBucket)
		if b == nil {
			return ErrKeyNotFound
		}
		v := b.Get(key)
		if v == nil {
			return ErrKeyNotFound
		}
		// v points into the mmap and is only valid inside the transaction
		value = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *boltStore) Engine() Engine {
	return EngineBolt
}

func (s *boltStore) Path() string {
	return s.path
}

func (s *boltStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	return s.db.Close()
}

func (s *boltStore) open() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.isOpen
}

func sortedKeys(entries map[string][]byte) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
