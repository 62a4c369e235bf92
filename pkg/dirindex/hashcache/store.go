package hashcache

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// ErrNotFound is returned when no digest is cached for a key.
var ErrNotFound = errors.New("digest not cached")

// Store wraps Badger for digest records.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a store in dir.
func OpenStore(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the digest cached for algorithm and path.
func (s *Store) Get(algorithm, path string) (*Digest, error) {
	var d Digest
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(algorithm, path))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(d.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// Put stores a digest.
func (s *Store) Put(algorithm, path string, d *Digest) error {
	value, err := d.Encode()
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(MakeKey(algorithm, path), value)
	})
}

// Delete removes one digest.
func (s *Store) Delete(algorithm, path string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(MakeKey(algorithm, path))
	})
}

// DeletePrefix removes every key starting with prefix and returns how
// many were removed.
func (s *Store) DeletePrefix(prefix []byte) (int, error) {
	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return 0, err
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return len(keys), nil
}

// Count returns the number of keys starting with prefix.
func (s *Store) Count(prefix []byte) (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
