package kvstore

import (
	"errors"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
)

// Store is a small KV wrapper over Badger used for local, single-slot
// persistence. Values are read and written whole; there are no partial
// updates.
type Store struct {
	db *badger.DB
}

type OpenOptions struct {
	Path     string
	ReadOnly bool
	InMemory bool // tests only
}

func Open(opts OpenOptions) (*Store, error) {
	if !opts.InMemory && strings.TrimSpace(opts.Path) == "" {
		return nil, errors.New("kvstore: path is required")
	}
	bopts := badger.DefaultOptions(opts.Path).
		WithLogger(nil).
		WithReadOnly(opts.ReadOnly).
		WithInMemory(opts.InMemory)
	if opts.InMemory {
		bopts = bopts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get returns the value stored under key. A missing key yields found=false,
// not an error.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s == nil || s.db == nil {
		return nil, false, errors.New("kvstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return nil, false, errors.New("kvstore: key is empty")
	}
	var out []byte
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			out = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, false, err
	}
	return out, found, nil
}

// Set overwrites the value stored under key.
func (s *Store) Set(key string, val []byte) error {
	if s == nil || s.db == nil {
		return errors.New("kvstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return errors.New("kvstore: key is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, val)
	})
}

// Delete removes key. Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	if s == nil || s.db == nil {
		return errors.New("kvstore: not opened")
	}
	k := []byte(strings.TrimSpace(key))
	if len(k) == 0 {
		return errors.New("kvstore: key is empty")
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(k)
	})
}
