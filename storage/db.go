// Copyright 2024 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// DBStore keeps files in a key-value database, keyed by file name. It backs
// the local upload host and in-process setups.
type DBStore struct {
	db      ethdb.KeyValueStore
	baseURL string
}

// NewDBStore wraps a key-value database. Locators are built from baseURL.
func NewDBStore(db ethdb.KeyValueStore, baseURL string) *DBStore {
	return &DBStore{db: db, baseURL: baseURL}
}

// NewMemoryStore creates a DBStore over an in-memory database.
func NewMemoryStore(baseURL string) *DBStore {
	return NewDBStore(memorydb.New(), baseURL)
}

// Put implements Store. Files are write-once: rewriting an existing name with
// identical data is a no-op, rewriting it with different data is refused.
func (s *DBStore) Put(ctx context.Context, name string, data []byte) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", errInvalidName, name)
	}
	key := []byte(name)
	if ok, err := s.db.Has(key); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	} else if ok {
		old, err := s.db.Get(key)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		if !bytes.Equal(old, data) {
			return fmt.Errorf("%w: %s already stored with different content", ErrUnavailable, name)
		}
		return nil
	}
	if err := s.db.Put(key, data); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Get retrieves a stored file.
func (s *DBStore) Get(name string) ([]byte, error) {
	key := []byte(name)
	if ok, err := s.db.Has(key); err != nil {
		return nil, err
	} else if !ok {
		return nil, ErrNotFound
	}
	return s.db.Get(key)
}

// URL implements Store.
func (s *DBStore) URL(name string) string {
	return joinURL(s.baseURL, name)
}

// Close releases the underlying database.
func (s *DBStore) Close() error {
	return s.db.Close()
}
