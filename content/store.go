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

// Package content implements content addressing of announcement bodies: the
// outbound store that hashes and uploads bodies, and the inbound resolver
// that fetches and classifies them.
package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
)

// ErrStorageUnavailable is returned by Store when the upload transport
// cannot be reached.
var ErrStorageUnavailable = storage.ErrUnavailable

// Extension is appended to the content hash to form the stored file name.
const Extension = ".json"

// Store content-addresses bodies and persists them through a storage
// transport. It is safe for concurrent use.
type Store struct {
	files storage.Store
}

// NewStore creates a content store writing through files.
func NewStore(files storage.Store) *Store {
	return &Store{files: files}
}

// Store uploads the canonical serialization of c under its content hash and
// returns the hash. Storing identical content again yields the same hash and
// rewrites the same file.
func (s *Store) Store(ctx context.Context, c activity.Content) (common.Hash, error) {
	hash, data, err := activity.Hash(c)
	if err != nil {
		return common.Hash{}, err
	}
	if err := s.files.Put(ctx, FileName(hash), data); err != nil {
		if !errors.Is(err, ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return common.Hash{}, fmt.Errorf("storing %x: %w", hash, err)
	}
	log.Debug("Stored activity content", "hash", hash, "type", c.ContentType(), "size", len(data))
	return hash, nil
}

// URL returns the locator under which the body with the given hash is served.
func (s *Store) URL(hash common.Hash) string {
	return s.files.URL(FileName(hash))
}

// FileName returns the storage name of the body with the given hash.
func FileName(hash common.Hash) string {
	return hash.Hex() + Extension
}
