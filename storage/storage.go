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

// Package storage implements the write transport for content-addressed files
// (content bodies and batch files) and a small upload host serving them.
package storage

import (
	"context"
	"errors"
	"path"
	"strings"
)

var (
	// ErrUnavailable is returned when the upload transport cannot be reached
	// or refuses the write.
	ErrUnavailable = errors.New("storage unavailable")

	// ErrNotFound is returned when a named file does not exist.
	ErrNotFound = errors.New("file not found")

	errInvalidName = errors.New("invalid file name")
)

// Store persists immutable, named files and resolves the public locator
// under which a stored file can be fetched. Writing the same name twice with
// the same data is harmless.
type Store interface {
	Put(ctx context.Context, name string, data []byte) error
	URL(name string) string
}

// validName reports whether name is a flat file name usable as a storage key.
func validName(name string) bool {
	if name == "" || name == "upload" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\?#")
}

// contentType picks the media type advertised for a stored file.
func contentType(name string) string {
	switch path.Ext(name) {
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}
