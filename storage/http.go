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
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ethereum/go-ethereum/log"
)

// DefaultUploadTimeout bounds a single upload round trip.
const DefaultUploadTimeout = 30 * time.Second

// HTTPStore uploads files to a remote upload host using
// POST {host}/upload?filename=<name>. Uploaded files are served by the host
// at {host}/<name>.
type HTTPStore struct {
	client *http.Client
	host   string
}

// NewHTTPStore creates a store writing to the given upload host.
func NewHTTPStore(host string) *HTTPStore {
	return &HTTPStore{
		client: &http.Client{Timeout: DefaultUploadTimeout},
		host:   host,
	}
}

// Put implements Store.
func (s *HTTPStore) Put(ctx context.Context, name string, data []byte) error {
	if !validName(name) {
		return fmt.Errorf("%w: %q", errInvalidName, name)
	}
	endpoint := joinURL(s.host, "upload") + "?filename=" + url.QueryEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: cannot create request: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType(name))

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: upload of %s returned %s", ErrUnavailable, name, resp.Status)
	}
	log.Debug("Uploaded file", "name", name, "size", len(data))
	return nil
}

// URL implements Store.
func (s *HTTPStore) URL(name string) string {
	return joinURL(s.host, name)
}
