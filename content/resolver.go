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

package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/ethereum/go-ethereum/common/lru"
)

const (
	// DefaultFetchTimeout bounds a single content fetch.
	DefaultFetchTimeout = 15 * time.Second

	// DefaultCacheSize is the number of resolved bodies kept in memory.
	DefaultCacheSize = 1024

	// maxContentSize caps the size of a fetched content body.
	maxContentSize = 1024 * 1024
)

// ErrFetchFailed is returned when a content body cannot be retrieved.
var ErrFetchFailed = errors.New("content fetch failed")

// Resolver fetches content bodies by locator and narrows them to notes or
// profiles. Bodies are immutable, so successful resolutions are cached by
// locator. It is safe for concurrent use.
type Resolver struct {
	client *http.Client
	cache  *lru.Cache[string, []byte]
}

// NewResolver creates a resolver. A zero timeout or cache size selects the default.
func NewResolver(timeout time.Duration, cacheSize int) *Resolver {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Resolver{
		client: &http.Client{Timeout: timeout},
		cache:  lru.NewCache[string, []byte](cacheSize),
	}
}

// Resolve fetches the body at url and classifies it. Fetch failures wrap
// ErrFetchFailed, unrecognised bodies wrap activity.ErrUnknownContentType.
func (r *Resolver) Resolve(ctx context.Context, url string) (activity.Content, error) {
	data, ok := r.cache.Get(url)
	if !ok {
		var err error
		if data, err = r.fetch(ctx, url); err != nil {
			return nil, err
		}
	}
	c, err := activity.Parse(data)
	if err != nil {
		return nil, err
	}
	r.cache.Add(url, data)
	return c, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot create request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetchFailed, url, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxContentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", ErrFetchFailed, url, err)
	}
	if len(data) > maxContentSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrFetchFailed, url, maxContentSize)
	}
	return data, nil
}
