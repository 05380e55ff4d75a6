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

package batch

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultFetchTimeout bounds fetching and reading a whole batch file.
const DefaultFetchTimeout = time.Minute

// Decoder opens published batch files by locator.
type Decoder struct {
	client *http.Client
}

// NewDecoder creates a decoder. A zero timeout selects DefaultFetchTimeout.
func NewDecoder(timeout time.Duration) *Decoder {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Decoder{client: &http.Client{Timeout: timeout}}
}

// Open starts fetching the batch file at url. Rows are decoded lazily as
// the returned reader is advanced; the reader must be closed. Re-reading a
// batch requires opening it again.
func (d *Decoder) Open(ctx context.Context, url string) (*Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchUnreadable, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchUnreadable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %s", ErrBatchUnreadable, url, resp.Status)
	}
	return NewReader(resp.Body), nil
}
