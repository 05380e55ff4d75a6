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

package ingest

import (
	"errors"
	"fmt"

	"github.com/Liberty30/fandom-example-client/feed"
	"github.com/ethereum/go-ethereum/common"
)

// Status is the state of a Listener.
type Status int

const (
	Idle Status = iota
	Subscribed
	Unsubscribed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Subscribed:
		return "subscribed"
	case Unsubscribed:
		return "unsubscribed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome is how the processing of a row ended.
type Outcome int

const (
	Materialized Outcome = iota
	Dropped
)

func (o Outcome) String() string {
	if o == Materialized {
		return "materialized"
	}
	return "dropped"
}

// batchRow is the row index reported for failures of a whole batch.
const batchRow = -1

// RowResult reports the end of one ingest chain.
type RowResult struct {
	Outcome     Outcome
	Err         error  // reason of a drop
	Epoch       uint64 // epoch the chain was started under
	BlockNumber uint64
	FileURL     string      // batch file locator
	Row         int         // row index within the batch, -1 for the whole batch
	Hash        common.Hash // content hash, zero if the row could not be decoded
}

func (r *RowResult) drop(err error) *RowResult {
	r.Outcome, r.Err = Dropped, err
	return r
}

// Stale reports whether the result was discarded because the feed had been
// reset since the chain started.
func (r *RowResult) Stale() bool {
	return errors.Is(r.Err, feed.ErrStaleEpoch)
}
