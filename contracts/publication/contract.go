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

// Package publication binds the DSNP Publisher contract: submitting batch
// publications and following the batch publication log.
package publication

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

// DefaultRetryBackoff is the upper bound of the delay between attempts to
// re-establish a failed log subscription.
const DefaultRetryBackoff = 30 * time.Second

// logBufferSize is the capacity of the live log channel.
const logBufferSize = 128

var errNoTransactor = errors.New("publication contract is read-only")

// Backend is the chain access needed by the contract binding.
type Backend interface {
	bind.ContractTransactor
	bind.ContractFilterer
}

// BatchPublication is a batch publication observed on the ledger.
type BatchPublication struct {
	AnnouncementType int16
	FileURL          string
	FileHash         common.Hash
	BlockNumber      uint64
	TxHash           common.Hash
	LogIndex         uint
}

// Contract is a binding of a deployed Publisher contract.
type Contract struct {
	address  common.Address
	abi      *abi.ABI
	bound    *bind.BoundContract
	filterer bind.ContractFilterer
	opts     *bind.TransactOpts
	backoff  time.Duration
}

// NewContract binds the Publisher contract at address. If opts is nil the
// binding can only observe publications.
func NewContract(address common.Address, backend Backend, opts *bind.TransactOpts) (*Contract, error) {
	parsed, err := publisherMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("failed to get publisher abi: %w", err)
	}
	return &Contract{
		address:  address,
		abi:      parsed,
		bound:    bind.NewBoundContract(address, *parsed, nil, backend, backend),
		filterer: backend,
		opts:     opts,
		backoff:  DefaultRetryBackoff,
	}, nil
}

// SetRetryBackoff changes the maximum delay between resubscription attempts.
// It must be called before subscribing.
func (c *Contract) SetRetryBackoff(backoff time.Duration) {
	if backoff > 0 {
		c.backoff = backoff
	}
}

// Address returns the address of the bound contract.
func (c *Contract) Address() common.Address {
	return c.address
}

// Publish submits the publications in a single transaction. It returns once
// the transaction has been accepted by the node.
func (c *Contract) Publish(ctx context.Context, pubs []Publication) error {
	if c.opts == nil {
		return errNoTransactor
	}
	opts := *c.opts
	opts.Context = ctx
	tx, err := c.bound.Transact(&opts, publishMethod, pubs)
	if err != nil {
		return err
	}
	log.Info("Sent publication transaction", "tx", tx.Hash(), "publications", len(pubs))
	return nil
}

// cursor is the ledger position of the last delivered publication.
type cursor struct {
	from  uint64
	block uint64
	index uint
	valid bool
}

func (cur *cursor) seen(l *types.Log) bool {
	if l.BlockNumber < cur.from {
		return true
	}
	if !cur.valid {
		return false
	}
	return l.BlockNumber < cur.block || (l.BlockNumber == cur.block && l.Index <= cur.index)
}

func (cur *cursor) advance(l *types.Log) {
	cur.block, cur.index, cur.valid = l.BlockNumber, l.Index, true
}

// SubscribeBatchPublications delivers every batch publication at or after
// fromBlock to sink, in ledger order: first the history, then live events.
// Transport failures are logged and the subscription is re-established from
// the last delivered position, so no publication is delivered twice. Logs
// that cannot be decoded are logged and skipped.
func (c *Contract) SubscribeBatchPublications(fromBlock uint64, sink chan<- *BatchPublication) event.Subscription {
	cur := &cursor{from: fromBlock}
	return event.ResubscribeErr(c.backoff, func(ctx context.Context, lastErr error) (event.Subscription, error) {
		if lastErr != nil {
			log.Warn("Batch publication subscription failed, resubscribing", "contract", c.address, "err", lastErr)
		}
		return c.follow(ctx, cur, sink)
	})
}

func (c *Contract) follow(ctx context.Context, cur *cursor, sink chan<- *BatchPublication) (event.Subscription, error) {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{c.address},
		Topics:    [][]common.Hash{{c.abi.Events[batchPublishedName].ID}},
	}
	logs := make(chan types.Log, logBufferSize)
	live, err := c.filterer.SubscribeFilterLogs(ctx, query, logs)
	if err != nil {
		return nil, err
	}
	from := cur.from
	if cur.valid {
		from = cur.block
	}
	query.FromBlock = new(big.Int).SetUint64(from)
	past, err := c.filterer.FilterLogs(ctx, query)
	if err != nil {
		live.Unsubscribe()
		return nil, err
	}
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer live.Unsubscribe()
		for i := range past {
			if !c.deliver(&past[i], cur, sink, quit) {
				return nil
			}
		}
		for {
			select {
			case l := <-logs:
				if !c.deliver(&l, cur, sink, quit) {
					return nil
				}
			case err := <-live.Err():
				return err
			case <-quit:
				return nil
			}
		}
	}), nil
}

// deliver decodes a log and sends it to sink. It returns false if the
// subscription was closed while waiting.
func (c *Contract) deliver(l *types.Log, cur *cursor, sink chan<- *BatchPublication, quit <-chan struct{}) bool {
	if l.Removed || cur.seen(l) {
		return true
	}
	cur.advance(l)

	var ev batchPublicationLog
	if err := unpackLog(c.abi, &ev, batchPublishedName, *l); err != nil {
		log.Warn("Dropped undecodable batch publication", "block", l.BlockNumber, "tx", l.TxHash, "index", l.Index, "err", err)
		return true
	}
	pub := &BatchPublication{
		AnnouncementType: ev.AnnouncementType,
		FileURL:          ev.FileURL,
		FileHash:         ev.FileHash,
		BlockNumber:      l.BlockNumber,
		TxHash:           l.TxHash,
		LogIndex:         l.Index,
	}
	select {
	case sink <- pub:
		return true
	case <-quit:
		return false
	}
}
