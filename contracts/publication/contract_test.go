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

package publication

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/require"
)

var contractAddr = common.HexToAddress("0x5fbdb2315678afecb367f032d93f642f64180aa3")

// fakeChain serves logs from an in-memory history and lets tests push live
// logs and break the live subscription.
type fakeChain struct {
	bind.ContractTransactor

	mu      sync.Mutex
	history []types.Log
	sink    chan<- types.Log
	fail    chan error
	subs    chan struct{}

	sent    []*types.Transaction
	sendErr error
}

func newFakeChain(history ...types.Log) *fakeChain {
	return &fakeChain{history: history, subs: make(chan struct{}, 16)}
}

func (f *fakeChain) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var from uint64
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	var logs []types.Log
	for _, l := range f.history {
		if l.BlockNumber >= from {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

func (f *fakeChain) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	fail := make(chan error, 1)
	f.mu.Lock()
	f.sink, f.fail = ch, fail
	f.mu.Unlock()

	sub := event.NewSubscription(func(quit <-chan struct{}) error {
		select {
		case err := <-fail:
			return err
		case <-quit:
			return nil
		}
	})
	f.subs <- struct{}{}
	return sub, nil
}

func (f *fakeChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeChain) emit(l types.Log) {
	f.mu.Lock()
	f.history = append(f.history, l)
	sink := f.sink
	f.mu.Unlock()
	sink <- l
}

func (f *fakeChain) breakSubscription() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail <- errors.New("connection reset")
}

func (f *fakeChain) waitSubscribed(t *testing.T) {
	t.Helper()
	select {
	case <-f.subs:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for log subscription")
	}
}

func packLog(t *testing.T, block uint64, index uint, typ int16, url string, hash common.Hash) types.Log {
	t.Helper()
	parsed, err := publisherMetaData.GetAbi()
	require.NoError(t, err)
	ev := parsed.Events[batchPublishedName]
	data, err := ev.Inputs.NonIndexed().Pack(hash, url)
	require.NoError(t, err)
	return types.Log{
		Address:     contractAddr,
		Topics:      []common.Hash{ev.ID, common.BigToHash(big.NewInt(int64(typ)))},
		Data:        data,
		BlockNumber: block,
		Index:       index,
	}
}

func receive(t *testing.T, ch <-chan *BatchPublication) *BatchPublication {
	t.Helper()
	select {
	case pub := <-ch:
		return pub
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for publication")
		return nil
	}
}

func expectNone(t *testing.T, ch <-chan *BatchPublication) {
	t.Helper()
	select {
	case pub := <-ch:
		t.Fatalf("unexpected publication at block %d index %d", pub.BlockNumber, pub.LogIndex)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublish(t *testing.T) {
	key, _ := crypto.GenerateKey()
	opts, err := bind.NewKeyedTransactorWithChainID(key, big.NewInt(1337))
	require.NoError(t, err)
	opts.GasPrice = big.NewInt(1)
	opts.GasLimit = 500_000
	opts.Nonce = big.NewInt(0)

	chain := newFakeChain()
	c, err := NewContract(contractAddr, chain, opts)
	require.NoError(t, err)

	pubs := []Publication{{
		AnnouncementType: 2,
		FileURL:          "http://localhost:3000/0x01.batch",
		FileHash:         common.HexToHash("0x01"),
	}}
	require.NoError(t, c.Publish(context.Background(), pubs))
	require.Len(t, chain.sent, 1)

	tx := chain.sent[0]
	require.Equal(t, contractAddr, *tx.To())
	want, err := c.abi.Pack(publishMethod, pubs)
	require.NoError(t, err)
	require.Equal(t, want, tx.Data())

	chain.sendErr = errors.New("execution reverted")
	require.Error(t, c.Publish(context.Background(), pubs))
}

func TestPublishReadOnly(t *testing.T) {
	c, err := NewContract(contractAddr, newFakeChain(), nil)
	require.NoError(t, err)
	require.ErrorIs(t, c.Publish(context.Background(), nil), errNoTransactor)
}

func TestSubscribeBackfillAndLive(t *testing.T) {
	h1, h2, h3 := common.HexToHash("0x01"), common.HexToHash("0x02"), common.HexToHash("0x03")
	chain := newFakeChain(
		packLog(t, 1, 0, 2, "http://host/1.batch", h1),
		packLog(t, 4, 2, 3, "http://host/2.batch", h2),
	)
	c, err := NewContract(contractAddr, chain, nil)
	require.NoError(t, err)

	ch := make(chan *BatchPublication, 8)
	sub := c.SubscribeBatchPublications(2, ch)
	defer sub.Unsubscribe()
	chain.waitSubscribed(t)

	pub := receive(t, ch)
	require.Equal(t, uint64(4), pub.BlockNumber)
	require.Equal(t, uint(2), pub.LogIndex)
	require.Equal(t, int16(3), pub.AnnouncementType)
	require.Equal(t, "http://host/2.batch", pub.FileURL)
	require.Equal(t, h2, pub.FileHash)

	chain.emit(packLog(t, 5, 0, 2, "http://host/3.batch", h3))
	pub = receive(t, ch)
	require.Equal(t, uint64(5), pub.BlockNumber)
	require.Equal(t, h3, pub.FileHash)
	expectNone(t, ch)
}

func TestSubscribeResumesWithoutDuplicates(t *testing.T) {
	chain := newFakeChain(
		packLog(t, 1, 0, 2, "http://host/1.batch", common.HexToHash("0x01")),
		packLog(t, 1, 1, 2, "http://host/2.batch", common.HexToHash("0x02")),
	)
	c, err := NewContract(contractAddr, chain, nil)
	require.NoError(t, err)
	c.SetRetryBackoff(10 * time.Millisecond)

	ch := make(chan *BatchPublication, 8)
	sub := c.SubscribeBatchPublications(0, ch)
	defer sub.Unsubscribe()
	chain.waitSubscribed(t)

	require.Equal(t, uint(0), receive(t, ch).LogIndex)
	require.Equal(t, uint(1), receive(t, ch).LogIndex)

	// A live copy of a backfilled log is ignored.
	chain.emit(packLog(t, 1, 1, 2, "http://host/2.batch", common.HexToHash("0x02")))
	chain.emit(packLog(t, 2, 0, 2, "http://host/3.batch", common.HexToHash("0x03")))
	require.Equal(t, uint64(2), receive(t, ch).BlockNumber)

	chain.breakSubscription()
	chain.waitSubscribed(t)
	chain.emit(packLog(t, 3, 0, 2, "http://host/4.batch", common.HexToHash("0x04")))

	pub := receive(t, ch)
	require.Equal(t, uint64(3), pub.BlockNumber)
	require.Equal(t, "http://host/4.batch", pub.FileURL)
	expectNone(t, ch)
}

func TestSubscribeSkipsRemovedAndUndecodable(t *testing.T) {
	removed := packLog(t, 1, 0, 2, "http://host/removed.batch", common.HexToHash("0x01"))
	removed.Removed = true
	garbage := packLog(t, 1, 1, 2, "", common.Hash{})
	garbage.Data = []byte{1, 2, 3}
	good := packLog(t, 2, 0, 2, "http://host/good.batch", common.HexToHash("0x02"))

	chain := newFakeChain(removed, garbage, good)
	c, err := NewContract(contractAddr, chain, nil)
	require.NoError(t, err)

	ch := make(chan *BatchPublication, 8)
	sub := c.SubscribeBatchPublications(0, ch)
	defer sub.Unsubscribe()
	chain.waitSubscribed(t)

	pub := receive(t, ch)
	require.Equal(t, "http://host/good.batch", pub.FileURL)
	expectNone(t, ch)
}

func TestUnpackLogSignatureMismatch(t *testing.T) {
	parsed, err := publisherMetaData.GetAbi()
	require.NoError(t, err)
	l := packLog(t, 1, 0, 2, "http://host/1.batch", common.Hash{})
	l.Topics[0] = common.HexToHash("0xdead")

	var ev batchPublicationLog
	require.ErrorIs(t, unpackLog(parsed, &ev, batchPublishedName, l), errEventSignatureMismatch)
}
