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

// Package ingest follows the publication ledger and materializes the
// announced content into a feed.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/Liberty30/fandom-example-client/batch"
	"github.com/Liberty30/fandom-example-client/contracts/publication"
	"github.com/Liberty30/fandom-example-client/feed"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultConcurrency is the default number of rows resolved in parallel.
	DefaultConcurrency = 16

	// DefaultFetchTimeout bounds the resolution of a single row.
	DefaultFetchTimeout = 15 * time.Second

	// eventBufferSize is the capacity of the publication channel.
	eventBufferSize = 64
)

// ErrAlreadyStopped is returned by Stop if the listener is not subscribed.
var ErrAlreadyStopped = errors.New("listener not subscribed")

var errUnsupportedBatch = errors.New("unsupported announcement type")

var (
	batchMeter        = metrics.NewRegisteredMeter("ingest/batches", nil)
	batchDropMeter    = metrics.NewRegisteredMeter("ingest/batches/dropped", nil)
	materializedMeter = metrics.NewRegisteredMeter("ingest/rows/materialized", nil)
	droppedMeter      = metrics.NewRegisteredMeter("ingest/rows/dropped", nil)
	resolveTimer      = metrics.NewRegisteredTimer("ingest/resolve", nil)
)

// Source delivers batch publications from the ledger.
type Source interface {
	SubscribeBatchPublications(fromBlock uint64, sink chan<- *publication.BatchPublication) event.Subscription
}

// Opener opens published batch files.
type Opener interface {
	Open(ctx context.Context, url string) (*batch.Reader, error)
}

// Resolver fetches and classifies content bodies.
type Resolver interface {
	Resolve(ctx context.Context, url string) (activity.Content, error)
}

// Config contains the tunables of a Listener.
type Config struct {
	Concurrency  int           // rows resolved in parallel
	FetchTimeout time.Duration // bound of a single row resolution
}

func (c *Config) sanitize() {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
}

// Listener subscribes to batch publications and runs every announced row
// through decoding, content resolution and materialization. Each
// publication is processed by its own goroutine and rows are resolved
// concurrently, so items may be materialized out of ledger order.
type Listener struct {
	source   Source
	opener   Opener
	resolver Resolver
	feed     *feed.Feed
	config   Config
	sem      *semaphore.Weighted

	mu     sync.Mutex
	status Status
	sub    event.Subscription
	quit   chan struct{}
	loopWg sync.WaitGroup

	inflight sync.WaitGroup
	results  event.Feed
}

// NewListener creates an idle listener materializing into f.
func NewListener(source Source, opener Opener, resolver Resolver, f *feed.Feed, config Config) *Listener {
	config.sanitize()
	return &Listener{
		source:   source,
		opener:   opener,
		resolver: resolver,
		feed:     f,
		config:   config,
		sem:      semaphore.NewWeighted(int64(config.Concurrency)),
	}
}

// Status returns the subscription state.
func (l *Listener) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Start subscribes to publications at or after fromBlock. Any previous
// subscription is stopped and the feed is reset first. It returns the feed
// epoch that the new subscription materializes under.
func (l *Listener) Start(fromBlock uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status == Subscribed {
		l.stop()
	}
	epoch := l.feed.Reset()

	ch := make(chan *publication.BatchPublication, eventBufferSize)
	l.sub = l.source.SubscribeBatchPublications(fromBlock, ch)
	l.quit = make(chan struct{})
	l.status = Subscribed

	l.loopWg.Add(1)
	go l.loop(epoch, l.sub, ch, l.quit)

	log.Info("Subscribed to batch publications", "from", fromBlock, "epoch", epoch)
	return epoch
}

// Stop ends the subscription. Publications already being processed may
// still be materialized.
func (l *Listener) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.status != Subscribed {
		return ErrAlreadyStopped
	}
	l.stop()
	log.Info("Unsubscribed from batch publications")
	return nil
}

func (l *Listener) stop() {
	l.sub.Unsubscribe()
	close(l.quit)
	l.loopWg.Wait()
	l.status = Unsubscribed
}

// Wait blocks until all in-flight publications have been processed.
func (l *Listener) Wait() {
	l.inflight.Wait()
}

// SubscribeResults delivers the result of every processed row to ch. The
// channel should be buffered: processing blocks until the result has been
// delivered to all subscribers.
func (l *Listener) SubscribeResults(ch chan<- *RowResult) event.Subscription {
	return l.results.Subscribe(ch)
}

func (l *Listener) loop(epoch uint64, sub event.Subscription, ch <-chan *publication.BatchPublication, quit chan struct{}) {
	defer l.loopWg.Done()

	for {
		select {
		case pub := <-ch:
			l.inflight.Add(1)
			go func() {
				defer l.inflight.Done()
				l.processBatch(epoch, pub)
			}()
		case err := <-sub.Err():
			if err != nil {
				log.Error("Batch publication subscription terminated", "err", err)
			}
			return
		case <-quit:
			return
		}
	}
}

// processBatch reads the rows of a published batch in file order and
// dispatches each to its own resolution goroutine.
func (l *Listener) processBatch(epoch uint64, pub *publication.BatchPublication) {
	batchMeter.Mark(1)
	logger := log.New("block", pub.BlockNumber, "url", pub.FileURL)

	typ := announcement.Type(pub.AnnouncementType)
	if typ != announcement.TypeBroadcast && typ != announcement.TypeReply {
		l.dropBatch(logger, epoch, pub, fmt.Errorf("%w %d", errUnsupportedBatch, pub.AnnouncementType))
		return
	}
	reader, err := l.opener.Open(context.Background(), pub.FileURL)
	if err != nil {
		l.dropBatch(logger, epoch, pub, err)
		return
	}
	defer reader.Close()

	logger.Debug("Processing batch publication", "type", typ)
	for i := 0; ; i++ {
		row, err := reader.Next()
		if err == io.EOF {
			return
		}
		if err != nil {
			// Rows dispatched so far are kept.
			l.dropBatch(logger, epoch, pub, err)
			return
		}
		if err := l.sem.Acquire(context.Background(), 1); err != nil {
			return
		}
		l.inflight.Add(1)
		go func(i int, row []byte) {
			defer l.inflight.Done()
			defer l.sem.Release(1)
			l.report(logger, l.processRow(epoch, pub, typ, i, row))
		}(i, row)
	}
}

func (l *Listener) dropBatch(logger log.Logger, epoch uint64, pub *publication.BatchPublication, err error) {
	batchDropMeter.Mark(1)
	if !errors.Is(err, batch.ErrBatchUnreadable) && !errors.Is(err, errUnsupportedBatch) {
		err = fmt.Errorf("%w: %v", batch.ErrBatchUnreadable, err)
	}
	logger.Warn("Dropped batch publication", "err", err)
	l.results.Send(&RowResult{
		Outcome:     Dropped,
		Err:         err,
		Epoch:       epoch,
		BlockNumber: pub.BlockNumber,
		FileURL:     pub.FileURL,
		Row:         batchRow,
	})
}

// processRow decodes a row, resolves its content and applies it to the feed.
func (l *Listener) processRow(epoch uint64, pub *publication.BatchPublication, typ announcement.Type, index int, row []byte) *RowResult {
	res := &RowResult{
		Epoch:       epoch,
		BlockNumber: pub.BlockNumber,
		FileURL:     pub.FileURL,
		Row:         index,
	}
	ann, err := announcement.DecodeRow(row)
	if err != nil {
		return res.drop(err)
	}
	res.Hash = ann.ContentHash
	if ann.Type != typ {
		return res.drop(fmt.Errorf("%w: %v row in %v batch", announcement.ErrMalformedRow, ann.Type, typ))
	}
	if l.feed.Epoch() != epoch {
		return res.drop(feed.ErrStaleEpoch)
	}

	ctx, cancel := context.WithTimeout(context.Background(), l.config.FetchTimeout)
	defer cancel()
	start := time.Now()
	body, err := l.resolver.Resolve(ctx, ann.URL)
	resolveTimer.UpdateSince(start)
	if err != nil {
		return res.drop(err)
	}

	switch body := body.(type) {
	case *activity.Note:
		var item *feed.Item
		if item, err = feed.NewItem(ann, body, pub.BlockNumber); err != nil {
			return res.drop(err)
		}
		err = l.feed.AddFeedItem(epoch, item)
	case *activity.Profile:
		err = l.feed.UpsertProfile(epoch, feed.NewProfile(ann, body))
	default:
		err = fmt.Errorf("%w: %T", activity.ErrUnknownContentType, body)
	}
	if err != nil {
		return res.drop(err)
	}
	res.Outcome = Materialized
	return res
}

func (l *Listener) report(logger log.Logger, res *RowResult) {
	switch {
	case res.Outcome == Materialized:
		materializedMeter.Mark(1)
		logger.Trace("Materialized announcement", "row", res.Row, "hash", res.Hash)
	case res.Stale():
		droppedMeter.Mark(1)
		logger.Debug("Discarded announcement from stale epoch", "row", res.Row, "hash", res.Hash, "epoch", res.Epoch)
	default:
		droppedMeter.Mark(1)
		logger.Warn("Dropped announcement", "row", res.Row, "hash", res.Hash, "err", res.Err)
	}
	l.results.Send(res)
}
