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

// Package social ties the publish and ingest paths of a fandom client
// together.
package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/Liberty30/fandom-example-client/batch"
	"github.com/Liberty30/fandom-example-client/content"
	"github.com/Liberty30/fandom-example-client/feed"
	"github.com/Liberty30/fandom-example-client/ingest"
	"github.com/Liberty30/fandom-example-client/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
)

// ErrNoContent is returned when publishing without a note.
var ErrNoContent = errors.New("no content to publish")

// Ledger is the publication ledger: it accepts batch publications and
// reports published batches.
type Ledger interface {
	batch.Submitter
	ingest.Source
}

// Service publishes posts and replies and keeps the feed in sync with the
// ledger.
type Service struct {
	config    Config
	store     *content.Store
	builder   *announcement.Builder
	publisher *batch.Publisher
	feed      *feed.Feed
	listener  *ingest.Listener
}

// New creates a service uploading through files, signing with signer and
// publishing to ledger. The feed stays empty until Start is called.
func New(config Config, files storage.Store, signer announcement.Signer, ledger Ledger) *Service {
	var (
		store    = content.NewStore(files)
		f        = feed.New()
		resolver = content.NewResolver(config.FetchTimeout, config.ContentCacheSize)
	)
	return &Service{
		config:    config,
		store:     store,
		builder:   announcement.NewBuilder(signer, store),
		publisher: batch.NewPublisher(files, ledger),
		feed:      f,
		listener: ingest.NewListener(ledger, batch.NewDecoder(0), resolver, f, ingest.Config{
			Concurrency:  config.FetchConcurrency,
			FetchTimeout: config.FetchTimeout,
		}),
	}
}

// Feed returns the materialized feed.
func (s *Service) Feed() *feed.Feed {
	return s.feed
}

// Start (re)subscribes to publications at or after fromBlock, discarding the
// current feed.
func (s *Service) Start(fromBlock uint64) uint64 {
	return s.listener.Start(fromBlock)
}

// Stop ends the subscription.
func (s *Service) Stop() error {
	return s.listener.Stop()
}

// Status returns the state of the ledger subscription.
func (s *Service) Status() ingest.Status {
	return s.listener.Status()
}

// SubscribeResults delivers the outcome of every ingested row to ch.
func (s *Service) SubscribeResults(ch chan<- *ingest.RowResult) event.Subscription {
	return s.listener.SubscribeResults(ch)
}

// SendPost publishes note as a broadcast by from and returns its content
// hash. The post shows up in the feed once the publication is observed on
// the ledger.
func (s *Service) SendPost(ctx context.Context, from string, note *activity.Note) (common.Hash, error) {
	return s.send(ctx, note, func(hash common.Hash) (*announcement.Announcement, error) {
		return s.builder.Broadcast(from, hash)
	})
}

// SendReply publishes note as a reply by from to the post with hash parent
// and returns its content hash.
func (s *Service) SendReply(ctx context.Context, from string, note *activity.Note, parent common.Hash) (common.Hash, error) {
	if parent == (common.Hash{}) {
		return common.Hash{}, announcement.ErrMissingParent
	}
	return s.send(ctx, note, func(hash common.Hash) (*announcement.Announcement, error) {
		return s.builder.Reply(from, hash, parent)
	})
}

func (s *Service) send(ctx context.Context, note *activity.Note, build func(common.Hash) (*announcement.Announcement, error)) (common.Hash, error) {
	if note == nil {
		return common.Hash{}, ErrNoContent
	}
	if note.Published == "" {
		stamped := *note
		stamped.Published = time.Now().UTC().Format(time.RFC3339)
		note = &stamped
	}
	hash, err := s.store.Store(ctx, note)
	if err != nil {
		return common.Hash{}, err
	}
	ann, err := build(hash)
	if err != nil {
		return common.Hash{}, fmt.Errorf("announcing %x: %w", hash, err)
	}
	if err := s.publisher.Publish(ctx, []*announcement.Announcement{ann}); err != nil {
		return common.Hash{}, err
	}
	log.Info("Published announcement", "type", ann.Type, "from", ann.FromID, "hash", hash)
	return hash, nil
}
