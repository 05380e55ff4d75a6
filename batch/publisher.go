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
	"errors"
	"fmt"

	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/Liberty30/fandom-example-client/contracts/publication"
	"github.com/Liberty30/fandom-example-client/storage"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

// ErrPublicationRejected is returned when the publication service refuses a
// batch.
var ErrPublicationRejected = errors.New("publication rejected")

var (
	publishMeter     = metrics.NewRegisteredMeter("batch/publish", nil)
	publishFailMeter = metrics.NewRegisteredMeter("batch/publish/fail", nil)
	publishRowsMeter = metrics.NewRegisteredMeter("batch/publish/rows", nil)
)

// Submitter hands publications to the ledger. Publish returns once the
// submission has been acknowledged, not once it is confirmed.
type Submitter interface {
	Publish(ctx context.Context, pubs []publication.Publication) error
}

// Publisher packages announcements into batch files, uploads them and
// submits them for publication.
type Publisher struct {
	files     storage.Store
	submitter Submitter
}

// NewPublisher creates a publisher uploading batch files to files and
// submitting them through submitter.
func NewPublisher(files storage.Store, submitter Submitter) *Publisher {
	return &Publisher{files: files, submitter: submitter}
}

// Publish packages the announcements into exactly one batch file, uploads it
// and submits it. Failures are returned to the caller and never retried.
func (p *Publisher) Publish(ctx context.Context, anns []*announcement.Announcement) error {
	err := p.publish(ctx, anns)
	if err != nil {
		publishFailMeter.Mark(1)
	}
	return err
}

func (p *Publisher) publish(ctx context.Context, anns []*announcement.Announcement) error {
	file, err := Create(anns)
	if errors.Is(err, ErrEmptyBatch) {
		return err
	} else if err != nil {
		return fmt.Errorf("%w: %v", ErrPublicationRejected, err)
	}
	if err := p.files.Put(ctx, file.Name(), file.Data); err != nil {
		return fmt.Errorf("uploading batch %x: %w", file.Hash, err)
	}
	pub := publication.Publication{
		AnnouncementType: int16(file.Type),
		FileURL:          p.files.URL(file.Name()),
		FileHash:         file.Hash,
	}
	if err := p.submitter.Publish(ctx, []publication.Publication{pub}); err != nil {
		if !errors.Is(err, ErrPublicationRejected) {
			err = fmt.Errorf("%w: %v", ErrPublicationRejected, err)
		}
		return err
	}
	publishMeter.Mark(1)
	publishRowsMeter.Mark(int64(file.Count))
	log.Info("Submitted batch publication", "type", file.Type, "rows", file.Count, "hash", file.Hash, "url", pub.FileURL)
	return nil
}
