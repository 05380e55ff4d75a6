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

package feed

import (
	"fmt"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/ethereum/go-ethereum/common"
)

// Item is a post or reply materialized from the ledger.
type Item struct {
	FromAddress string         `json:"fromAddress"`
	Hash        common.Hash    `json:"hash"`
	Timestamp   int64          `json:"timestamp"` // milliseconds since the epoch
	URI         string         `json:"uri"`
	Content     *activity.Note `json:"content"`
	InReplyTo   *common.Hash   `json:"inReplyTo,omitempty"`
	BlockNumber uint64         `json:"blockNumber"`
}

// NewItem builds a feed item from an announcement and the note it
// references. The note must carry a valid publication timestamp.
func NewItem(ann *announcement.Announcement, note *activity.Note, blockNumber uint64) (*Item, error) {
	if note == nil {
		return nil, fmt.Errorf("%w: missing note", ErrInvalidContent)
	}
	if note.Published == "" {
		return nil, fmt.Errorf("%w: note %x has no publication time", ErrInvalidContent, ann.ContentHash)
	}
	published, err := note.PublishedTime()
	if err != nil {
		return nil, fmt.Errorf("%w: note %x: %v", ErrInvalidContent, ann.ContentHash, err)
	}
	item := &Item{
		FromAddress: ann.FromID,
		Hash:        ann.ContentHash,
		Timestamp:   published.UnixMilli(),
		URI:         ann.URL,
		Content:     note,
		BlockNumber: blockNumber,
	}
	if ann.IsReply() {
		parent := ann.InReplyTo
		item.InReplyTo = &parent
	}
	return item, nil
}

// Profile is the latest profile published by a social address.
type Profile struct {
	SocialAddress string `json:"socialAddress"`
	activity.Profile
}

// NewProfile builds a profile record from an announcement and the profile
// body it references.
func NewProfile(ann *announcement.Announcement, p *activity.Profile) *Profile {
	return &Profile{SocialAddress: ann.FromID, Profile: *p}
}

// PostLoading tracks a post the local user is waiting to see on the feed.
type PostLoading struct {
	Active        bool   `json:"active"`
	AwaitedUserID string `json:"awaitedUserId,omitempty"`
}

// ReplyLoading tracks a reply the local user is waiting to see on the feed.
type ReplyLoading struct {
	Active        bool        `json:"active"`
	AwaitedParent common.Hash `json:"awaitedParent,omitempty"`
}
