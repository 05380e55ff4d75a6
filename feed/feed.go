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

// Package feed holds the materialized social feed: posts and replies in
// arrival order, the latest profile of every author and the loading guards
// shown while the local user waits for their own publications.
package feed

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/metrics"
)

var (
	// ErrInvalidContent is returned for notes that cannot become feed items.
	ErrInvalidContent = errors.New("invalid content")

	// ErrStaleEpoch is returned for mutations issued under an epoch that has
	// since been reset.
	ErrStaleEpoch = errors.New("stale feed epoch")
)

var (
	itemsGauge    = metrics.NewRegisteredGauge("feed/items", nil)
	profilesGauge = metrics.NewRegisteredGauge("feed/profiles", nil)
	staleMeter    = metrics.NewRegisteredMeter("feed/stale", nil)
)

// Feed is the materialized feed state. All mutations go through its methods
// and are tagged with the epoch they were issued under. Results carrying an
// epoch older than the last Reset are rejected, so work started before a
// resubscription never leaks into the new feed.
type Feed struct {
	mu       sync.RWMutex
	epoch    uint64
	items    []*Item
	profiles map[string]*Profile

	postLoading  PostLoading
	replyLoading ReplyLoading

	itemFeed event.Feed
}

// New creates an empty feed at epoch zero.
func New() *Feed {
	return &Feed{profiles: make(map[string]*Profile)}
}

// Reset drops all items and profiles and starts a new epoch, which is
// returned. Loading guards are left in place.
func (f *Feed) Reset() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.epoch++
	f.items = nil
	f.profiles = make(map[string]*Profile)
	itemsGauge.Update(0)
	profilesGauge.Update(0)
	return f.epoch
}

// Epoch returns the current epoch.
func (f *Feed) Epoch() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.epoch
}

// AddFeedItem appends item to the feed. If the post loading guard awaits the
// item's author it is cleared together with the append.
func (f *Feed) AddFeedItem(epoch uint64, item *Item) error {
	f.mu.Lock()
	if epoch != f.epoch {
		f.mu.Unlock()
		staleMeter.Mark(1)
		return ErrStaleEpoch
	}
	f.items = append(f.items, item)
	itemsGauge.Update(int64(len(f.items)))
	if f.postLoading.Active && sameUser(f.postLoading.AwaitedUserID, item.FromAddress) {
		f.postLoading = PostLoading{}
		log.Debug("Awaited post arrived", "from", item.FromAddress, "hash", item.Hash)
	}
	f.mu.Unlock()

	f.itemFeed.Send(item)
	return nil
}

// UpsertProfile stores p as the latest profile of its social address.
func (f *Feed) UpsertProfile(epoch uint64, p *Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if epoch != f.epoch {
		staleMeter.Mark(1)
		return ErrStaleEpoch
	}
	f.profiles[strings.ToLower(p.SocialAddress)] = p
	profilesGauge.Update(int64(len(f.profiles)))
	return nil
}

// SetPostLoading marks a post by user as awaited.
func (f *Feed) SetPostLoading(user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postLoading = PostLoading{Active: true, AwaitedUserID: user}
}

// ClearPostLoading releases the post loading guard if it still awaits user.
func (f *Feed) ClearPostLoading(user string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postLoading.Active && sameUser(f.postLoading.AwaitedUserID, user) {
		f.postLoading = PostLoading{}
	}
}

// SetReplyLoading marks a reply to parent as awaited.
func (f *Feed) SetReplyLoading(parent common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyLoading = ReplyLoading{Active: true, AwaitedParent: parent}
}

// ReplyArrived releases the reply loading guard if it awaits a reply to
// parent. It reports whether the guard was cleared.
func (f *Feed) ReplyArrived(parent common.Hash) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.replyLoading.Active || f.replyLoading.AwaitedParent != parent {
		return false
	}
	f.replyLoading = ReplyLoading{}
	return true
}

// ClearReplyLoading releases the reply loading guard if it still awaits a
// reply to parent, without reporting an arrival.
func (f *Feed) ClearReplyLoading(parent common.Hash) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.replyLoading.Active && f.replyLoading.AwaitedParent == parent {
		f.replyLoading = ReplyLoading{}
	}
}

// PostLoading returns the state of the post loading guard.
func (f *Feed) PostLoading() PostLoading {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.postLoading
}

// ReplyLoading returns the state of the reply loading guard.
func (f *Feed) ReplyLoading() ReplyLoading {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.replyLoading
}

// Items returns the feed items in arrival order.
func (f *Feed) Items() []*Item {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]*Item(nil), f.items...)
}

// SortedItems returns the feed items ordered by block number, then by
// publication time. Items of equal position keep their arrival order.
func (f *Feed) SortedItems() []*Item {
	items := f.Items()
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].BlockNumber != items[j].BlockNumber {
			return items[i].BlockNumber < items[j].BlockNumber
		}
		return items[i].Timestamp < items[j].Timestamp
	})
	return items
}

// Replies returns the replies to parent in arrival order.
func (f *Feed) Replies(parent common.Hash) []*Item {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var replies []*Item
	for _, item := range f.items {
		if item.InReplyTo != nil && *item.InReplyTo == parent {
			replies = append(replies, item)
		}
	}
	return replies
}

// Profile returns the latest profile of a social address, or nil.
func (f *Feed) Profile(address string) *Profile {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.profiles[strings.ToLower(address)]
}

// Profiles returns all known profiles ordered by social address.
func (f *Feed) Profiles() []*Profile {
	f.mu.RLock()
	profiles := make([]*Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		profiles = append(profiles, p)
	}
	f.mu.RUnlock()

	sort.Slice(profiles, func(i, j int) bool {
		return strings.ToLower(profiles[i].SocialAddress) < strings.ToLower(profiles[j].SocialAddress)
	})
	return profiles
}

// SubscribeItems delivers every item added to the feed to ch.
func (f *Feed) SubscribeItems(ch chan<- *Item) event.Subscription {
	return f.itemFeed.Subscribe(ch)
}

// sameUser compares user identifiers, which are hex addresses in any case.
func sameUser(a, b string) bool {
	return strings.EqualFold(a, b)
}
