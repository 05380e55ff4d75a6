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

// Package feedapi exposes the feed and the publish path over JSON-RPC in the
// "feed" namespace.
package feedapi

import (
	"context"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/feed"
	"github.com/Liberty30/fandom-example-client/social"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
)

// Namespace is the RPC namespace of the API.
const Namespace = "feed"

// itemChanSize is the size of the channel buffering items for a subscription.
const itemChanSize = 128

// API is the feed RPC API.
type API struct {
	service *social.Service
	feed    *feed.Feed
}

// NewAPI creates the feed API of a service.
func NewAPI(service *social.Service) *API {
	return &API{service: service, feed: service.Feed()}
}

// Items returns the feed items in arrival order.
func (api *API) Items() []*feed.Item {
	return api.feed.Items()
}

// SortedItems returns the feed items ordered by block and publication time.
func (api *API) SortedItems() []*feed.Item {
	return api.feed.SortedItems()
}

// Replies returns the replies to the post with the given content hash.
func (api *API) Replies(parent common.Hash) []*feed.Item {
	return api.feed.Replies(parent)
}

// Profile returns the latest profile of address, or null.
func (api *API) Profile(address string) *feed.Profile {
	return api.feed.Profile(address)
}

// Profiles returns all known profiles.
func (api *API) Profiles() []*feed.Profile {
	return api.feed.Profiles()
}

func (api *API) PostLoading() feed.PostLoading {
	return api.feed.PostLoading()
}

func (api *API) ReplyLoading() feed.ReplyLoading {
	return api.feed.ReplyLoading()
}

func (api *API) SetPostLoading(user string) {
	api.feed.SetPostLoading(user)
}

func (api *API) SetReplyLoading(parent common.Hash) {
	api.feed.SetReplyLoading(parent)
}

// ReplyArrived releases the reply loading guard for parent.
func (api *API) ReplyArrived(parent common.Hash) bool {
	return api.feed.ReplyArrived(parent)
}

// Status returns the state of the ledger subscription.
func (api *API) Status() string {
	return api.service.Status().String()
}

// Start resubscribes from the given block, clearing the feed. It returns
// the new feed epoch.
func (api *API) Start(fromBlock hexutil.Uint64) hexutil.Uint64 {
	return hexutil.Uint64(api.service.Start(uint64(fromBlock)))
}

// Stop ends the ledger subscription.
func (api *API) Stop() error {
	return api.service.Stop()
}

// SendPost publishes a post by from. The post loading guard awaits the
// author until the post is ingested, or is released if publishing fails.
func (api *API) SendPost(ctx context.Context, from string, note *activity.Note) (common.Hash, error) {
	api.feed.SetPostLoading(from)
	hash, err := api.service.SendPost(ctx, from, note)
	if err != nil {
		api.feed.ClearPostLoading(from)
		log.Warn("Failed to publish post", "from", from, "err", err)
		return common.Hash{}, err
	}
	return hash, nil
}

// SendReply publishes a reply by from to parent. The reply loading guard
// awaits the parent, or is released if publishing fails.
func (api *API) SendReply(ctx context.Context, from string, note *activity.Note, parent common.Hash) (common.Hash, error) {
	api.feed.SetReplyLoading(parent)
	hash, err := api.service.SendReply(ctx, from, note, parent)
	if err != nil {
		api.feed.ClearReplyLoading(parent)
		log.Warn("Failed to publish reply", "from", from, "parent", parent, "err", err)
		return common.Hash{}, err
	}
	return hash, nil
}

// NewItems sends a notification for every item added to the feed.
func (api *API) NewItems(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	rpcSub := notifier.CreateSubscription()

	go func() {
		items := make(chan *feed.Item, itemChanSize)
		itemsSub := api.feed.SubscribeItems(items)
		defer itemsSub.Unsubscribe()

		for {
			select {
			case item := <-items:
				notifier.Notify(rpcSub.ID, item)
			case <-rpcSub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}
