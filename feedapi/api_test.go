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

package feedapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Liberty30/fandom-example-client/activity"
	"github.com/Liberty30/fandom-example-client/announcement"
	"github.com/Liberty30/fandom-example-client/contracts/publication"
	"github.com/Liberty30/fandom-example-client/feed"
	"github.com/Liberty30/fandom-example-client/social"
	"github.com/Liberty30/fandom-example-client/storage"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLedger struct {
	mu    sync.Mutex
	err   error
	block uint64
	feed  event.Feed
}

func (l *testLedger) Publish(ctx context.Context, pubs []publication.Publication) error {
	l.mu.Lock()
	if l.err != nil {
		l.mu.Unlock()
		return l.err
	}
	l.block++
	block := l.block
	l.mu.Unlock()

	for _, p := range pubs {
		l.feed.Send(&publication.BatchPublication{
			AnnouncementType: p.AnnouncementType,
			FileURL:          p.FileURL,
			FileHash:         p.FileHash,
			BlockNumber:      block,
		})
	}
	return nil
}

func (l *testLedger) SubscribeBatchPublications(fromBlock uint64, sink chan<- *publication.BatchPublication) event.Subscription {
	return l.feed.Subscribe(sink)
}

func (l *testLedger) setErr(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.err = err
}

func newTestClient(t *testing.T) (*rpc.Client, *social.Service, *testLedger) {
	host := httptest.NewUnstartedServer(nil)
	files := storage.NewMemoryStore("http://" + host.Listener.Addr().String())
	host.Config.Handler = storage.NewServer(files, nil)
	host.Start()
	t.Cleanup(host.Close)

	key, _ := crypto.GenerateKey()
	ledger := new(testLedger)
	service := social.New(social.DefaultConfig, files, announcement.NewKeySigner(key), ledger)

	srv, err := NewServer(service)
	require.NoError(t, err)
	client := rpc.DialInProc(srv)
	t.Cleanup(func() {
		client.Close()
		srv.Stop()
		service.Stop()
	})
	return client, service, ledger
}

var testNote = &activity.Note{Content: "hi", Published: "2024-01-01T00:00:00Z"}

func TestSendPostAndSubscribe(t *testing.T) {
	client, service, _ := newTestClient(t)
	ctx := context.Background()

	var epoch hexutil.Uint64
	require.NoError(t, client.Call(&epoch, "feed_start", hexutil.Uint64(0)))
	assert.Equal(t, hexutil.Uint64(1), epoch)

	var status string
	require.NoError(t, client.Call(&status, "feed_status"))
	assert.Equal(t, "subscribed", status)

	items := make(chan *feed.Item, 4)
	sub, err := client.Subscribe(ctx, Namespace, items, "newItems")
	require.NoError(t, err)
	defer sub.Unsubscribe()

	var hash common.Hash
	require.NoError(t, client.Call(&hash, "feed_sendPost", "0xAA", testNote))

	select {
	case item := <-items:
		assert.Equal(t, hash, item.Hash)
		assert.Equal(t, "0xAA", item.FromAddress)
		assert.Equal(t, "hi", item.Content.Content)
	case err := <-sub.Err():
		t.Fatalf("subscription failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no item notification")
	}

	var loading feed.PostLoading
	require.NoError(t, client.Call(&loading, "feed_postLoading"))
	assert.False(t, loading.Active)

	var got []*feed.Item
	require.NoError(t, client.Call(&got, "feed_items"))
	require.Len(t, got, 1)
	assert.Equal(t, hash, got[0].Hash)
	assert.Len(t, service.Feed().Items(), 1)
}

func TestSendPostFailureReleasesGuard(t *testing.T) {
	client, _, ledger := newTestClient(t)
	ledger.setErr(errors.New("execution reverted"))

	var hash common.Hash
	err := client.Call(&hash, "feed_sendPost", "0xAA", testNote)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "publication rejected"), err.Error())

	var loading feed.PostLoading
	require.NoError(t, client.Call(&loading, "feed_postLoading"))
	assert.False(t, loading.Active)
}

func TestReplyGuard(t *testing.T) {
	client, _, ledger := newTestClient(t)
	parent := common.HexToHash("0x01")

	var hash common.Hash
	require.NoError(t, client.Call(&hash, "feed_sendReply", "0xAA", testNote, parent))

	var loading feed.ReplyLoading
	require.NoError(t, client.Call(&loading, "feed_replyLoading"))
	assert.Equal(t, feed.ReplyLoading{Active: true, AwaitedParent: parent}, loading)

	var cleared bool
	require.NoError(t, client.Call(&cleared, "feed_replyArrived", parent))
	assert.True(t, cleared)
	require.NoError(t, client.Call(&loading, "feed_replyLoading"))
	assert.False(t, loading.Active)

	ledger.setErr(errors.New("execution reverted"))
	require.Error(t, client.Call(&hash, "feed_sendReply", "0xAA", testNote, parent))
	require.NoError(t, client.Call(&loading, "feed_replyLoading"))
	assert.False(t, loading.Active)
}

func TestGuardsAndProfiles(t *testing.T) {
	client, service, _ := newTestClient(t)

	require.NoError(t, client.Call(nil, "feed_setPostLoading", "0xBB"))
	var loading feed.PostLoading
	require.NoError(t, client.Call(&loading, "feed_postLoading"))
	assert.Equal(t, feed.PostLoading{Active: true, AwaitedUserID: "0xBB"}, loading)

	f := service.Feed()
	require.NoError(t, f.UpsertProfile(f.Epoch(), &feed.Profile{SocialAddress: "0xBB", Profile: activity.Profile{Name: "bob"}}))

	var profile *feed.Profile
	require.NoError(t, client.Call(&profile, "feed_profile", "0xbb"))
	require.NotNil(t, profile)
	assert.Equal(t, "bob", profile.Name)

	var profiles []*feed.Profile
	require.NoError(t, client.Call(&profiles, "feed_profiles"))
	assert.Len(t, profiles, 1)

	assert.Error(t, client.Call(nil, "feed_stop"), "stop without subscription")
}
