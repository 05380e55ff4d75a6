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

package announcement

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type hostLocator string

func (h hostLocator) URL(hash common.Hash) string { return string(h) + "/" + hash.Hex() + ".json" }

type failingSigner struct{}

func (failingSigner) SignAnnouncement(common.Hash) ([]byte, error) {
	return nil, errors.New("wallet locked")
}

var (
	testHash   = common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")
	testParent = common.HexToHash("0x2222222222222222222222222222222222222222222222222222222222222222")
)

func newTestBuilder(t *testing.T) (*Builder, *KeySigner) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := NewKeySigner(key)
	return NewBuilder(signer, hostLocator("https://uploads.example")), signer
}

func TestBroadcast(t *testing.T) {
	b, signer := newTestBuilder(t)

	a, err := b.Broadcast("0xAA", testHash)
	require.NoError(t, err)
	assert.Equal(t, TypeBroadcast, a.Type)
	assert.Equal(t, "0xAA", a.FromID)
	assert.Equal(t, testHash, a.ContentHash)
	assert.Equal(t, "https://uploads.example/"+testHash.Hex()+".json", a.URL)
	assert.Equal(t, common.Hash{}, a.InReplyTo)

	pub, err := crypto.SigToPub(a.SigHash().Bytes(), a.Signature)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), crypto.PubkeyToAddress(*pub))
}

func TestReply(t *testing.T) {
	b, _ := newTestBuilder(t)

	a, err := b.Reply("0xBB", testHash, testParent)
	require.NoError(t, err)
	assert.Equal(t, TypeReply, a.Type)
	assert.Equal(t, testParent, a.InReplyTo)
	assert.True(t, a.IsReply())
}

func TestReplyMissingParent(t *testing.T) {
	b, _ := newTestBuilder(t)

	a, err := b.Reply("0xBB", testHash, common.Hash{})
	if !errors.Is(err, ErrMissingParent) {
		t.Fatalf("expected ErrMissingParent, got %v", err)
	}
	if a != nil {
		t.Fatalf("announcement produced despite missing parent: %+v", a)
	}
}

func TestBuildValidation(t *testing.T) {
	b, _ := newTestBuilder(t)

	_, err := b.Broadcast("", testHash)
	assert.ErrorIs(t, err, ErrMissingSender)

	_, err = b.Broadcast("0xAA", common.Hash{})
	assert.ErrorIs(t, err, ErrMissingHash)
}

func TestSigningFailed(t *testing.T) {
	b := NewBuilder(failingSigner{}, hostLocator("https://uploads.example"))
	_, err := b.Broadcast("0xAA", testHash)
	assert.ErrorIs(t, err, ErrSigningFailed)

	b = NewBuilder(nil, hostLocator("https://uploads.example"))
	_, err = b.Reply("0xAA", testHash, testParent)
	assert.ErrorIs(t, err, ErrSigningFailed)
}

func TestSigHashCoversParent(t *testing.T) {
	a := &Announcement{Type: TypeReply, FromID: "0xAA", ContentHash: testHash, URL: "u", InReplyTo: testParent}
	b := *a
	b.InReplyTo = testHash
	assert.NotEqual(t, a.SigHash(), b.SigHash())
}

func TestRowRoundTrip(t *testing.T) {
	b, _ := newTestBuilder(t)
	for _, build := range []func() (*Announcement, error){
		func() (*Announcement, error) { return b.Broadcast("0xAA", testHash) },
		func() (*Announcement, error) { return b.Reply("0xAA", testHash, testParent) },
	} {
		a, err := build()
		require.NoError(t, err)
		row, err := a.EncodeRow()
		require.NoError(t, err)
		dec, err := DecodeRow(row)
		require.NoError(t, err)
		assert.Equal(t, a, dec)
	}
}

func TestDecodeRowInvalid(t *testing.T) {
	encode := func(v interface{}) []byte {
		enc, err := rlp.EncodeToBytes(v)
		require.NoError(t, err)
		return enc
	}
	tests := map[string][]byte{
		"garbage":          {0xff, 0x01},
		"unknown type":     encode(&rlpAnnouncement{Type: 4, FromID: "0xAA", ContentHash: testHash, URL: "u"}),
		"reply no parent":  encode(&rlpAnnouncement{Type: 3, FromID: "0xAA", ContentHash: testHash, URL: "u"}),
		"broadcast parent": encode(&rlpAnnouncement{Type: 2, FromID: "0xAA", ContentHash: testHash, URL: "u", InReplyTo: testParent}),
		"no sender":        encode(&rlpAnnouncement{Type: 2, ContentHash: testHash, URL: "u"}),
		"no url":           encode(&rlpAnnouncement{Type: 2, FromID: "0xAA", ContentHash: testHash}),
	}
	for name, row := range tests {
		if _, err := DecodeRow(row); !errors.Is(err, ErrMalformedRow) {
			t.Errorf("%s: expected ErrMalformedRow, got %v", name, err)
		}
	}
}
