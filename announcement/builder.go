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
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer produces an author signature over an announcement digest. It is
// typically backed by a wallet.
type Signer interface {
	SignAnnouncement(digest common.Hash) ([]byte, error)
}

// Locator maps a content hash to the locator of the stored body.
type Locator interface {
	URL(hash common.Hash) string
}

// KeySigner signs announcements with a local secp256k1 key.
type KeySigner struct {
	key *ecdsa.PrivateKey
}

// NewKeySigner creates a signer for the given private key.
func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{key: key}
}

// SignAnnouncement implements Signer.
func (s *KeySigner) SignAnnouncement(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest[:], s.key)
}

// Address returns the Ethereum address of the signing key.
func (s *KeySigner) Address() common.Address {
	return crypto.PubkeyToAddress(s.key.PublicKey)
}

// Builder creates signed announcements for stored content.
type Builder struct {
	signer  Signer
	locator Locator
}

// NewBuilder creates a builder signing with signer and resolving body
// locators through locator.
func NewBuilder(signer Signer, locator Locator) *Builder {
	return &Builder{signer: signer, locator: locator}
}

// Broadcast builds a signed broadcast announcement of the content with the
// given hash.
func (b *Builder) Broadcast(from string, hash common.Hash) (*Announcement, error) {
	return b.build(&Announcement{Type: TypeBroadcast, FromID: from, ContentHash: hash})
}

// Reply builds a signed reply announcement of the content with the given
// hash, answering the post identified by parent.
func (b *Builder) Reply(from string, hash, parent common.Hash) (*Announcement, error) {
	if parent == (common.Hash{}) {
		return nil, ErrMissingParent
	}
	return b.build(&Announcement{Type: TypeReply, FromID: from, ContentHash: hash, InReplyTo: parent})
}

func (b *Builder) build(a *Announcement) (*Announcement, error) {
	if a.FromID == "" {
		return nil, ErrMissingSender
	}
	if a.ContentHash == (common.Hash{}) {
		return nil, ErrMissingHash
	}
	a.URL = b.locator.URL(a.ContentHash)

	if b.signer == nil {
		return nil, fmt.Errorf("%w: no signer configured", ErrSigningFailed)
	}
	sig, err := b.signer.SignAnnouncement(a.SigHash())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	if len(sig) == 0 {
		return nil, fmt.Errorf("%w: empty signature", ErrSigningFailed)
	}
	a.Signature = sig
	return a, nil
}
