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

// Package announcement implements signed broadcast and reply announcements,
// the records that reference content bodies by hash from a batch file.
package announcement

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// Type is the kind of an announcement, using the DSNP numbering.
type Type uint8

const (
	TypeBroadcast Type = 2
	TypeReply     Type = 3
)

func (t Type) String() string {
	switch t {
	case TypeBroadcast:
		return "broadcast"
	case TypeReply:
		return "reply"
	default:
		return fmt.Sprintf("type(%d)", uint8(t))
	}
}

var (
	ErrMissingSender = errors.New("announcement sender is empty")
	ErrMissingHash   = errors.New("announcement content hash is empty")
	ErrMissingParent = errors.New("reply announcement has no parent")
	ErrSigningFailed = errors.New("announcement signing failed")
	ErrMalformedRow  = errors.New("malformed announcement row")
)

// Announcement references a content body and is published inside a batch
// file. Announcements returned by a Builder or decoded from a batch must not
// be modified.
type Announcement struct {
	Type        Type
	FromID      string      // opaque identifier of the author
	ContentHash common.Hash // keccak256 of the canonical body
	URL         string      // locator of the body
	InReplyTo   common.Hash // parent content hash, zero unless Type is TypeReply
	Signature   []byte
}

// rlpAnnouncement is the row encoding used inside batch files.
type rlpAnnouncement struct {
	Type        uint8
	FromID      string
	ContentHash common.Hash
	URL         string
	Signature   []byte
	InReplyTo   common.Hash `rlp:"optional"`
}

// sigPayload is the part of an announcement covered by the signature.
type sigPayload struct {
	Type        uint8
	FromID      string
	ContentHash common.Hash
	URL         string
	InReplyTo   common.Hash `rlp:"optional"`
}

// SigHash returns the digest that is signed by the author.
func (a *Announcement) SigHash() common.Hash {
	enc, err := rlp.EncodeToBytes(&sigPayload{
		Type:        uint8(a.Type),
		FromID:      a.FromID,
		ContentHash: a.ContentHash,
		URL:         a.URL,
		InReplyTo:   a.InReplyTo,
	})
	if err != nil {
		panic(fmt.Sprintf("can't encode announcement signing payload: %v", err))
	}
	return crypto.Keccak256Hash(enc)
}

// IsReply reports whether the announcement answers another post.
func (a *Announcement) IsReply() bool {
	return a.Type == TypeReply
}

// EncodeRow encodes the announcement as a batch file row.
func (a *Announcement) EncodeRow() ([]byte, error) {
	return rlp.EncodeToBytes(&rlpAnnouncement{
		Type:        uint8(a.Type),
		FromID:      a.FromID,
		ContentHash: a.ContentHash,
		URL:         a.URL,
		Signature:   a.Signature,
		InReplyTo:   a.InReplyTo,
	})
}

// DecodeRow interprets a raw batch file row as an announcement.
func DecodeRow(row []byte) (*Announcement, error) {
	var dec rlpAnnouncement
	if err := rlp.DecodeBytes(row, &dec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	a := &Announcement{
		Type:        Type(dec.Type),
		FromID:      dec.FromID,
		ContentHash: dec.ContentHash,
		URL:         dec.URL,
		InReplyTo:   dec.InReplyTo,
		Signature:   dec.Signature,
	}
	if err := a.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRow, err)
	}
	return a, nil
}

func (a *Announcement) validate() error {
	switch a.Type {
	case TypeBroadcast:
		if a.InReplyTo != (common.Hash{}) {
			return errors.New("broadcast announcement with parent")
		}
	case TypeReply:
		if a.InReplyTo == (common.Hash{}) {
			return ErrMissingParent
		}
	default:
		return fmt.Errorf("unsupported announcement %v", a.Type)
	}
	if a.FromID == "" {
		return ErrMissingSender
	}
	if a.URL == "" {
		return errors.New("announcement without url")
	}
	return nil
}
