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

package activity

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	// ErrUnknownContentType is returned when a body matches neither the note
	// nor the profile shape.
	ErrUnknownContentType = errors.New("unknown activity content type")

	errNilContent = errors.New("nil activity content")
)

// Serialize returns the canonical encoding of a content body: compact JSON
// with object keys in lexicographic order.
func Serialize(c Content) ([]byte, error) {
	if c == nil {
		return nil, errNilContent
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	// Round-trip through a generic value so that nested objects are sorted too.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return json.Marshal(generic)
}

// Hash computes the content hash of a body, returning it together with the
// canonical bytes it was computed over.
func Hash(c Content) (common.Hash, []byte, error) {
	data, err := Serialize(c)
	if err != nil {
		return common.Hash{}, nil, err
	}
	return crypto.Keccak256Hash(data), data, nil
}

// Parse decodes a fetched JSON body and narrows it to a note or a profile.
// Bodies carrying an explicit ActivityStreams type are classified by it;
// untyped bodies are classified by their fields, a "content" field marking
// a note and a "name" field marking a profile.
func Parse(data []byte) (Content, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownContentType, err)
	}
	kind, err := classify(fields)
	if err != nil {
		return nil, err
	}
	switch kind {
	case TypeNote:
		note := new(Note)
		if err := json.Unmarshal(data, note); err != nil {
			return nil, fmt.Errorf("%w: malformed note: %v", ErrUnknownContentType, err)
		}
		return note, nil
	case TypeProfile:
		profile := new(Profile)
		if err := json.Unmarshal(data, profile); err != nil {
			return nil, fmt.Errorf("%w: malformed profile: %v", ErrUnknownContentType, err)
		}
		return profile, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownContentType, kind)
}

func classify(fields map[string]json.RawMessage) (string, error) {
	if raw, ok := fields["type"]; ok {
		var typ string
		if err := json.Unmarshal(raw, &typ); err != nil {
			return "", fmt.Errorf("%w: non-string type", ErrUnknownContentType)
		}
		if typ != TypeNote && typ != TypeProfile {
			return "", fmt.Errorf("%w: %q", ErrUnknownContentType, typ)
		}
		return typ, nil
	}
	if _, ok := fields["content"]; ok {
		return TypeNote, nil
	}
	if _, ok := fields["name"]; ok {
		return TypeProfile, nil
	}
	return "", ErrUnknownContentType
}
