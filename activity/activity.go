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

// Package activity implements the ActivityStreams content bodies that are
// referenced by announcements: notes (posts and replies) and profiles.
package activity

import (
	"time"
)

// ActivityStreams vocabulary used in content bodies.
const (
	ContextURI = "https://www.w3.org/ns/activitystreams"

	TypeNote    = "Note"
	TypeProfile = "Profile"
)

// Content is the closed set of content bodies an announcement can reference.
// The concrete type is either *Note or *Profile.
type Content interface {
	// ContentType returns the ActivityStreams type of the body.
	ContentType() string

	content()
}

// Attachment is a media object attached to a note.
type Attachment struct {
	Type      string `json:"type"`
	MediaType string `json:"mediaType,omitempty"`
	URL       string `json:"url"`
	Name      string `json:"name,omitempty"`
}

// Tag is a hashtag or mention attached to a note.
type Tag struct {
	Type string `json:"type,omitempty"`
	Name string `json:"name"`
}

// Link references an external resource, e.g. a profile icon.
type Link struct {
	Type      string `json:"type,omitempty"`
	MediaType string `json:"mediaType,omitempty"`
	Href      string `json:"href"`
}

// Note is the body of a post or a reply.
type Note struct {
	Context    string       `json:"@context,omitempty"`
	Type       string       `json:"type,omitempty"`
	Content    string       `json:"content"`
	MediaType  string       `json:"mediaType,omitempty"`
	Published  string       `json:"published,omitempty"`
	Attachment []Attachment `json:"attachment,omitempty"`
	Tag        []Tag        `json:"tag,omitempty"`
}

// NewNote creates a plain-text note published at the given time.
func NewNote(text string, published time.Time) *Note {
	return &Note{
		Context:   ContextURI,
		Type:      TypeNote,
		Content:   text,
		MediaType: "text/plain",
		Published: published.UTC().Format(time.RFC3339),
	}
}

func (n *Note) ContentType() string { return TypeNote }
func (n *Note) content()            {}

// PublishedTime parses the publication timestamp of the note.
func (n *Note) PublishedTime() (time.Time, error) {
	return time.Parse(time.RFC3339, n.Published)
}

// Profile is the body of a profile update.
type Profile struct {
	Context           string `json:"@context,omitempty"`
	Type              string `json:"type,omitempty"`
	Name              string `json:"name,omitempty"`
	PreferredUsername string `json:"preferredUsername,omitempty"`
	Summary           string `json:"summary,omitempty"`
	Icon              []Link `json:"icon,omitempty"`
	Published         string `json:"published,omitempty"`
}

func (p *Profile) ContentType() string { return TypeProfile }
func (p *Profile) content()            {}
