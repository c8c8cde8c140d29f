// Package models defines the domain types for dailynotes.
package models

import (
	"slices"
	"time"
)

// Note is a single user note. Notes are values: the Store replaces them
// wholesale and never hands out references into its own collection.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	AudioURL  *string   `json:"audioUrl,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
}

// Clone returns a deep copy of n.
func (n Note) Clone() Note {
	out := n
	if n.AudioURL != nil {
		u := *n.AudioURL
		out.AudioURL = &u
	}
	if n.Tags != nil {
		out.Tags = slices.Clone(n.Tags)
	}
	return out
}

// Draft is the input to create a note. ID and timestamps are assigned by the Store.
type Draft struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	AudioURL *string  `json:"audioUrl,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Note builds a Note from the draft with the given identity and creation time.
func (d Draft) Note(id string, now time.Time) Note {
	return Note{
		ID:        id,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: now,
		UpdatedAt: now,
		AudioURL:  d.AudioURL,
		Tags:      d.Tags,
	}.Clone()
}

// ChangeKind names a Store state transition.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeUpdated  ChangeKind = "updated"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeSelected ChangeKind = "selected"
	ChangeReloaded ChangeKind = "reloaded"
)

// CloneAll deep-copies a note slice. A nil input yields an empty slice.
func CloneAll(notes []Note) []Note {
	out := make([]Note, len(notes))
	for i, n := range notes {
		out[i] = n.Clone()
	}
	return out
}

// StringPtr returns a pointer to s, or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
