// Package storage defines the durable key-value slot that holds the note collection.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/models"
)

// DefaultKey is the slot name used when none is configured.
const DefaultKey = "daily-notes"

// Provider is the persistence adapter for the whole note collection.
type Provider interface {
	// Load returns the persisted collection, or nil with no error when the
	// slot has never been written. Malformed data yields an error wrapping
	// apperr.ErrCorrupt.
	Load() ([]models.Note, error)
	// Save replaces the slot with notes.
	Save(notes []models.Note) error
}

// Encode serializes a collection in the slot format: a JSON array of notes.
func Encode(notes []models.Note) ([]byte, error) {
	if notes == nil {
		notes = []models.Note{}
	}
	data, err := json.Marshal(notes)
	if err != nil {
		return nil, fmt.Errorf("storage: encode: %w", err)
	}
	return data, nil
}

// Decode parses slot data. Empty input (or a JSON null) is an absent slot.
func Decode(data []byte) ([]models.Note, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	var notes []models.Note
	if err := json.Unmarshal(trimmed, &notes); err != nil {
		return nil, fmt.Errorf("storage: decode: %w: %v", apperr.ErrCorrupt, err)
	}
	return notes, nil
}
