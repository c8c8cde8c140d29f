// Package editor implements the editing workflow that sits between a
// front-end and the notes Store: browsing vs editing, create-mode vs
// edit-mode, and title validation before anything reaches the Store.
package editor

import (
	"context"
	"errors"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/models"
	"github.com/starford/dailynotes/internal/notes"
)

// Mode describes what the session is doing.
type Mode string

const (
	ModeBrowsing Mode = "browsing"
	ModeCreating Mode = "creating"
	ModeEditing  Mode = "editing"
)

// Input is the editor form as submitted by the user.
type Input struct {
	Title    string
	Content  string
	AudioURL *string
	Tags     []string
}

// Validate checks the form. Only a non-blank title is required.
func (in Input) Validate() error {
	title := strings.TrimSpace(in.Title)
	err := validation.Validate(title, validation.Required.Error("title is required"))
	if err != nil {
		return &apperr.ValidationError{Field: "title", Reason: err.Error()}
	}
	return nil
}

// Session tracks the browsing/editing flag for one front-end. The selection
// itself lives in the Store, so Session and Store together form the state.
type Session struct {
	mu      sync.Mutex
	store   *notes.Store
	editing bool
}

// NewSession returns a session in the browsing state.
func NewSession(store *notes.Store) *Session {
	return &Session{store: store}
}

// Mode reports the current state.
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modeLocked()
}

func (s *Session) modeLocked() Mode {
	if !s.editing {
		return ModeBrowsing
	}
	if _, ok := s.store.Current(); ok {
		return ModeEditing
	}
	return ModeCreating
}

// Editing reports whether an editor is open.
func (s *Session) Editing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editing
}

// NewNote opens the editor in create-mode.
func (s *Session) NewNote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Select(nil)
	s.editing = true
}

// Open opens the editor on an existing note.
func (s *Session) Open(note models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Select(&note)
	s.editing = true
}

// Back returns to browsing. Unsaved form input is discarded by the caller;
// nothing is persisted here.
func (s *Session) Back() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.editing = false
}

// Save validates in and then creates a note (create-mode, selecting the
// new note so further saves update it) or updates the selected note.
// A *apperr.WriteError is returned alongside the saved note when the
// change could not be persisted.
func (s *Session) Save(ctx context.Context, in Input) (models.Note, error) {
	if err := in.Validate(); err != nil {
		return models.Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.store.Current()
	if !ok {
		created, err := s.store.Create(ctx, models.Draft{
			Title:    in.Title,
			Content:  in.Content,
			AudioURL: in.AudioURL,
			Tags:     in.Tags,
		})
		s.store.Select(&created)
		s.editing = true
		return created, err
	}

	cur.Title = in.Title
	cur.Content = in.Content
	cur.AudioURL = in.AudioURL
	if in.Tags != nil {
		cur.Tags = in.Tags
	}
	updated, found, err := s.store.Update(ctx, cur)
	if !found {
		return models.Note{}, apperr.ErrNotFound
	}
	return updated, err
}

// Delete removes the selected note and returns to browsing. It is a no-op
// in create-mode.
func (s *Session) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.store.Current()
	if !ok {
		return nil
	}
	_, err := s.store.Delete(ctx, cur.ID)
	s.store.Select(nil)
	s.editing = false
	return err
}

// IsValidation reports whether err is an input validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, apperr.ErrValidation)
}
