// Package notes implements the Store: the authoritative in-memory note
// collection and selection, persisted to a storage.Provider after every
// mutation.
package notes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/models"
	"github.com/starford/dailynotes/internal/storage"
)

// ErrWritesSuspended is wrapped in the WriteError of every mutation made
// while the slot could not be read.
var ErrWritesSuspended = errors.New("store: slot unreadable, writes suspended")

// Listener is notified after a state transition has been applied.
// id is empty for selection-clearing and reload events.
type Listener func(kind models.ChangeKind, id string)

// Store owns the note collection and the current selection.
//
// Every mutation runs to completion under mu, including the persistence
// write, so two mutations never interleave and the slot always mirrors the
// collection as of the last mutation.
type Store struct {
	mu      sync.Mutex
	notes   []models.Note
	current *models.Note

	// unread is set when the slot could not be read at startup. Writes are
	// then refused so the unread durable data is not overwritten.
	unread error

	provider storage.Provider
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
	listener Listener
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides note ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithListener registers the change listener.
func WithListener(l Listener) Option {
	return func(s *Store) { s.listener = l }
}

// New constructs a Store over provider. Call Initialize before use.
func New(provider storage.Provider, opts ...Option) *Store {
	s := &Store{
		provider: provider,
		now:      defaultNow,
		newID:    newID,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// defaultNow matches the millisecond precision of the ISO-8601 slot format,
// so a note read back from the slot compares equal to the one written.
func defaultNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// newID returns a UUIDv7: a millisecond timestamp followed by random bits,
// so IDs from calls within the same millisecond still differ.
func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Initialize loads the persisted collection. Missing or malformed data
// leaves the Store empty; neither is returned as an error. Any other read
// failure also starts empty, but persistence stays suspended until a
// Reload succeeds, so every mutation reports a *apperr.WriteError.
func (s *Store) Initialize(_ context.Context) error {
	loaded, err := s.provider.Load()

	s.mu.Lock()
	s.current = nil
	s.unread = nil
	if err != nil {
		s.notes = nil
		if !errors.Is(err, apperr.ErrCorrupt) {
			s.unread = err
		}
		s.mu.Unlock()
		if errors.Is(err, apperr.ErrCorrupt) {
			s.logger.Warn("store: persisted notes are corrupt, starting empty", slog.String("error", err.Error()))
		} else {
			s.logger.Error("store: load failed, starting empty with writes suspended", slog.String("error", err.Error()))
		}
		return nil
	}
	s.notes = s.sanitize(loaded)
	count := len(s.notes)
	s.mu.Unlock()

	s.logger.Info("store: initialized", slog.Int("notes", count))
	return nil
}

// Reload re-reads the slot after an external writer changed it. The read
// and the swap happen under mu, so no mutation can slip in between and be
// overwritten. The selection is kept if its note still exists, replaced by
// the reloaded value, and cleared otherwise. A failed read leaves state
// untouched.
//
// After a startup read failure, a successful Reload resumes persistence:
// notes created meanwhile are kept ahead of the reloaded ones and written.
func (s *Store) Reload(_ context.Context) error {
	s.mu.Lock()
	loaded, err := s.provider.Load()
	if err != nil {
		s.mu.Unlock()
		s.logger.Warn("store: reload failed, keeping in-memory notes", slog.String("error", err.Error()))
		return err
	}

	fresh := s.sanitize(loaded)
	var persistErr error
	if s.unread != nil {
		fresh = s.keepSessionNotes(fresh)
		s.unread = nil
		s.notes = fresh
		persistErr = s.persist("reload")
	} else if sameCollection(s.notes, fresh) {
		s.mu.Unlock()
		return nil
	}
	s.notes = fresh
	if s.current != nil {
		if i := s.indexOf(s.current.ID); i >= 0 {
			n := s.notes[i].Clone()
			s.current = &n
		} else {
			s.current = nil
		}
	}
	s.mu.Unlock()

	s.logger.Info("store: reloaded from slot", slog.Int("notes", len(fresh)))
	s.emit(models.ChangeReloaded, "")
	return persistErr
}

// keepSessionNotes prepends the in-memory notes missing from loaded.
// Callers hold mu.
func (s *Store) keepSessionNotes(loaded []models.Note) []models.Note {
	seen := make(map[string]struct{}, len(loaded))
	for _, n := range loaded {
		seen[n.ID] = struct{}{}
	}
	var out []models.Note
	for _, n := range s.notes {
		if _, ok := seen[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return append(out, loaded...)
}

// Create assigns an ID and timestamps to draft, prepends the note and
// persists. On a persistence failure the created note is still returned,
// together with a *apperr.WriteError.
func (s *Store) Create(_ context.Context, draft models.Draft) (models.Note, error) {
	s.mu.Lock()
	note := draft.Note(s.uniqueID(), s.now())
	s.notes = slices.Insert(s.notes, 0, note)
	err := s.persist("create")
	s.mu.Unlock()

	s.logger.Debug("store: created", slog.String("id", note.ID))
	s.emit(models.ChangeCreated, note.ID)
	return note.Clone(), err
}

// Update replaces the stored note with the same ID, stamping UpdatedAt.
// The stored CreatedAt is kept. It reports false, and does nothing, when no
// note has that ID.
func (s *Store) Update(_ context.Context, note models.Note) (models.Note, bool, error) {
	s.mu.Lock()
	i := s.indexOf(note.ID)
	if i < 0 {
		s.mu.Unlock()
		s.logger.Debug("store: update of unknown note ignored", slog.String("id", note.ID))
		return models.Note{}, false, nil
	}

	updated := note.Clone()
	updated.CreatedAt = s.notes[i].CreatedAt
	updated.UpdatedAt = s.now()
	if updated.UpdatedAt.Before(updated.CreatedAt) {
		updated.UpdatedAt = updated.CreatedAt
	}
	s.notes[i] = updated
	if s.current != nil && s.current.ID == updated.ID {
		sel := updated.Clone()
		s.current = &sel
	}
	err := s.persist("update")
	s.mu.Unlock()

	s.logger.Debug("store: updated", slog.String("id", updated.ID))
	s.emit(models.ChangeUpdated, updated.ID)
	return updated.Clone(), true, err
}

// Delete removes the note with id and clears the selection if it pointed
// at it. Deleting an unknown id is a no-op and reports false.
func (s *Store) Delete(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return false, nil
	}
	s.notes = slices.Delete(s.notes, i, i+1)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	err := s.persist("delete")
	s.mu.Unlock()

	s.logger.Debug("store: deleted", slog.String("id", id))
	s.emit(models.ChangeDeleted, id)
	return true, err
}

// Select sets the current note. A nil note clears the selection
// (create-mode). Membership in the collection is not checked.
func (s *Store) Select(note *models.Note) {
	s.mu.Lock()
	id := ""
	if note == nil {
		s.current = nil
	} else {
		sel := note.Clone()
		s.current = &sel
		id = sel.ID
	}
	s.mu.Unlock()

	s.emit(models.ChangeSelected, id)
}

// Notes returns a copy of the collection, newest-created first.
func (s *Store) Notes() []models.Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneAll(s.notes)
}

// Current returns the selected note, or false when nothing is selected.
func (s *Store) Current() (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return models.Note{}, false
	}
	return s.current.Clone(), true
}

// Get returns the note with id.
func (s *Store) Get(id string) (models.Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return models.Note{}, false
	}
	return s.notes[i].Clone(), true
}

// Snapshot returns the collection and selection as of one instant.
func (s *Store) Snapshot() ([]models.Note, *models.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur *models.Note
	if s.current != nil {
		c := s.current.Clone()
		cur = &c
	}
	return models.CloneAll(s.notes), cur
}

// Len returns the number of notes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}

// persist writes the full collection. Callers hold mu.
func (s *Store) persist(op string) error {
	if s.unread != nil {
		return &apperr.WriteError{Op: op, Err: fmt.Errorf("%w: %v", ErrWritesSuspended, s.unread)}
	}
	if err := s.provider.Save(s.notes); err != nil {
		s.logger.Warn("store: persist failed, change kept in memory only",
			slog.String("op", op),
			slog.String("error", err.Error()))
		return &apperr.WriteError{Op: op, Err: err}
	}
	return nil
}

// uniqueID draws IDs until one is unused. Callers hold mu.
func (s *Store) uniqueID() string {
	for {
		id := s.newID()
		if id != "" && s.indexOf(id) < 0 {
			return id
		}
	}
}

// indexOf returns the position of id, or -1. Callers hold mu.
func (s *Store) indexOf(id string) int {
	return slices.IndexFunc(s.notes, func(n models.Note) bool { return n.ID == id })
}

// sanitize enforces the collection invariants on loaded data: duplicate IDs
// keep their first occurrence and UpdatedAt is never before CreatedAt.
func (s *Store) sanitize(loaded []models.Note) []models.Note {
	seen := make(map[string]struct{}, len(loaded))
	out := make([]models.Note, 0, len(loaded))
	for _, n := range loaded {
		if _, dup := seen[n.ID]; dup {
			s.logger.Warn("store: dropping duplicate note id", slog.String("id", n.ID))
			continue
		}
		seen[n.ID] = struct{}{}
		if n.UpdatedAt.Before(n.CreatedAt) {
			n.UpdatedAt = n.CreatedAt
		}
		out = append(out, n)
	}
	return out
}

func (s *Store) emit(kind models.ChangeKind, id string) {
	if s.listener != nil {
		s.listener(kind, id)
	}
}

func sameCollection(a, b []models.Note) bool {
	ea, errA := storage.Encode(a)
	eb, errB := storage.Encode(b)
	return errA == nil && errB == nil && bytes.Equal(ea, eb)
}
