// Package noteservice coordinates the notes Store with the export, share,
// backup, audio and import adapters. HTTP, MCP and CLI front-ends all go
// through it.
package noteservice

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/audio"
	"github.com/starford/dailynotes/internal/backup"
	"github.com/starford/dailynotes/internal/checksum"
	"github.com/starford/dailynotes/internal/editor"
	"github.com/starford/dailynotes/internal/export"
	"github.com/starford/dailynotes/internal/models"
	"github.com/starford/dailynotes/internal/notes"
	"github.com/starford/dailynotes/internal/parser"
	"github.com/starford/dailynotes/internal/share"
	"github.com/starford/dailynotes/internal/storage"
)

// Service is the facade over the Store and its adapters.
type Service struct {
	store    *notes.Store
	backuper backup.Backuper
	recorder *audio.Recorder
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// Deps are the collaborators of a Service. Store is required.
type Deps struct {
	Store    *notes.Store
	Backuper backup.Backuper
	Recorder *audio.Recorder
	Location *time.Location
	Logger   *slog.Logger
}

// NewService creates a new note service.
func NewService(d Deps) *Service {
	s := &Service{
		store:    d.Store,
		backuper: d.Backuper,
		recorder: d.Recorder,
		location: d.Location,
		now:      time.Now,
		logger:   d.Logger,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.backuper == nil {
		s.backuper = backup.NewStub(s.logger)
	}
	if s.recorder == nil {
		s.recorder = audio.NewRecorder(false, "", s.logger)
	}
	if s.location == nil {
		s.location = time.Local
	}
	return s
}

// Store exposes the underlying Store.
func (s *Service) Store() *notes.Store { return s.store }

// ListNotes returns all notes, newest-created first, with a checksum of the
// collection suitable for an ETag.
func (s *Service) ListNotes(_ context.Context) ([]models.Note, string, error) {
	list := s.store.Notes()
	sum, err := checksum.JSON(list)
	if err != nil {
		return nil, "", fmt.Errorf("noteservice: checksum: %w", err)
	}
	return list, sum, nil
}

// ListByDay returns notes grouped by calendar day, newest day first.
func (s *Service) ListByDay(_ context.Context) []export.Day {
	return export.GroupByDay(s.store.Notes(), s.location)
}

// GetNote returns the note with id.
func (s *Service) GetNote(_ context.Context, id string) (models.Note, error) {
	n, ok := s.store.Get(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	return n, nil
}

// CreateNote validates and creates a note. A *apperr.WriteError is returned
// together with the created note when persisting failed.
func (s *Service) CreateNote(ctx context.Context, d models.Draft) (models.Note, error) {
	if err := toInput(d).Validate(); err != nil {
		return models.Note{}, err
	}
	return s.store.Create(ctx, d)
}

// UpdateNote validates and replaces the content of note id.
func (s *Service) UpdateNote(ctx context.Context, id string, d models.Draft) (models.Note, error) {
	if err := toInput(d).Validate(); err != nil {
		return models.Note{}, err
	}
	existing, ok := s.store.Get(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	existing.Title = d.Title
	existing.Content = d.Content
	existing.AudioURL = d.AudioURL
	existing.Tags = d.Tags
	updated, found, err := s.store.Update(ctx, existing)
	if !found {
		// Deleted between Get and Update.
		return models.Note{}, apperr.ErrNotFound
	}
	return updated, err
}

// DeleteNote removes note id. It reports whether anything was deleted.
func (s *Service) DeleteNote(ctx context.Context, id string) (bool, error) {
	return s.store.Delete(ctx, id)
}

// Select makes note id current.
func (s *Service) Select(_ context.Context, id string) (models.Note, error) {
	n, ok := s.store.Get(id)
	if !ok {
		return models.Note{}, apperr.ErrNotFound
	}
	s.store.Select(&n)
	return n, nil
}

// ClearSelection switches to create-mode.
func (s *Service) ClearSelection(_ context.Context) {
	s.store.Select(nil)
}

// Current returns the selected note.
func (s *Service) Current(_ context.Context) (models.Note, bool) {
	return s.store.Current()
}

// ShareURL builds the WhatsApp link for note id.
func (s *Service) ShareURL(ctx context.Context, id string) (string, error) {
	n, err := s.GetNote(ctx, id)
	if err != nil {
		return "", err
	}
	return share.WhatsAppURL(n.Title, n.Content)
}

// ExportPDF renders the current collection.
func (s *Service) ExportPDF(_ context.Context) (*export.Document, error) {
	return export.Render(s.store.Notes(), export.Options{Location: s.location, Now: s.now})
}

// Backup serializes the collection in the slot format and hands it to the
// configured backuper.
func (s *Service) Backup(ctx context.Context) bool {
	data, err := storage.Encode(s.store.Notes())
	if err != nil {
		s.logger.Error("noteservice: encode for backup", slog.String("error", err.Error()))
		return false
	}
	return s.backuper.Backup(ctx, data)
}

// SaveAudio records src as one clip and returns its URL.
func (s *Service) SaveAudio(ctx context.Context, src io.Reader) (string, error) {
	return s.recorder.Capture(ctx, src)
}

// Recorder returns the audio recorder.
func (s *Service) Recorder() *audio.Recorder { return s.recorder }

// Reload re-reads the persisted slot.
func (s *Service) Reload(ctx context.Context) error {
	return s.store.Reload(ctx)
}

// ImportResult summarizes an import run.
type ImportResult struct {
	Imported int
	Skipped  []string
	Warning  error
}

// ImportDir creates one note per Markdown file under dir, in lexical path
// order. Files that fail to read or validate are skipped. The last
// persistence warning, if any, is reported in Warning.
func (s *Service) ImportDir(ctx context.Context, dir string) (ImportResult, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), ".md") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("noteservice: walk %s: %w", dir, err)
	}
	slices.Sort(files)

	var res ImportResult
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn("import: read failed", slog.String("path", path), slog.String("error", err.Error()))
			res.Skipped = append(res.Skipped, path)
			continue
		}
		draft, err := parser.Draft(path, data)
		if err != nil {
			res.Skipped = append(res.Skipped, path)
			continue
		}
		if _, err := s.CreateNote(ctx, draft); err != nil {
			if !apperr.IsWriteError(err) {
				s.logger.Warn("import: rejected", slog.String("path", path), slog.String("error", err.Error()))
				res.Skipped = append(res.Skipped, path)
				continue
			}
			res.Warning = err
		}
		res.Imported++
	}
	s.logger.Info("import: done", slog.Int("imported", res.Imported), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func toInput(d models.Draft) editor.Input {
	return editor.Input{Title: d.Title, Content: d.Content, AudioURL: d.AudioURL, Tags: d.Tags}
}
