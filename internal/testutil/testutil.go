// Package testutil provides shared test helpers for building a note service
// over an in-memory slot.
package testutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/dailynotes/internal/audio"
	"github.com/starford/dailynotes/internal/backup"
	"github.com/starford/dailynotes/internal/notes"
	"github.com/starford/dailynotes/internal/noteservice"
	"github.com/starford/dailynotes/internal/storage"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Service creates an initialized service over a fresh in-memory slot, using
// UTC for day grouping and a stub backuper. Audio clips go to a temporary
// directory when audioEnabled is set.
func Service(t *testing.T, audioEnabled bool) (*noteservice.Service, *storage.Memory) {
	t.Helper()
	logger := Logger()
	slot := storage.NewMemory()
	store := notes.New(slot, notes.WithLogger(logger))
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	svc := noteservice.NewService(noteservice.Deps{
		Store:    store,
		Backuper: backup.NewStub(logger),
		Recorder: audio.NewRecorder(audioEnabled, filepath.Join(t.TempDir(), "audio"), logger),
		Location: time.UTC,
		Logger:   logger,
	})
	return svc, slot
}
