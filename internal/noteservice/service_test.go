package noteservice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dailynotes/internal/apperr"
	"github.com/starford/dailynotes/internal/audio"
	"github.com/starford/dailynotes/internal/models"
	"github.com/starford/dailynotes/internal/notes"
	"github.com/starford/dailynotes/internal/storage"
)

type recordingBackuper struct {
	payloads [][]byte
	result   bool
}

func (r *recordingBackuper) Backup(_ context.Context, data []byte) bool {
	r.payloads = append(r.payloads, bytes.Clone(data))
	return r.result
}

type fixture struct {
	svc    *Service
	slot   *storage.Memory
	backup *recordingBackuper
}

func setup(t *testing.T) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	slot := storage.NewMemory()
	store := notes.New(slot, notes.WithLogger(logger))
	require.NoError(t, store.Initialize(context.Background()))

	b := &recordingBackuper{result: true}
	svc := NewService(Deps{
		Store:    store,
		Backuper: b,
		Recorder: audio.NewRecorder(true, filepath.Join(t.TempDir(), "audio"), logger),
		Location: time.UTC,
		Logger:   logger,
	})
	return fixture{svc: svc, slot: slot, backup: b}
}

func TestService_CreateGetUpdateDelete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	created, err := f.svc.CreateNote(ctx, models.Draft{Title: "Groceries", Content: "Milk"})
	require.NoError(t, err)

	got, err := f.svc.GetNote(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Milk", got.Content)

	updated, err := f.svc.UpdateNote(ctx, created.ID, models.Draft{Title: "Groceries", Content: "Milk, eggs"})
	require.NoError(t, err)
	assert.Equal(t, "Milk, eggs", updated.Content)
	assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))

	deleted, err := f.svc.DeleteNote(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = f.svc.GetNote(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	deleted, err = f.svc.DeleteNote(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestService_ValidatesTitle(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.svc.CreateNote(ctx, models.Draft{Title: "  "})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	n, err := f.svc.CreateNote(ctx, models.Draft{Title: "ok"})
	require.NoError(t, err)
	_, err = f.svc.UpdateNote(ctx, n.ID, models.Draft{Title: ""})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 1, f.slot.Writes(), "rejected update must not write")
}

func TestService_UpdateUnknown(t *testing.T) {
	f := setup(t)
	_, err := f.svc.UpdateNote(context.Background(), "missing", models.Draft{Title: "x"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_WriteFailureSurfacesAsWarning(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.slot.FailWith(errors.New("disk full"))

	n, err := f.svc.CreateNote(ctx, models.Draft{Title: "kept"})
	require.Error(t, err)
	assert.True(t, apperr.IsWriteError(err))
	_, getErr := f.svc.GetNote(ctx, n.ID)
	assert.NoError(t, getErr)
}

func TestService_Selection(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	n, _ := f.svc.CreateNote(ctx, models.Draft{Title: "a"})

	_, err := f.svc.Select(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.svc.Select(ctx, n.ID)
	require.NoError(t, err)
	cur, ok := f.svc.Current(ctx)
	require.True(t, ok)
	assert.Equal(t, n.ID, cur.ID)

	f.svc.ClearSelection(ctx)
	_, ok = f.svc.Current(ctx)
	assert.False(t, ok)
}

func TestService_ListChecksumChangesWithContent(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, before, err := f.svc.ListNotes(ctx)
	require.NoError(t, err)
	_, _ = f.svc.CreateNote(ctx, models.Draft{Title: "a"})
	list, after, err := f.svc.ListNotes(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.NotEqual(t, before, after)

	_, again, _ := f.svc.ListNotes(ctx)
	assert.Equal(t, after, again)
}

func TestService_ShareURL(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	n, _ := f.svc.CreateNote(ctx, models.Draft{Title: "Hi", Content: "there"})

	link, err := f.svc.ShareURL(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/?text=Hi%0A%0Athere", link)

	_, err = f.svc.ShareURL(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestService_BackupSendsSlotFormat(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, _ = f.svc.CreateNote(ctx, models.Draft{Title: "a"})

	require.True(t, f.svc.Backup(ctx))
	require.Len(t, f.backup.payloads, 1)

	var decoded []models.Note
	require.NoError(t, json.Unmarshal(f.backup.payloads[0], &decoded))
	assert.Len(t, decoded, 1)
	assert.Equal(t, f.slot.Raw(), f.backup.payloads[0])

	f.backup.result = false
	assert.False(t, f.svc.Backup(ctx))
}

func TestService_ExportPDF(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, _ = f.svc.CreateNote(ctx, models.Draft{Title: "a", Content: "b"})

	doc, err := f.svc.ExportPDF(ctx)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc.Bytes, []byte("%PDF-")))
	assert.Equal(t, 1, doc.Pages)
}

func TestService_SaveAudio(t *testing.T) {
	f := setup(t)
	url, err := f.svc.SaveAudio(context.Background(), strings.NewReader("RIFF"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, audio.URLPrefix))
}

func TestService_ListByDay(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	_, _ = f.svc.CreateNote(ctx, models.Draft{Title: "a"})
	_, _ = f.svc.CreateNote(ctx, models.Draft{Title: "b"})

	days := f.svc.ListByDay(ctx)
	require.Len(t, days, 1)
	require.Len(t, days[0].Notes, 2)
	assert.Equal(t, "b", days[0].Notes[0].Title)
}

func TestService_ImportDir(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	dir := t.TempDir()
	write := func(rel, content string) {
		abs := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	write("a.md", "---\ntitle: First\ntags: [x]\n---\nbody a\n")
	write("sub/b.md", "# Second\nbody b\n")
	write("c.txt", "ignored")
	write(".hidden/d.md", "# Hidden\n")

	res, err := f.svc.ImportDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Empty(t, res.Skipped)
	assert.NoError(t, res.Warning)

	list, _, _ := f.svc.ListNotes(ctx)
	require.Len(t, list, 2)
	// Each create prepends, so the last imported file is first.
	assert.Equal(t, "Second", list[0].Title)
	assert.Equal(t, "First", list[1].Title)
	assert.Equal(t, []string{"x"}, list[1].Tags)
}

func TestService_ImportMissingDir(t *testing.T) {
	f := setup(t)
	_, err := f.svc.ImportDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
