package internal

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dailynotes/internal/models"
)

func testConfig(t *testing.T, driver string) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Storage.Driver = driver
	cfg.Storage.Path = filepath.Join(dir, "data")
	if driver == DriverSQLite {
		cfg.Storage.Path = filepath.Join(dir, "db", "notes.db")
	}
	cfg.Audio.Dir = filepath.Join(dir, "audio")
	cfg.Backup = BackupConfig{Mode: BackupModeDir, Dir: filepath.Join(dir, "backups")}
	cfg.Export.Timezone = "UTC"
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestOpen_PersistsAcrossRuntimes(t *testing.T) {
	for _, driver := range []string{DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, driver)

			rt, err := Open(ctx, WithConfig(cfg), WithLogOutput(io.Discard))
			require.NoError(t, err)
			_, err = rt.Service.CreateNote(ctx, models.Draft{Title: "first"})
			require.NoError(t, err)
			require.NoError(t, rt.Close())

			rt, err = Open(ctx, WithConfig(cfg), WithLogOutput(io.Discard))
			require.NoError(t, err)
			defer rt.Close()
			list, _, err := rt.Service.ListNotes(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "first", list[0].Title)

			if driver == DriverFile {
				assert.Equal(t, filepath.Join(cfg.Storage.Path, "daily-notes.json"), rt.SlotPath)
			} else {
				assert.Empty(t, rt.SlotPath)
			}
		})
	}
}

func TestOpen_ListenerAndBackupDir(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, DriverFile)

	var kinds []models.ChangeKind
	rt, err := Open(ctx, WithConfig(cfg), WithLogOutput(io.Discard),
		WithListener(func(kind models.ChangeKind, _ string) { kinds = append(kinds, kind) }))
	require.NoError(t, err)
	defer rt.Close()

	_, err = rt.Service.CreateNote(ctx, models.Draft{Title: "a"})
	require.NoError(t, err)
	assert.Contains(t, kinds, models.ChangeCreated)

	require.True(t, rt.Service.Backup(ctx))
	entries, err := os.ReadDir(cfg.Backup.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpen_RequiresConfig(t *testing.T) {
	_, err := Open(context.Background(), WithLogOutput(io.Discard))
	assert.Error(t, err)
}
