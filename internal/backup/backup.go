// Package backup copies the serialized note collection somewhere else.
// Failures are reported as false and never affect the Store.
package backup

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/starford/dailynotes/internal/checksum"
	"github.com/starford/dailynotes/internal/storage"
)

// Backuper takes a serialized collection and reports whether it was stored.
type Backuper interface {
	Backup(ctx context.Context, data []byte) bool
}

const previewLen = 100

// Stub stands in for a cloud drive upload. It logs a preview of the payload
// and always succeeds.
type Stub struct {
	logger *slog.Logger
}

// NewStub returns a Stub that logs to logger.
func NewStub(logger *slog.Logger) *Stub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stub{logger: logger}
}

// Backup implements Backuper.
func (s *Stub) Backup(_ context.Context, data []byte) bool {
	preview := data
	if len(preview) > previewLen {
		cut := previewLen
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		preview = preview[:cut]
	}
	s.logger.Info("backup: uploading to drive (stub)",
		slog.String("preview", string(preview)+"..."),
		slog.Int("bytes", len(data)))
	return true
}

// Dir writes timestamped snapshots into a local directory. A payload equal
// to the previous snapshot is not written again.
type Dir struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	last string
}

// NewDir creates the directory if needed.
func NewDir(dir string, logger *slog.Logger) (*Dir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("backup: mkdir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dir{dir: dir, now: time.Now, logger: logger}, nil
}

// Backup implements Backuper.
func (d *Dir) Backup(ctx context.Context, data []byte) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	sum := checksum.Sum(data)

	d.mu.Lock()
	defer d.mu.Unlock()
	if sum == d.last {
		d.logger.Debug("backup: unchanged, skipping", slog.String("checksum", sum))
		return true
	}

	name := fmt.Sprintf("notes-%s.json", d.now().UTC().Format("20060102T150405.000Z"))
	path := filepath.Join(d.dir, name)
	if err := storage.WriteFile(path, data); err != nil {
		d.logger.Error("backup: write snapshot", slog.String("path", path), slog.String("error", err.Error()))
		return false
	}
	d.last = sum
	d.logger.Info("backup: snapshot written", slog.String("path", path))
	return true
}

// Snapshots lists the snapshot files, oldest first.
func (d *Dir) Snapshots() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.dir, "notes-*.json"))
	if err != nil {
		return nil, err
	}
	return matches, nil
}
