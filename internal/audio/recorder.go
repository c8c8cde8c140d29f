// Package audio captures voice clips and turns them into playable URLs that
// can be stored on a note.
package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/starford/dailynotes/internal/storage"
)

const (
	// URLPrefix is the path under which finalised clips are served.
	URLPrefix = "/audio/"
	clipExt   = ".wav"

	// MaxClipBytes bounds a single recording.
	MaxClipBytes = 50 << 20
)

var (
	// ErrUnavailable means capture is disabled or the device is not usable.
	ErrUnavailable = errors.New("audio: capture unavailable")
	ErrTooLarge    = errors.New("audio: clip too large")
	ErrStopped     = errors.New("audio: recording already stopped")
)

// Recording accumulates audio chunks until Stop.
type Recording struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	stopped bool
}

// Write appends a chunk.
func (r *Recording) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return 0, ErrStopped
	}
	if r.buf.Len()+len(p) > MaxClipBytes {
		return 0, ErrTooLarge
	}
	return r.buf.Write(p)
}

// Len returns the number of buffered bytes.
func (r *Recording) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Len()
}

// Recorder hands out recordings and finalises them into files under dir.
type Recorder struct {
	enabled bool
	dir     string
	logger  *slog.Logger
}

// NewRecorder returns a recorder writing clips to dir. A disabled recorder
// refuses to start.
func NewRecorder(enabled bool, dir string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{enabled: enabled, dir: dir, logger: logger}
}

// Enabled reports whether recordings can be started.
func (r *Recorder) Enabled() bool { return r.enabled }

// Dir returns the clip directory.
func (r *Recorder) Dir() string { return r.dir }

// Start begins a recording.
func (r *Recorder) Start() (*Recording, error) {
	if !r.enabled {
		return nil, ErrUnavailable
	}
	return &Recording{}, nil
}

// Stop finalises rec into a uniquely named clip and returns its URL.
// An empty recording is rejected.
func (r *Recorder) Stop(ctx context.Context, rec *Recording) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rec.mu.Lock()
	if rec.stopped {
		rec.mu.Unlock()
		return "", ErrStopped
	}
	rec.stopped = true
	data := bytes.Clone(rec.buf.Bytes())
	rec.buf.Reset()
	rec.mu.Unlock()

	if len(data) == 0 {
		return "", fmt.Errorf("audio: empty recording")
	}

	name := uuid.NewString() + clipExt
	if err := storage.WriteFile(filepath.Join(r.dir, name), data); err != nil {
		return "", fmt.Errorf("audio: save clip: %w", err)
	}
	r.logger.Info("audio: clip saved", slog.String("name", name), slog.Int("bytes", len(data)))
	return URLPrefix + name, nil
}

// Capture records everything from src as one clip.
func (r *Recorder) Capture(ctx context.Context, src io.Reader) (string, error) {
	rec, err := r.Start()
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(rec, src); err != nil {
		return "", fmt.Errorf("audio: capture: %w", err)
	}
	return r.Stop(ctx, rec)
}

// Path resolves a clip name to its file, rejecting anything that is not a
// plain file name inside the clip directory.
func (r *Recorder) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("audio: clip name is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.ContainsRune(name, '/') {
		return "", fmt.Errorf("audio: invalid clip name: %s", name)
	}
	root, err := filepath.Abs(r.dir)
	if err != nil {
		return "", fmt.Errorf("audio: resolve dir: %w", err)
	}
	abs := filepath.Join(root, cleaned)
	if !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("audio: path escapes clip directory")
	}
	return abs, nil
}
