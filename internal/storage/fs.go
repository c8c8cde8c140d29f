package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/dailynotes/internal/models"
)

// FS implements Provider as a single JSON file named after the slot key.
type FS struct {
	root string // absolute path to the data directory
	key  string
}

// NewFS creates a file-backed slot under root. The directory must already exist.
func NewFS(root, key string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	if key == "" {
		key = DefaultKey
	}
	if err := validKey(key); err != nil {
		return nil, err
	}
	return &FS{root: abs, key: key}, nil
}

// validKey rejects slot keys that would escape the data directory.
func validKey(key string) error {
	cleaned := filepath.Clean(key)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.ContainsRune(key, os.PathSeparator) {
		return fmt.Errorf("storage: invalid slot key: %s", key)
	}
	return nil
}

// Path returns the absolute path of the slot file.
func (f *FS) Path() string {
	return filepath.Join(f.root, f.key+".json")
}

// Load reads and decodes the slot file. A missing file is an empty slot.
func (f *FS) Load() ([]models.Note, error) {
	data, err := os.ReadFile(f.Path())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", f.key, err)
	}
	return Decode(data)
}

// Save encodes notes and replaces the slot file atomically.
func (f *FS) Save(notes []models.Note) error {
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	return writeAtomic(f.Path(), data)
}

// writeAtomic writes content: tmp file → fsync → rename.
func writeAtomic(abs string, content []byte) error {
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".dailynotes-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// WriteFile exposes the atomic write for adapters that keep their own files
// next to the slot (backup snapshots, audio clips).
func WriteFile(abs string, content []byte) error {
	return writeAtomic(abs, content)
}
