package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStub_LogsPreviewAndSucceeds(t *testing.T) {
	var buf bytes.Buffer
	s := NewStub(slog.New(slog.NewTextHandler(&buf, nil)))

	payload := []byte(strings.Repeat("x", 150))
	if !s.Backup(context.Background(), payload) {
		t.Fatal("stub backup returned false")
	}
	out := buf.String()
	if !strings.Contains(out, strings.Repeat("x", 100)+"...") {
		t.Fatalf("log lacks preview: %s", out)
	}
	if strings.Contains(out, strings.Repeat("x", 101)) {
		t.Fatalf("preview longer than 100 bytes: %s", out)
	}
}

func newTestDir(t *testing.T) *Dir {
	t.Helper()
	d, err := NewDir(filepath.Join(t.TempDir(), "backups"), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatalf("NewDir: %v", err)
	}
	tick := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	d.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	return d
}

func TestStub_PreviewKeepsWholeRunes(t *testing.T) {
	var buf bytes.Buffer
	s := NewStub(slog.New(slog.NewJSONHandler(&buf, nil)))

	// "é" occupies bytes 99 and 100, straddling the preview limit.
	payload := []byte(strings.Repeat("x", 99) + "é" + strings.Repeat("y", 20))
	if !s.Backup(context.Background(), payload) {
		t.Fatal("stub backup returned false")
	}
	var entry struct {
		Preview string `json:"preview"`
	}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v", err)
	}
	if want := strings.Repeat("x", 99) + "..."; entry.Preview != want {
		t.Errorf("preview = %q, want %q", entry.Preview, want)
	}
}

func TestDir_WritesSnapshot(t *testing.T) {
	d := newTestDir(t)
	payload := []byte(`[{"id":"1"}]`)

	if !d.Backup(context.Background(), payload) {
		t.Fatal("backup failed")
	}
	snaps, err := d.Snapshots()
	if err != nil || len(snaps) != 1 {
		t.Fatalf("snapshots = %v, %v", snaps, err)
	}
	if got := filepath.Base(snaps[0]); got != "notes-20240310T080001.000Z.json" {
		t.Fatalf("name = %s", got)
	}
	data, _ := os.ReadFile(snaps[0])
	if !bytes.Equal(data, payload) {
		t.Fatalf("content = %s", data)
	}
}

func TestDir_SkipsUnchanged(t *testing.T) {
	d := newTestDir(t)
	ctx := context.Background()

	d.Backup(ctx, []byte("a"))
	d.Backup(ctx, []byte("a"))
	d.Backup(ctx, []byte("b"))

	snaps, _ := d.Snapshots()
	if len(snaps) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(snaps))
	}
}

func TestDir_CancelledContext(t *testing.T) {
	d := newTestDir(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if d.Backup(ctx, []byte("a")) {
		t.Fatal("backup succeeded with cancelled context")
	}
}

func TestDir_WriteFailureReturnsFalse(t *testing.T) {
	d := newTestDir(t)
	// A regular file where the directory should be makes every write fail.
	if err := os.RemoveAll(d.dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(d.dir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if d.Backup(context.Background(), []byte("a")) {
		t.Fatal("backup succeeded into a file path")
	}
}
