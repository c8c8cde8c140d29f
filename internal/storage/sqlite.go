package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dailynotes/internal/models"
)

const slotSchemaSQL = `
CREATE TABLE IF NOT EXISTS slots (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL DEFAULT '[]',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLite implements Provider as one row of a key-value table.
type SQLite struct {
	conn *sql.DB
	key  string
}

// OpenSQLite opens (or creates) the database at dsn and applies the schema.
func OpenSQLite(dsn, key string) (*SQLite, error) {
	if key == "" {
		key = DefaultKey
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := conn.Exec(slotSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: apply schema: %w", err)
	}
	return &SQLite{conn: conn, key: key}, nil
}

// Load returns the decoded slot row, or nil if the row does not exist.
func (s *SQLite) Load() ([]models.Note, error) {
	var value string
	err := s.conn.QueryRow(`SELECT value FROM slots WHERE key = ?`, s.key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("storage: select slot: %w", err)
	}
	return Decode([]byte(value))
}

// Save upserts the slot row with the encoded collection.
func (s *SQLite) Save(notes []models.Note) error {
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	_, err = s.conn.Exec(`
		INSERT INTO slots (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, s.key, string(data), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("storage: upsert slot: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}
