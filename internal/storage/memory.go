package storage

import (
	"sync"

	"github.com/starford/dailynotes/internal/models"
)

// Memory is an in-process slot. It keeps the encoded form so that Load and
// Save behave exactly like the durable providers.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	failErr error
	writes  int
}

// NewMemory returns an empty in-memory slot.
func NewMemory() *Memory {
	return &Memory{}
}

// Load decodes the current slot contents.
func (m *Memory) Load() ([]models.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Decode(m.data)
}

// Save replaces the slot, or returns the configured failure.
func (m *Memory) Save(notes []models.Note) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	data, err := Encode(notes)
	if err != nil {
		return err
	}
	m.data = data
	m.writes++
	return nil
}

// SetRaw overwrites the slot with arbitrary bytes.
func (m *Memory) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Raw returns a copy of the slot bytes.
func (m *Memory) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data...)
}

// FailWith makes every subsequent Save return err. A nil err clears the failure.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// Writes returns the number of successful saves.
func (m *Memory) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
