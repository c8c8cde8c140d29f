package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string `yaml:"name"`
	Port int    `yaml:"port"`
}

func (s *sample) Validate() error {
	if s.Port <= 0 {
		return errors.New("port must be positive")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "notes")
	path := writeFile(t, "name: ${SAMPLE_NAME}\n")

	cfg := sample{Port: 8080}
	require.NoError(t, Load(path, &cfg))
	assert.Equal(t, "notes", cfg.Name)
	assert.Equal(t, 8080, cfg.Port)
}

func TestLoad_Validates(t *testing.T) {
	path := writeFile(t, "port: 0\n")
	err := Load(path, &sample{Port: 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}

func TestLoad_MissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &sample{Port: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadOptional(t *testing.T) {
	cfg := sample{Port: 9}
	found, err := LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &cfg)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 9, cfg.Port)

	found, err = LoadOptional(filepath.Join(t.TempDir(), "nope.yaml"), &sample{})
	assert.False(t, found)
	assert.Error(t, err, "defaults are still validated")

	path := writeFile(t, "port: 3000\n")
	found, err = LoadOptional(path, &cfg)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3000, cfg.Port)
}
