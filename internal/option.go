package internal

import (
	"io"

	"github.com/starford/dailynotes/internal/notes"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	logOutput io.Writer
	listener  notes.Listener
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithLogOutput redirects the JSON log stream. The MCP command uses it to
// keep stdout free for the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithListener subscribes l to store change events.
func WithListener(l notes.Listener) Option {
	return func(a *application) {
		a.listener = l
	}
}
