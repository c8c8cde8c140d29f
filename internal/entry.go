// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dailynotes/internal/api"
	"github.com/starford/dailynotes/internal/audio"
	"github.com/starford/dailynotes/internal/backup"
	"github.com/starford/dailynotes/internal/notes"
	"github.com/starford/dailynotes/internal/noteservice"
	"github.com/starford/dailynotes/internal/sse"
	"github.com/starford/dailynotes/internal/storage"
)

// Runtime is an initialized note service with its logger. Close releases
// the storage backend.
type Runtime struct {
	Config  *Config
	Service *noteservice.Service
	Logger  *slog.Logger

	// SlotPath is the watched slot file; empty for the sqlite driver.
	SlotPath string

	closers []func() error
}

// Close releases resources acquired by Open.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	return errors.Join(errs...)
}

// Open builds the logger, storage backend, Store and service described by
// the configuration, and loads the persisted notes.
func Open(ctx context.Context, opts ...Option) (*Runtime, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("storage_driver", cfg.Storage.Driver),
		slog.String("storage_path", cfg.Storage.Path),
		slog.Bool("audio_enabled", cfg.Audio.Enabled),
		slog.String("backup_mode", cfg.Backup.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	rt := &Runtime{Config: cfg, Logger: logger}

	provider, err := openProvider(cfg.Storage, rt)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	loc, err := cfg.Export.Location()
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	backuper, err := newBackuper(cfg.Backup, logger)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}

	storeOpts := []notes.Option{notes.WithLogger(logger)}
	if app.listener != nil {
		storeOpts = append(storeOpts, notes.WithListener(app.listener))
	}
	store := notes.New(provider, storeOpts...)
	if err := store.Initialize(ctx); err != nil {
		_ = rt.Close()
		return nil, fmt.Errorf("init store: %w", err)
	}
	logger.Info("Notes loaded", slog.Int("count", store.Len()))

	rt.Service = noteservice.NewService(noteservice.Deps{
		Store:    store,
		Backuper: backuper,
		Recorder: audio.NewRecorder(cfg.Audio.Enabled, cfg.Audio.Dir, logger),
		Location: loc,
		Logger:   logger,
	})
	return rt, nil
}

func openProvider(cfg StorageConfig, rt *Runtime) (storage.Provider, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		db, err := storage.OpenSQLite(cfg.Path, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.closers = append(rt.closers, db.Close)
		return db, nil
	default:
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		fs, err := storage.NewFS(cfg.Path, cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.SlotPath = fs.Path()
		return fs, nil
	}
}

func newBackuper(cfg BackupConfig, logger *slog.Logger) (backup.Backuper, error) {
	if cfg.Mode != BackupModeDir {
		return backup.NewStub(logger), nil
	}
	d, err := backup.NewDir(cfg.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("init backup: %w", err)
	}
	return d, nil
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	// SSE broker receives every store change.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	opts = append(opts[:len(opts):len(opts)], WithListener(broker.PublishNoteEvent))
	rt, err := Open(ctx, opts...)
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config
	logger := rt.Logger
	svc := rt.Service

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api; clips are public so <audio> tags can load them.
	r.Mount("/api", apiRouter)
	r.Mount("/audio", api.ClipRouter(svc))

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Reload the store when another process rewrites the slot file.
	if cfg.Storage.Watch && rt.SlotPath != "" {
		g.Go(func() error {
			return storage.Watch(gCtx, rt.SlotPath, logger, func() {
				if err := svc.Reload(gCtx); err != nil {
					logger.Warn("reload failed", slog.String("error", err.Error()))
				}
			})
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}
