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
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/linkbook/internal/api"
	"github.com/starford/linkbook/internal/kvstore"
	"github.com/starford/linkbook/internal/linksync"
	"github.com/starford/linkbook/internal/mcpserver"
	"github.com/starford/linkbook/internal/mirror"
	"github.com/starford/linkbook/internal/notebook"
	"github.com/starford/linkbook/internal/sse"
)

// runtime holds the components shared by every command.
type runtime struct {
	cfg    *Config
	logger *slog.Logger
	store  *kvstore.DB
	mirror *mirror.Mirror
	nb     *notebook.Notebook
}

func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Error("store close failed", slog.String("error", err.Error()))
	}
}

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// start initializes logging, storage, the optional mirror and the notebook.
// A read-only runtime skips the mirror and never writes the store.
func (a *application) start(ctx context.Context, readOnly bool, extra ...notebook.Option) (*runtime, error) {
	cfg := a.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("sqlite_path", cfg.Storage.Path),
		slog.String("mirror_path", cfg.Mirror.Path),
		slog.String("rename_heuristic", cfg.Links.RenameHeuristic),
		slog.String("log_level", cfg.App.LogLevel.String()))

	store, err := kvstore.Open(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger, store: store}

	opts := []notebook.Option{
		notebook.WithLogger(logger),
		notebook.WithPlacer(cfg.Layout.Placer()),
		notebook.WithRenameStrategy(linksync.StrategyByName(cfg.Links.RenameHeuristic)),
		notebook.WithRewriteOnRename(cfg.Links.RewriteOnRename),
		notebook.WithSnapGrid(cfg.Layout.SnapGrid()),
	}
	if readOnly {
		opts = append(opts, notebook.WithReadOnly())
	} else if cfg.Mirror.Enabled() {
		m, err := mirror.New(cfg.Mirror.Path, logger)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("init mirror: %w", err)
		}
		rt.mirror = m
		opts = append(opts, notebook.WithMirror(m))
	}

	nb, err := notebook.New(ctx, store, append(opts, extra...)...)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("init notebook: %w", err)
	}
	rt.nb = nb

	if rt.mirror != nil {
		imported, err := rt.mirror.Import(ctx, nb.ApplyExternalEdit)
		if err != nil {
			logger.Warn("mirror import failed", slog.String("error", err.Error()))
		} else if imported > 0 {
			logger.Info("mirror imported notes", slog.Int("count", imported))
		}
	}
	return rt, nil
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// SSE broker receives every notebook event.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	rt, err := app.start(ctx, false, notebook.WithListener(broker.PublishNoteEvent))
	if err != nil {
		return err
	}
	defer rt.Close()
	logger := rt.logger

	apiRouter := api.NewRouter(rt.nb, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Feed external edits of mirrored files back into the notebook.
	if rt.mirror != nil && cfg.Mirror.Watch {
		g.Go(func() error {
			return mirror.Watch(gCtx, rt.mirror, logger, rt.nb.ApplyExternalEdit)
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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the errgroup context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the MCP tools on stdin/stdout.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	rt, err := app.start(ctx, false)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := mcpserver.New(rt.nb, app.version)

	g, gCtx := errgroup.WithContext(ctx)
	if rt.mirror != nil && app.config.Mirror.Watch {
		g.Go(func() error {
			return mirror.Watch(gCtx, rt.mirror, rt.logger, rt.nb.ApplyExternalEdit)
		})
	}
	g.Go(func() error {
		rt.logger.Info("MCP server starting on stdio")
		if err := srv.ServeStdio(); err != nil {
			return fmt.Errorf("MCP server error: %w", err)
		}
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		return err
	}
	return nil
}
