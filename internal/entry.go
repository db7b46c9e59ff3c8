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

	"github.com/starford/hpml/internal/api"
	"github.com/starford/hpml/internal/bundle"
	"github.com/starford/hpml/internal/predictor"
	"github.com/starford/hpml/internal/registry"
	"github.com/starford/hpml/internal/sse"
)

// Run starts the prediction server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg, logger := app.config, app.logger

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("model_path", cfg.Model.Path),
		slog.String("meta_path", cfg.Model.MetaPath),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	svc, err := app.loadPredictor()
	if err != nil {
		return err
	}

	// The registry is optional for serving; /training-runs reports 503
	// without it.
	var runs registry.Store
	if cfg.SQLite.Enabled() {
		db, err := registry.Open(cfg.SQLite.Path)
		if err != nil {
			logger.Warn("training-run registry unavailable",
				slog.String("path", cfg.SQLite.Path),
				slog.String("error", err.Error()))
		} else {
			defer db.Close()
			runs = db
		}
	}

	broker := sse.NewBroker(2 * time.Second)

	var metrics *api.Metrics
	if cfg.App.Metrics {
		metrics = api.NewMetrics()
	}

	apiRouter := api.NewRouter(api.RouterConfig{
		Predictor:   svc,
		Runs:        runs,
		Metrics:     metrics,
		Events:      broker,
		Logger:      logger,
		AuthEnabled: cfg.Auth.AuthEnabled(),
		AuthToken:   cfg.Auth.Token,
		RateLimit:   cfg.App.HTTP.RateLimit,
		RateBurst:   cfg.App.HTTP.RateBurst,
	})

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Report artifacts replaced under a running server on /events.
	if cfg.Model.Watch && svc.Loaded() {
		g.Go(func() error {
			paths := []string{cfg.Model.Path, cfg.Model.MetaPath}
			if err := bundle.Watch(gCtx, paths, logger, broker.PublishArtifactChange); err != nil {
				logger.Warn("artifact watcher stopped", slog.String("error", err.Error()))
			}
			return nil
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

		// Close SSE streams so Shutdown does not wait on them.
		broker.Close()

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

// errShutdown cancels the group so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// loadPredictor loads the configured artifacts. A load failure is fatal
// when the model is required on start; otherwise the service starts with
// no model and reports it as not loaded.
func (a *application) loadPredictor() (*predictor.Service, error) {
	cfg := a.config.Model
	artifacts, err := bundle.LoadArtifacts(cfg.Path, cfg.MetaPath, a.logger)
	if err != nil {
		if cfg.RequireOnStart {
			return nil, fmt.Errorf("load model: %w", err)
		}
		a.logger.Error("model not loaded, serving without it",
			slog.String("path", cfg.Path),
			slog.String("error", err.Error()))
	}
	return predictor.New(artifacts, a.logger), nil
}
