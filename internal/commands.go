package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/hpml/internal/evaluate"
	"github.com/starford/hpml/internal/mcpserver"
	"github.com/starford/hpml/internal/registry"
	"github.com/starford/hpml/internal/training"
)

// Train fits a model from a labeled dataset, writes the bundle and metadata,
// records the run when a registry is configured, and prints a summary to out.
func Train(ctx context.Context, topts training.Options, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}

	var rec training.Recorder
	if app.config.SQLite.Enabled() {
		db, err := registry.Open(app.config.SQLite.Path)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		defer db.Close()
		rec = db
	}

	res, err := training.Run(ctx, topts, app.logger, rec)
	if err != nil {
		return err
	}
	training.PrintSummary(out, res, topts.ModelPath, topts.MetaPath)
	return nil
}

// Evaluate scores a dataset with a trained model, writes the predictions and
// prints a summary to out.
func Evaluate(_ context.Context, eopts evaluate.Options, out io.Writer, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	summary, err := evaluate.Run(eopts, app.logger)
	if err != nil {
		return err
	}
	evaluate.PrintSummary(out, summary)
	return nil
}

// ServeMCP exposes the configured model as MCP tools over stdio.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	svc, err := app.loadPredictor()
	if err != nil {
		return err
	}
	app.logger.Info("MCP server starting", slog.Bool("model_loaded", svc.Loaded()))
	return mcpserver.New(svc, app.version, app.logger).ServeStdio()
}
