package internal

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/hpml/internal/evaluate"
	"github.com/starford/hpml/internal/registry"
	"github.com/starford/hpml/internal/testutil"
	"github.com/starford/hpml/internal/training"
)

func testConfig(dir string) *Config {
	cfg := NewDefaultConfig()
	cfg.Model.Path = filepath.Join(dir, "model.json")
	cfg.Model.MetaPath = filepath.Join(dir, "model_meta.json")
	cfg.SQLite.Path = filepath.Join(dir, "runs.db")
	return cfg
}

func TestTrainThenEvaluate(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	data := testutil.WriteDataset(t, dir, 60, 11)

	topts := training.DefaultOptions()
	topts.DataPath = data
	topts.ModelPath = cfg.Model.Path
	topts.MetaPath = cfg.Model.MetaPath

	var out bytes.Buffer
	if err := Train(context.Background(), topts, &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("train: %v", err)
	}
	if !strings.Contains(out.String(), "TRAINING COMPLETED") {
		t.Errorf("summary = %q", out.String())
	}

	db, err := registry.Open(cfg.SQLite.Path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	latest, err := db.Latest(context.Background())
	if err != nil || latest == nil {
		t.Fatalf("latest run = %v, %v", latest, err)
	}

	out.Reset()
	eopts := evaluate.Options{
		DataPath:   data,
		ModelPath:  cfg.Model.Path,
		MetaPath:   cfg.Model.MetaPath,
		OutputPath: filepath.Join(dir, "out.csv"),
	}
	if err := Evaluate(context.Background(), eopts, &out, WithConfig(cfg), WithLogOutput(io.Discard)); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !strings.Contains(out.String(), "PREDICTION-ONLY MODE") {
		t.Errorf("summary = %q", out.String())
	}
}

func TestLoadPredictor(t *testing.T) {
	cfg := testConfig(t.TempDir())

	app, err := newApplication([]Option{WithConfig(cfg), WithLogOutput(io.Discard)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := app.loadPredictor(); err == nil {
		t.Fatal("missing model should fail when required on start")
	}

	cfg.Model.RequireOnStart = false
	svc, err := app.loadPredictor()
	if err != nil {
		t.Fatalf("optional model: %v", err)
	}
	if svc.Loaded() {
		t.Error("service reports a model that does not exist")
	}
}

func TestRunRequiresConfig(t *testing.T) {
	if err := Run(context.Background()); err == nil {
		t.Fatal("expected error without config")
	}
}
