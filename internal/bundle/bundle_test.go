package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/features"
	"github.com/starford/hpml/internal/housing"
	"github.com/starford/hpml/internal/regression"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func sampleBundle(t *testing.T) *Bundle {
	t.Helper()
	x := [][]float64{{1000, 2}, {1500, 3}, {2000, 3}, {2500, 4}, {3000, 5}}
	y := []float64{200000, 260000, 330000, 390000, 450000}
	p, err := regression.Fit(x, y, regression.DefaultAlpha)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	m := 2000.0
	params := features.DefaultParams()
	params.MedianSquareFootage = &m
	return New(p, []string{housing.SquareFootage, features.TotalRooms}, "price", params)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	b := sampleBundle(t)
	path := filepath.Join(t.TempDir(), "model.json")
	if err := b.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Checksum() == "" {
		t.Error("loaded bundle has no checksum")
	}
	if got.TargetName() != "price" {
		t.Errorf("target = %q, want price", got.TargetName())
	}
	rows := [][]float64{{1800, 4}, {2600, 6}}
	want, _ := b.Predict(rows)
	have, err := got.Predict(rows)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i := range want {
		if want[i] != have[i] {
			t.Errorf("row %d: got %v, want %v", i, have[i], want[i])
		}
	}
	if *got.Params().MedianSquareFootage != 2000 {
		t.Errorf("median = %v, want 2000", *got.Params().MedianSquareFootage)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing bundle")
	}
}

func TestValidateNamesEveryUnknownFeature(t *testing.T) {
	b := sampleBundle(t)
	b.FeaturesUsed[0] = "listing_id"
	b.FeaturesUsed[1] = "zip_code"

	var se *apperr.SchemaError
	if err := b.Validate(); !errors.As(err, &se) {
		t.Fatalf("Validate() = %v, want SchemaError", err)
	}
	if got := strings.Join(se.Unexpected, ","); got != "listing_id,zip_code" {
		t.Errorf("Unexpected = %q, want listing_id,zip_code", got)
	}
	if len(se.Missing) != 0 {
		t.Errorf("Missing = %v, want none", se.Missing)
	}
}

func TestLoadRejectsInconsistentBundles(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(b *Bundle)
		want   string
	}{
		{"format", func(b *Bundle) { b.FormatVersion = 99 }, "format version"},
		{"count", func(b *Bundle) { b.FeaturesUsed = b.FeaturesUsed[:1] }, "feature names"},
		{"unknown", func(b *Bundle) { b.FeaturesUsed[1] = "listing_id" }, "unexpected columns: listing_id"},
		{"duplicate", func(b *Bundle) { b.FeaturesUsed[1] = b.FeaturesUsed[0] }, "duplicate"},
		{"quality", func(b *Bundle) { b.FeatureParams.QualityScore = "inverse" }, "quality_score"},
		{"target", func(b *Bundle) { b.Target = "" }, "target"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := sampleBundle(t)
			tt.mutate(b)
			data, _ := json.Marshal(b)
			path := filepath.Join(t.TempDir(), "model.json")
			_ = os.WriteFile(path, data, 0o644)

			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	_ = os.WriteFile(path, []byte("not json"), 0o644)
	if _, err := Load(path); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestLoadArtifacts_MedianFromMetadata(t *testing.T) {
	dir := t.TempDir()
	b := sampleBundle(t)
	b.FeatureParams.MedianSquareFootage = nil
	modelPath := filepath.Join(dir, "model.json")
	metaPath := filepath.Join(dir, "model_meta.json")
	if err := b.Save(modelPath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := SaveMetadata(metaPath, &Metadata{Target: "price", TrainingMedianSquareFootage: 1750}); err != nil {
		t.Fatalf("SaveMetadata: %v", err)
	}

	a, err := LoadArtifacts(modelPath, metaPath, quietLogger())
	if err != nil {
		t.Fatalf("LoadArtifacts: %v", err)
	}
	m := a.Bundle.Params().MedianSquareFootage
	if m == nil || *m != 1750 {
		t.Fatalf("median = %v, want 1750", m)
	}
	if a.Bundle.Checksum() == "" {
		t.Error("checksum lost")
	}
	if a.Metadata == nil || a.Metadata.Target != "price" {
		t.Errorf("metadata = %+v", a.Metadata)
	}
}

func TestLoadArtifacts_MissingMetadataTolerated(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "model.json")
	if err := sampleBundle(t).Save(modelPath); err != nil {
		t.Fatalf("Save: %v", err)
	}
	a, err := LoadArtifacts(modelPath, filepath.Join(dir, "nope.json"), quietLogger())
	if err != nil {
		t.Fatalf("LoadArtifacts: %v", err)
	}
	if a.Metadata != nil {
		t.Error("expected nil metadata")
	}
}

func TestTopFeatures(t *testing.T) {
	got := TopFeatures(map[string]float64{
		"num__a": 1, "b": -7, "c": 3, "d": 0.5, "e": -2, "f": 6,
	}, TopFeatureCount)
	want := []string{"b", "f", "c", "e", "a"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Feature != w {
			t.Errorf("[%d] = %s, want %s", i, got[i].Feature, w)
		}
	}
}

func TestWatch_ReportsChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	_ = os.WriteFile(path, []byte("v1"), 0o644)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var changes []string
	go Watch(ctx, []string{path}, quietLogger(), func(p, sum string) {
		mu.Lock()
		changes = append(changes, sum)
		mu.Unlock()
	})
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("ignored"), 0o644)
	_ = os.WriteFile(path, []byte("v2"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(changes)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(changes) != 1 || changes[0] == "" {
		t.Errorf("changes = %v, want one non-empty checksum", changes)
	}
}
