// Package testutil provides shared test helpers for datasets, trained
// models and databases.
package testutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/hpml/internal/bundle"
	"github.com/starford/hpml/internal/registry"
	"github.com/starford/hpml/internal/training"
)

// DatasetHeader is the column layout written by HousingCSV.
const DatasetHeader = "listing_id,square_footage,bedrooms,bathrooms,year_built,lot_size,distance_to_city_center,school_rating,price"

// TestDB creates a temporary SQLite registry that is automatically cleaned up.
func TestDB(t *testing.T) *registry.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "hpml-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := registry.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// HousingCSV returns a deterministic labeled dataset of n valid houses whose
// price is a noisy linear function of the attributes.
func HousingCSV(n int, seed uint64) string {
	r := rand.New(rand.NewPCG(seed, seed+1))
	var b strings.Builder
	b.WriteString(DatasetHeader + "\n")
	for i := 0; i < n; i++ {
		sqft := 800 + r.Float64()*3200
		beds := 1 + r.IntN(6)
		baths := 1 + float64(r.IntN(7))*0.5
		year := 1950 + r.IntN(75)
		lot := 2000 + r.Float64()*18000
		dist := 0.5 + r.Float64()*29.5
		rating := 1 + r.Float64()*9
		price := 50000 + 150*sqft + 10000*float64(beds) + 15000*baths -
			800*float64(2025-year) + 2*lot - 3000*dist + 12000*rating +
			(r.Float64()-0.5)*10000
		fmt.Fprintf(&b, "L%05d,%.1f,%d,%.1f,%d,%.1f,%.2f,%.1f,%.0f\n",
			i+1, sqft, beds, baths, year, lot, dist, rating, price)
	}
	return b.String()
}

// WriteDataset writes HousingCSV(n, seed) into dir and returns its path.
func WriteDataset(t *testing.T, dir string, n int, seed uint64) string {
	t.Helper()
	path := filepath.Join(dir, "houses.csv")
	if err := os.WriteFile(path, []byte(HousingCSV(n, seed)), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// Model is a trained model written to a temporary directory.
type Model struct {
	Dir       string
	DataPath  string
	ModelPath string
	MetaPath  string
	Result    *training.Result
	Artifacts *bundle.Artifacts
}

// TrainedModel trains on a 200-row synthetic dataset with the default
// options and loads the artifacts back.
func TrainedModel(t *testing.T) *Model {
	t.Helper()
	dir := t.TempDir()
	opts := training.DefaultOptions()
	opts.DataPath = WriteDataset(t, dir, 200, 7)
	opts.ModelPath = filepath.Join(dir, "model.json")
	opts.MetaPath = filepath.Join(dir, "model_meta.json")

	res, err := training.Run(context.Background(), opts, Logger(), nil)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	a, err := bundle.LoadArtifacts(opts.ModelPath, opts.MetaPath, Logger())
	if err != nil {
		t.Fatalf("load artifacts: %v", err)
	}
	return &Model{
		Dir:       dir,
		DataPath:  opts.DataPath,
		ModelPath: opts.ModelPath,
		MetaPath:  opts.MetaPath,
		Result:    res,
		Artifacts: a,
	}
}
