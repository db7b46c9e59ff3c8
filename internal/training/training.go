// Package training fits the price model from a labeled dataset and writes
// the bundle and metadata artifacts.
package training

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/starford/hpml/internal/bundle"
	"github.com/starford/hpml/internal/dataset"
	"github.com/starford/hpml/internal/features"
	"github.com/starford/hpml/internal/housing"
	"github.com/starford/hpml/internal/regression"
	"github.com/starford/hpml/internal/registry"
	"github.com/starford/hpml/internal/storage"
)

// MinRows is the smallest dataset accepted for training.
const MinRows = 10

// DefaultTestSize is the held-out fraction when none is configured.
const DefaultTestSize = 0.2

// DefaultSeed seeds the train/test shuffle.
const DefaultSeed = 42

// ErrInsufficientData is returned when the dataset has fewer than MinRows
// or its target does not vary.
var ErrInsufficientData = errors.New("insufficient data")

// Target columns tried in order when none is requested.
var targetCandidates = []string{"price", "sale_price"}

// idMarkers flag columns that identify a row rather than describe a house.
var idMarkers = []string{"id", "index", "row", "listing", "mls"}

// Options configure a training run.
type Options struct {
	DataPath      string
	ModelPath     string
	MetaPath      string
	Target        string
	TestSize      float64
	Alpha         float64
	Seed          uint64
	ReferenceYear int
}

// DefaultOptions returns options with the documented defaults and no paths.
func DefaultOptions() Options {
	return Options{
		TestSize:      DefaultTestSize,
		Alpha:         regression.DefaultAlpha,
		Seed:          DefaultSeed,
		ReferenceYear: features.DefaultReferenceYear,
	}
}

// Result is a fitted model with its metadata.
type Result struct {
	Bundle   *bundle.Bundle
	Metadata *bundle.Metadata
	// Checksum of the written bundle file; empty until saved.
	Checksum string
}

// Recorder stores a summary of a finished run.
type Recorder interface {
	Record(ctx context.Context, r registry.Run) error
}

// Run reads the dataset, fits the model, writes both artifacts and, when
// rec is non-nil, records the run.
func Run(ctx context.Context, opts Options, logger *slog.Logger, rec Recorder) (*Result, error) {
	frame, err := dataset.ReadFile(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("training: read %s: %w", opts.DataPath, err)
	}
	logger.Info("dataset loaded",
		slog.String("path", opts.DataPath),
		slog.Int("rows", frame.Len()),
		slog.Int("columns", len(frame.Header)))

	res, err := Fit(frame, opts, logger)
	if err != nil {
		return nil, err
	}
	if err := res.Save(opts.ModelPath, opts.MetaPath); err != nil {
		return nil, err
	}
	logger.Info("artifacts written",
		slog.String("model", opts.ModelPath),
		slog.String("meta", opts.MetaPath),
		slog.String("checksum", res.Checksum))

	if rec != nil {
		if err := rec.Record(ctx, res.run(opts.ModelPath)); err != nil {
			return nil, fmt.Errorf("training: record run: %w", err)
		}
	}
	return res, nil
}

// Fit trains on an in-memory frame without touching the file system.
func Fit(frame *dataset.Frame, opts Options, logger *slog.Logger) (*Result, error) {
	if frame.Len() < MinRows {
		return nil, fmt.Errorf("training: %w: need at least %d rows, got %d", ErrInsufficientData, MinRows, frame.Len())
	}

	target, err := detectTarget(frame.Header, opts.Target, logger)
	if err != nil {
		return nil, err
	}
	y, err := frame.Float(target)
	if err != nil {
		return nil, fmt.Errorf("training: target: %w", err)
	}
	logDroppedColumns(frame.Header, target, logger)

	raw, err := frame.Table(housing.RawColumns)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	trainIdx, testIdx, err := regression.TrainTestSplit(frame.Len(), opts.TestSize, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	params := features.Params{ReferenceYear: opts.ReferenceYear, QualityScore: features.QualityProduct}
	var medianSqft float64
	if sqft := raw.Column(housing.SquareFootage); sqft != nil {
		medianSqft = features.Median(pick(sqft, trainIdx))
		params.MedianSquareFootage = &medianSqft
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	derived, err := features.NewEngineer(params, features.WithLogger(logger)).Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	used := make([]string, 0, len(features.ModelColumns))
	for _, c := range features.ModelColumns {
		if derived.Has(c) {
			used = append(used, c)
		}
	}
	if len(used) == 0 {
		return nil, fmt.Errorf("training: no usable feature columns in %v", frame.Header)
	}
	selected, err := features.Select(derived, used)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}

	xTrain, yTrain := selected.Rows(trainIdx).Matrix(), pick(y, trainIdx)
	if floats.Min(yTrain) == floats.Max(yTrain) {
		return nil, fmt.Errorf("training: %w: target %q is constant", ErrInsufficientData, target)
	}
	pipeline, err := regression.Fit(xTrain, yTrain, opts.Alpha)
	if err != nil {
		return nil, fmt.Errorf("training: fit: %w", err)
	}

	trainPred, err := pipeline.Predict(xTrain)
	if err != nil {
		return nil, fmt.Errorf("training: %w", err)
	}
	trainMean := stat.Mean(yTrain, nil)
	meta := &bundle.Metadata{
		RunID:                       uuid.New().String(),
		Target:                      target,
		NSamples:                    frame.Len(),
		TrainSamples:                len(trainIdx),
		TestSamples:                 len(testIdx),
		FeaturesUsed:                slices.Clone(used),
		TrainMeanPrice:              trainMean,
		MetricsOnTrainingSet:        regression.Evaluate(yTrain, trainPred),
		Model:                       pipeline.Model.String(),
		Intercept:                   pipeline.Model.Intercept,
		TrainingDate:                time.Now().UTC(),
		ReferenceYear:               opts.ReferenceYear,
		TrainingMedianSquareFootage: medianSqft,
	}

	// The baseline and improvement are measured on the held-out rows when
	// there are any, otherwise on the training rows.
	evalY, evalPred := yTrain, trainPred
	if len(testIdx) > 0 {
		xTest, yTest := selected.Rows(testIdx).Matrix(), pick(y, testIdx)
		testPred, err := pipeline.Predict(xTest)
		if err != nil {
			return nil, fmt.Errorf("training: %w", err)
		}
		m := regression.Evaluate(yTest, testPred)
		meta.MetricsOnTestSet = &m
		evalY, evalPred = yTest, testPred
	}
	meta.BaselineNaiveMAE = regression.MAE(evalY, regression.MeanBaseline(yTrain, len(evalY)))
	if meta.BaselineNaiveMAE > 0 {
		meta.ImprovementOverBaselinePct = (meta.BaselineNaiveMAE - regression.MAE(evalY, evalPred)) / meta.BaselineNaiveMAE * 100
	}

	b := bundle.New(pipeline, used, target, params)
	meta.Coefficients = b.Coefficients()
	meta.Top5ImportantFeatures = bundle.TopFeatures(meta.Coefficients, bundle.TopFeatureCount)

	logger.Info("model fitted",
		slog.String("run_id", meta.RunID),
		slog.String("target", target),
		slog.Int("features", len(used)),
		slog.Float64("train_mae", meta.MetricsOnTrainingSet.MAE),
		slog.Float64("train_r2", meta.MetricsOnTrainingSet.R2))
	return &Result{Bundle: b, Metadata: meta}, nil
}

// Save writes the bundle and metadata atomically and records the bundle
// checksum on r. Both are encoded before either file is touched.
func (r *Result) Save(modelPath, metaPath string) error {
	model, err := r.Bundle.Encode()
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	meta, err := bundle.EncodeMetadata(r.Metadata)
	if err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if err := storage.Write(modelPath, model); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	if err := storage.Write(metaPath, meta); err != nil {
		return fmt.Errorf("training: %w", err)
	}
	loaded, err := bundle.Load(modelPath)
	if err != nil {
		return fmt.Errorf("training: reload written bundle: %w", err)
	}
	r.Checksum = loaded.Checksum()
	return nil
}

func (r *Result) run(modelPath string) registry.Run {
	metaJSON, _ := json.Marshal(r.Metadata)
	run := registry.Run{
		RunID:     r.Metadata.RunID,
		CreatedAt: r.Metadata.TrainingDate,
		Target:    r.Metadata.Target,
		NSamples:  r.Metadata.NSamples,
		TrainMAE:  r.Metadata.MetricsOnTrainingSet.MAE,
		TrainR2:   r.Metadata.MetricsOnTrainingSet.R2,
		Model:     r.Metadata.Model,
		ModelPath: modelPath,
		Checksum:  r.Checksum,
		Metadata:  metaJSON,
	}
	if t := r.Metadata.MetricsOnTestSet; t != nil {
		run.TestMAE, run.TestR2 = &t.MAE, &t.R2
	}
	return run
}

func detectTarget(header []string, requested string, logger *slog.Logger) (string, error) {
	if requested != "" {
		if slices.Contains(header, requested) {
			return requested, nil
		}
		logger.Warn("requested target column not found, detecting", slog.String("target", requested))
	}
	for _, c := range targetCandidates {
		if slices.Contains(header, c) {
			return c, nil
		}
	}
	if len(header) == 0 {
		return "", errors.New("training: dataset has no columns")
	}
	last := header[len(header)-1]
	logger.Warn("no price column, using last column as target", slog.String("target", last))
	return last, nil
}

// logDroppedColumns reports every column that is neither the target nor an
// allowed business attribute. ID-like columns are called out separately.
func logDroppedColumns(header []string, target string, logger *slog.Logger) {
	for _, c := range header {
		if c == target || slices.Contains(housing.RawColumns, c) || slices.Contains(features.EngineeredColumns, c) {
			continue
		}
		if isIDLike(c) {
			logger.Warn("dropping id-like column", slog.String("column", c))
			continue
		}
		logger.Info("dropping column outside allow-list", slog.String("column", c))
	}
}

func isIDLike(col string) bool {
	lc := strings.ToLower(col)
	for _, m := range idMarkers {
		if strings.Contains(lc, m) {
			return true
		}
	}
	return false
}

func pick(xs []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = xs[j]
	}
	return out
}
