// Package evaluate runs the trained model over a dataset file and writes the
// predictions next to the original columns.
package evaluate

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/starford/hpml/internal/bundle"
	"github.com/starford/hpml/internal/dataset"
	"github.com/starford/hpml/internal/predictor"
	"github.com/starford/hpml/internal/regression"
)

// DefaultOutput is where predictions are written when no path is given.
const DefaultOutput = "data/processed/Prediction_Result_with_price.csv"

// Options configure an evaluation run.
type Options struct {
	DataPath   string
	ModelPath  string
	MetaPath   string
	OutputPath string
}

// Summary describes a finished evaluation.
type Summary struct {
	Records        int
	FeaturesUsed   []string
	TrainMeanPrice *float64
	PredictedMean  float64
	PredictedMin   float64
	PredictedMax   float64
	OutputPath     string
	// Target and Metrics are set when the input carries the target column.
	// Metrics are computed on unrounded predictions.
	Target  string
	Metrics *regression.Metrics
}

// Run loads the artifacts, predicts every row of the dataset and writes the
// result to opts.OutputPath (CSV or XLSX by extension).
func Run(opts Options, logger *slog.Logger) (*Summary, error) {
	a, err := bundle.LoadArtifacts(opts.ModelPath, opts.MetaPath, logger)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	frame, err := dataset.ReadFile(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("evaluate: read %s: %w", opts.DataPath, err)
	}

	out := opts.OutputPath
	if out == "" {
		out = DefaultOutput
	}
	sum, result, err := Evaluate(predictor.New(a, logger), a, frame)
	if err != nil {
		return nil, err
	}
	if err := dataset.WriteFile(out, result); err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	sum.OutputPath = out
	logger.Info("predictions written",
		slog.String("path", out),
		slog.Int("records", sum.Records))
	return sum, nil
}

// Evaluate predicts every row of frame with svc. It returns the summary and
// the output frame without writing anything.
func Evaluate(svc *predictor.Service, a *bundle.Artifacts, frame *dataset.Frame) (*Summary, *dataset.Frame, error) {
	res, err := svc.PredictFrame(frame)
	if err != nil {
		return nil, nil, fmt.Errorf("evaluate: %w", err)
	}
	sum := &Summary{
		Records:       frame.Len(),
		FeaturesUsed:  a.Bundle.FeatureNames(),
		PredictedMean: stat.Mean(res.Raw, nil),
		PredictedMin:  floats.Min(res.Raw),
		PredictedMax:  floats.Max(res.Raw),
	}
	if a.Metadata != nil {
		m := a.Metadata.TrainMeanPrice
		sum.TrainMeanPrice = &m
	}

	target := a.Bundle.TargetName()
	if frame.Has(target) {
		actual, err := frame.Float(target)
		if err != nil {
			return nil, nil, fmt.Errorf("evaluate: target: %w", err)
		}
		m := regression.Evaluate(actual, res.Raw)
		sum.Target, sum.Metrics = target, &m
	}
	return sum, res.Frame, nil
}

// PrintSummary writes a human-readable report of an evaluation.
func PrintSummary(w io.Writer, s *Summary) {
	rule := strings.Repeat("=", 60)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "               PREDICTION-ONLY MODE")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Number of input records      : %d\n", s.Records)
	fmt.Fprintf(w, "Features used                : %s\n", strings.Join(s.FeaturesUsed, ", "))
	if s.TrainMeanPrice != nil {
		fmt.Fprintf(w, "Training set mean price      : %.0f\n", *s.TrainMeanPrice)
	}
	fmt.Fprintf(w, "Predicted mean price         : %.0f\n", s.PredictedMean)
	fmt.Fprintf(w, "Predicted price range        : %.0f ~ %.0f\n", s.PredictedMin, s.PredictedMax)
	if s.Metrics != nil {
		fmt.Fprintf(w, "MAE against %-17s: %.2f\n", s.Target, s.Metrics.MAE)
		fmt.Fprintf(w, "R² against %-18s: %.4f\n", s.Target, s.Metrics.R2)
	}
	fmt.Fprintln(w, rule)
	if s.OutputPath != "" {
		fmt.Fprintf(w, "Results saved to -> %s (%d records)\n", s.OutputPath, s.Records)
	}
}
