// Package predictor holds the loaded model and answers prediction and
// model-info requests. A Service is immutable and safe for concurrent use.
package predictor

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/bundle"
	"github.com/starford/hpml/internal/dataset"
	"github.com/starford/hpml/internal/features"
	"github.com/starford/hpml/internal/housing"
)

// Health is the liveness report.
type Health struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Service is the prediction context shared by every request handler.
type Service struct {
	bundle   *bundle.Bundle
	meta     *bundle.Metadata
	engineer *features.Engineer
	logger   *slog.Logger
}

// New builds a service over loaded artifacts. A nil a yields a service that
// reports the model as not loaded and refuses predictions.
func New(a *bundle.Artifacts, logger *slog.Logger) *Service {
	s := &Service{logger: logger}
	if a == nil || a.Bundle == nil {
		return s
	}
	s.bundle = a.Bundle
	s.meta = a.Metadata
	s.engineer = features.NewEngineer(a.Bundle.Params(),
		features.WithRequired(housing.RawColumns...),
		features.WithLogger(logger))
	return s
}

// Loaded reports whether a model bundle is available.
func (s *Service) Loaded() bool { return s.bundle != nil }

// Health reports service status. It never fails.
func (s *Service) Health() Health {
	h := Health{Status: "healthy", Model: "not loaded"}
	if s.Loaded() {
		h.Model = "loaded"
	}
	return h
}

// ReferenceYear is the upper bound accepted for year_built.
func (s *Service) ReferenceYear() int {
	if !s.Loaded() {
		return features.DefaultReferenceYear
	}
	return s.bundle.Params().ReferenceYear
}

// PredictOne validates a single house and returns its rounded price.
func (s *Service) PredictOne(h housing.House) (int64, error) {
	if !s.Loaded() {
		return 0, apperr.ErrModelUnavailable
	}
	if err := h.Validate(s.ReferenceYear()); err != nil {
		return 0, err
	}
	raw, err := s.predict([]housing.House{h})
	if err != nil {
		return 0, err
	}
	return Round(raw[0]), nil
}

// PredictBatch validates every house and returns rounded prices in input
// order. An empty batch is rejected; a single invalid house fails the batch.
func (s *Service) PredictBatch(hs []housing.House) ([]int64, error) {
	if !s.Loaded() {
		return nil, apperr.ErrModelUnavailable
	}
	if len(hs) == 0 {
		return nil, apperr.ErrEmptyInput
	}
	for i := range hs {
		if err := hs[i].ValidateRow(s.ReferenceYear(), i+1); err != nil {
			return nil, err
		}
	}
	raw, err := s.predict(hs)
	if err != nil {
		return nil, err
	}
	return RoundAll(raw), nil
}

// FrameResult is a prediction over a table of houses.
type FrameResult struct {
	// Frame is the input with id ensured and predicted_price appended.
	Frame *dataset.Frame
	// Raw holds the unrounded predictions in row order.
	Raw []float64
}

// PredictFrame predicts every row of a parsed table. All seven raw columns
// must be present; other columns are carried through to the output
// unchanged.
func (s *Service) PredictFrame(f *dataset.Frame) (*FrameResult, error) {
	if !s.Loaded() {
		return nil, apperr.ErrModelUnavailable
	}
	if f.Len() == 0 {
		return nil, apperr.ErrEmptyInput
	}
	var missing []string
	for _, c := range housing.RawColumns {
		if !f.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &apperr.SchemaError{Missing: missing}
	}

	houses, err := s.houses(f)
	if err != nil {
		return nil, err
	}
	raw, err := s.predict(houses)
	if err != nil {
		return nil, err
	}
	out, err := f.WithID().WithColumn(dataset.PredictionColumn, dataset.Prices(RoundAll(raw)))
	if err != nil {
		return nil, err
	}
	return &FrameResult{Frame: out, Raw: raw}, nil
}

// houses parses and validates each row of f.
func (s *Service) houses(f *dataset.Frame) ([]housing.House, error) {
	tbl, err := f.Table(housing.RawColumns)
	if err != nil {
		return nil, err
	}
	maxYear := s.ReferenceYear()
	out := make([]housing.House, f.Len())
	values := make(map[string]float64, len(housing.RawColumns))
	for i := range out {
		for _, c := range housing.RawColumns {
			values[c] = tbl.Column(c)[i]
		}
		h, err := housing.FromValues(values, i+1)
		if err != nil {
			return nil, err
		}
		if err := h.ValidateRow(maxYear, i+1); err != nil {
			return nil, err
		}
		out[i] = h
	}
	return out, nil
}

// predict is the one path every prediction goes through.
func (s *Service) predict(hs []housing.House) ([]float64, error) {
	tbl, err := s.engineer.Features(features.FromHouses(hs), s.bundle.FeatureNames())
	if err != nil {
		return nil, err
	}
	names := tbl.Columns()
	rows := tbl.Matrix()
	for i, row := range rows {
		for j, v := range row {
			if !finite(v) {
				return nil, &apperr.ValidationError{Row: i + 1, Field: names[j], Msg: "value too large"}
			}
		}
	}
	preds, err := s.bundle.Predict(rows)
	if err != nil {
		return nil, fmt.Errorf("predictor: %w", err)
	}
	for i, p := range preds {
		if !finite(p) || math.Abs(p) > maxPrice {
			return nil, &apperr.ValidationError{Row: i + 1, Msg: "prediction out of range"}
		}
	}
	return preds, nil
}

// maxPrice bounds predictions that still fit an int64 after rounding.
const maxPrice = 1 << 62

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Round converts a raw prediction to the reported integer price.
func Round(v float64) int64 { return int64(math.Round(v)) }

// RoundAll rounds every prediction.
func RoundAll(vs []float64) []int64 {
	out := make([]int64, len(vs))
	for i, v := range vs {
		out[i] = Round(v)
	}
	return out
}
