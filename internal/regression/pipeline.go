package regression

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultAlpha is the ridge penalty used when none is configured.
const DefaultAlpha = 1.0

// Pipeline standardizes its input and then applies a ridge model.
type Pipeline struct {
	Scaler *StandardScaler `json:"scaler"`
	Model  *Ridge          `json:"model"`
}

// Fit trains a pipeline on row-major features x and targets y.
func Fit(x [][]float64, y []float64, alpha float64) (*Pipeline, error) {
	dense, err := denseFromRows(x)
	if err != nil {
		return nil, err
	}
	scaler, err := FitStandardScaler(dense)
	if err != nil {
		return nil, err
	}
	scaled, err := scaler.Transform(dense)
	if err != nil {
		return nil, err
	}
	model, err := FitRidge(scaled, y, alpha)
	if err != nil {
		return nil, err
	}
	return &Pipeline{Scaler: scaler, Model: model}, nil
}

// NumFeatures returns the input width the pipeline was fitted on.
func (p *Pipeline) NumFeatures() int { return len(p.Model.Coef) }

// Validate checks that the scaler and model agree on dimensions and hold
// finite numbers.
func (p *Pipeline) Validate() error {
	if p == nil || p.Scaler == nil || p.Model == nil {
		return errors.New("regression: incomplete pipeline")
	}
	if err := p.Scaler.validate(); err != nil {
		return err
	}
	if len(p.Scaler.Mean) != len(p.Model.Coef) {
		return fmt.Errorf("regression: scaler has %d columns, model has %d coefficients",
			len(p.Scaler.Mean), len(p.Model.Coef))
	}
	if len(p.Model.Coef) == 0 {
		return errors.New("regression: model has no coefficients")
	}
	for _, vs := range [][]float64{p.Scaler.Mean, p.Scaler.Scale, p.Model.Coef, {p.Model.Intercept}} {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.New("regression: non-finite parameter")
			}
		}
	}
	return nil
}

// Predict returns one prediction per row. Rows are evaluated independently,
// so a row's prediction does not depend on the rest of the batch.
func (p *Pipeline) Predict(x [][]float64) ([]float64, error) {
	width := p.NumFeatures()
	out := make([]float64, len(x))
	buf := make([]float64, width)
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("regression: row %d has %d features, want %d", i, len(row), width)
		}
		p.Scaler.TransformRow(buf, row)
		out[i] = p.Model.PredictRow(buf)
	}
	return out, nil
}

func denseFromRows(x [][]float64) (*mat.Dense, error) {
	if len(x) == 0 {
		return nil, errors.New("regression: no rows")
	}
	c := len(x[0])
	if c == 0 {
		return nil, errors.New("regression: no features")
	}
	data := make([]float64, 0, len(x)*c)
	for i, row := range x {
		if len(row) != c {
			return nil, fmt.Errorf("regression: row %d has %d features, want %d", i, len(row), c)
		}
		data = append(data, row...)
	}
	return mat.NewDense(len(x), c, data), nil
}
