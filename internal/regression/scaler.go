// Package regression fits and applies the standardized ridge regression
// pipeline behind the price model.
package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// StandardScaler centers each column on its training mean and divides by
// its population standard deviation. Constant columns get a scale of 1.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// FitStandardScaler learns per-column mean and scale from x.
func FitStandardScaler(x mat.Matrix) (*StandardScaler, error) {
	r, c := x.Dims()
	if r == 0 {
		return nil, errors.New("regression: cannot fit scaler on zero rows")
	}
	s := &StandardScaler{Mean: make([]float64, c), Scale: make([]float64, c)}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	return s, nil
}

// TransformRow writes the standardized values of row into dst.
func (s *StandardScaler) TransformRow(dst, row []float64) {
	for j, v := range row {
		dst[j] = (v - s.Mean[j]) / s.Scale[j]
	}
}

// Transform returns a standardized copy of x.
func (s *StandardScaler) Transform(x mat.Matrix) (*mat.Dense, error) {
	_, c := x.Dims()
	if c != len(s.Mean) {
		return nil, fmt.Errorf("regression: scaler fitted on %d columns, got %d", len(s.Mean), c)
	}
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, x)
	return &out, nil
}

func (s *StandardScaler) validate() error {
	if len(s.Mean) != len(s.Scale) {
		return fmt.Errorf("regression: scaler has %d means and %d scales", len(s.Mean), len(s.Scale))
	}
	for j, sc := range s.Scale {
		if sc == 0 {
			return fmt.Errorf("regression: scaler column %d has zero scale", j)
		}
	}
	return nil
}
