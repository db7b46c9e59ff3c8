package regression

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Ridge is a linear model fitted with an L2 penalty on the coefficients.
// The intercept is not penalized.
type Ridge struct {
	Alpha     float64   `json:"alpha"`
	Coef      []float64 `json:"coef"`
	Intercept float64   `json:"intercept"`
}

// FitRidge solves (XcᵀXc + αI)w = Xcᵀyc on centered data.
func FitRidge(x mat.Matrix, y []float64, alpha float64) (*Ridge, error) {
	r, c := x.Dims()
	if r == 0 || c == 0 {
		return nil, errors.New("regression: empty design matrix")
	}
	if len(y) != r {
		return nil, fmt.Errorf("regression: %d targets for %d rows", len(y), r)
	}
	if alpha < 0 {
		return nil, fmt.Errorf("regression: negative alpha %v", alpha)
	}

	xMean := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, x)
		xMean[j] = stat.Mean(col, nil)
	}
	yMean := stat.Mean(y, nil)

	var xc mat.Dense
	xc.Apply(func(_, j int, v float64) float64 { return v - xMean[j] }, x)
	yc := mat.NewVecDense(r, nil)
	for i, v := range y {
		yc.SetVec(i, v-yMean)
	}

	var gram mat.SymDense
	gram.SymOuterK(1, xc.T())
	for j := 0; j < c; j++ {
		gram.SetSym(j, j, gram.At(j, j)+alpha)
	}
	var xty mat.VecDense
	xty.MulVec(xc.T(), yc)

	w := mat.NewVecDense(c, nil)
	var chol mat.Cholesky
	if chol.Factorize(&gram) {
		if err := chol.SolveVecTo(w, &xty); err != nil {
			return nil, fmt.Errorf("regression: cholesky solve: %w", err)
		}
	} else if err := w.SolveVec(&xc, yc); err != nil {
		return nil, fmt.Errorf("regression: least squares solve: %w", err)
	}

	coef := make([]float64, c)
	for j := range coef {
		coef[j] = w.AtVec(j)
	}
	return &Ridge{
		Alpha:     alpha,
		Coef:      coef,
		Intercept: yMean - floats.Dot(xMean, coef),
	}, nil
}

// PredictRow returns the model output for one feature vector.
func (m *Ridge) PredictRow(row []float64) float64 {
	return m.Intercept + floats.Dot(m.Coef, row)
}

// String describes the model the way it is reported in metadata.
func (m *Ridge) String() string {
	return fmt.Sprintf("Ridge(alpha=%g)", m.Alpha)
}
