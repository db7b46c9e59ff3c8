package regression

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func linearData() ([][]float64, []float64) {
	x := [][]float64{
		{1, 5}, {2, 3}, {3, 8}, {4, 1}, {5, 7}, {6, 2}, {7, 9}, {8, 4},
	}
	y := make([]float64, len(x))
	for i, r := range x {
		y[i] = 3 + 2*r[0] - r[1]
	}
	return x, y
}

func TestFitRidge_RecoversExactLinearModel(t *testing.T) {
	x, y := linearData()
	m, err := FitRidge(mustDense(t, x), y, 0)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, m.Coef[0], 1e-9)
	assert.InDelta(t, -1.0, m.Coef[1], 1e-9)
	assert.InDelta(t, 3.0, m.Intercept, 1e-9)
}

func TestFitRidge_PenaltyShrinks(t *testing.T) {
	x, y := linearData()
	loose, err := FitRidge(mustDense(t, x), y, 0)
	require.NoError(t, err)
	tight, err := FitRidge(mustDense(t, x), y, 100)
	require.NoError(t, err)
	assert.Less(t, math.Abs(tight.Coef[0]), math.Abs(loose.Coef[0]))
	assert.Less(t, math.Abs(tight.Coef[1]), math.Abs(loose.Coef[1]))
}

func TestFitRidge_CollinearColumns(t *testing.T) {
	x := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	y := []float64{2, 4, 6, 8}
	m, err := FitRidge(mustDense(t, x), y, 1)
	require.NoError(t, err)
	assert.InDelta(t, m.Coef[0], m.Coef[1], 1e-9)
}

func TestFitRidge_Errors(t *testing.T) {
	x, y := linearData()
	_, err := FitRidge(mustDense(t, x), y[:3], 1)
	assert.Error(t, err)
	_, err = FitRidge(mustDense(t, x), y, -1)
	assert.Error(t, err)
}

func TestStandardScaler(t *testing.T) {
	s, err := FitStandardScaler(mustDense(t, [][]float64{{1, 7}, {3, 7}}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 7}, s.Mean)
	assert.Equal(t, []float64{1, 1}, s.Scale)

	dst := make([]float64, 2)
	s.TransformRow(dst, []float64{3, 7})
	assert.Equal(t, []float64{1, 0}, dst)
}

func TestPipeline_PredictRowIndependence(t *testing.T) {
	x, y := linearData()
	p, err := Fit(x, y, DefaultAlpha)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	all, err := p.Predict(x)
	require.NoError(t, err)
	for i, row := range x {
		one, err := p.Predict([][]float64{row})
		require.NoError(t, err)
		assert.Equal(t, all[i], one[0])
	}
}

func TestPipeline_PredictWidthMismatch(t *testing.T) {
	x, y := linearData()
	p, err := Fit(x, y, DefaultAlpha)
	require.NoError(t, err)
	_, err = p.Predict([][]float64{{1, 2, 3}})
	assert.Error(t, err)
}

func TestPipeline_ValidateRejectsMismatch(t *testing.T) {
	p := &Pipeline{
		Scaler: &StandardScaler{Mean: []float64{0, 0}, Scale: []float64{1, 1}},
		Model:  &Ridge{Coef: []float64{1}},
	}
	assert.Error(t, p.Validate())

	p.Model.Coef = []float64{1, math.NaN()}
	assert.Error(t, p.Validate())

	assert.Error(t, (*Pipeline)(nil).Validate())
}

func TestMetrics(t *testing.T) {
	actual := []float64{1, 2, 3, 4}
	m := Evaluate(actual, []float64{1, 2, 3, 4})
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, 0.0, m.RMSE)
	assert.InDelta(t, 1.0, m.R2, 1e-12)

	m = Evaluate(actual, []float64{2, 3, 4, 5})
	assert.Equal(t, 1.0, m.MAE)
	assert.Equal(t, 1.0, m.RMSE)

	base := MeanBaseline(actual, 4)
	assert.InDelta(t, 0.0, R2(actual, base), 1e-12)
}

func TestR2_ConstantActual(t *testing.T) {
	assert.Equal(t, 1.0, R2([]float64{5, 5, 5}, []float64{5, 5, 5}))
	assert.Equal(t, 0.0, R2([]float64{5, 5, 5}, []float64{4, 5, 6}))
	assert.Equal(t, 0.0, R2([]float64{5}, []float64{7}))
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(50, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 10)
	assert.Len(t, train, 40)

	seen := make(map[int]bool)
	for _, i := range append(append([]int{}, train...), test...) {
		assert.False(t, seen[i], "index %d repeated", i)
		seen[i] = true
	}
	assert.Len(t, seen, 50)

	train2, test2, err := TrainTestSplit(50, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	all, none, err := TrainTestSplit(5, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, all)
	assert.Empty(t, none)

	_, _, err = TrainTestSplit(5, 1, 1)
	assert.Error(t, err)
}

func mustDense(t *testing.T, rows [][]float64) *mat.Dense {
	t.Helper()
	d, err := denseFromRows(rows)
	require.NoError(t, err)
	return d
}
