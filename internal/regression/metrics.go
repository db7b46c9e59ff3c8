package regression

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Metrics are the evaluation scores reported for a set of predictions.
type Metrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// Evaluate scores predictions against actual values. Both slices must have
// the same non-zero length.
func Evaluate(actual, predicted []float64) Metrics {
	return Metrics{
		MAE:  MAE(actual, predicted),
		RMSE: RMSE(actual, predicted),
		R2:   R2(actual, predicted),
	}
}

// MAE is the mean absolute error.
func MAE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// RMSE is the root mean squared error.
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// R2 is the coefficient of determination. When actual has no variance it is
// 1 for a perfect fit and 0 otherwise.
func R2(actual, predicted []float64) float64 {
	if len(actual) == 0 {
		return 0
	}
	if len(actual) < 2 || stat.Variance(actual, nil) == 0 {
		if MAE(actual, predicted) == 0 {
			return 1
		}
		return 0
	}
	return stat.RSquaredFrom(predicted, actual, nil)
}

// MeanBaseline returns len(n) copies of the mean of y.
func MeanBaseline(y []float64, n int) []float64 {
	m := stat.Mean(y, nil)
	out := make([]float64, n)
	for i := range out {
		out[i] = m
	}
	return out
}
