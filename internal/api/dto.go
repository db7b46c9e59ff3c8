package api

import (
	"github.com/starford/hpml/internal/predictor"
	"github.com/starford/hpml/internal/registry"
)

// PredictionResponse is a single rounded price.
type PredictionResponse struct {
	PredictedPrice int64 `json:"predicted_price" example:"412000"`
}

// BatchPredictionResponse holds one prediction per input record, in order.
type BatchPredictionResponse struct {
	Predictions []PredictionResponse `json:"predictions"`
}

// HealthResponse is the liveness report.
type HealthResponse = predictor.Health

// ModelInfoResponse is the public projection of the training metadata.
type ModelInfoResponse = predictor.ModelInfo

// TrainingRunsResponse lists recorded training runs, newest first.
type TrainingRunsResponse struct {
	Runs []registry.Run `json:"runs"`
}

type statusResponse struct {
	Status string `json:"status"`
}

func predictionsResponse(prices []int64) BatchPredictionResponse {
	out := BatchPredictionResponse{Predictions: make([]PredictionResponse, len(prices))}
	for i, p := range prices {
		out.Predictions[i] = PredictionResponse{PredictedPrice: p}
	}
	return out
}
