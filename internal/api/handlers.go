package api

import (
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/dataset"
	"github.com/starford/hpml/internal/housing"
	"github.com/starford/hpml/internal/predictor"
	"github.com/starford/hpml/internal/registry"
)

const maxUploadBytes = 50 << 20 // 50 MB

// Handler holds API route handlers.
type Handler struct {
	svc     *predictor.Service
	runs    registry.Store
	metrics *Metrics
	logger  *slog.Logger
}

// NewHandler creates a new Handler. runs and metrics may be nil.
func NewHandler(svc *predictor.Service, runs registry.Store, metrics *Metrics, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, runs: runs, metrics: metrics, logger: logger}
}

// Health handles GET /health.
//
//	@Summary	Service and model status
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	HealthResponse
//	@Router		/health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Health())
}

// Live handles GET /health/live.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Ready handles GET /health/ready. It fails while no model is loaded.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if !h.svc.Loaded() {
		writeJSON(w, http.StatusServiceUnavailable, statusResponse{Status: "model not loaded"})
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// ModelInfo handles GET /model-info.
//
//	@Summary	Training metadata of the loaded model
//	@Tags		model
//	@Produce	json
//	@Success	200	{object}	ModelInfoResponse
//	@Failure	503	{object}	errResponse
//	@Router		/model-info [get]
func (h *Handler) ModelInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.svc.ModelInfo()
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Predict handles POST /predict.
//
//	@Summary	Price one house
//	@Tags		inference
//	@Accept		json
//	@Produce	json
//	@Param		body	body		housing.House	true	"House attributes"
//	@Success	200		{object}	PredictionResponse
//	@Failure	400		{object}	errResponse
//	@Failure	503		{object}	errResponse
//	@Router		/predict [post]
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Loaded() {
		writeError(w, r, h.logger, apperr.ErrModelUnavailable)
		return
	}
	var house housing.House
	if err := decodeJSON(w, r, &house); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	price, err := h.svc.PredictOne(house)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.metrics.ObservePredictions("predict", 1)
	writeJSON(w, http.StatusOK, PredictionResponse{PredictedPrice: price})
}

// PredictBatch handles POST /predict-batch.
//
//	@Summary	Price a list of houses
//	@Tags		inference
//	@Accept		json
//	@Produce	json
//	@Param		body	body		[]housing.House	true	"Houses"
//	@Success	200		{object}	BatchPredictionResponse
//	@Failure	400		{object}	errResponse
//	@Failure	503		{object}	errResponse
//	@Router		/predict-batch [post]
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Loaded() {
		writeError(w, r, h.logger, apperr.ErrModelUnavailable)
		return
	}
	var houses []housing.House
	if err := decodeJSON(w, r, &houses); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	prices, err := h.svc.PredictBatch(houses)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.metrics.ObservePredictions("predict-batch", len(prices))
	writeJSON(w, http.StatusOK, predictionsResponse(prices))
}

// PredictCSV handles POST /predict-csv (multipart/form-data, field "file").
// The response is the uploaded table with id ensured and predicted_price
// appended, as a CSV attachment.
//
//	@Summary	Price every row of a CSV upload
//	@Tags		inference
//	@Accept		mpfd
//	@Produce	text/csv
//	@Param		file	formData	file	true	"CSV file"
//	@Success	200
//	@Failure	400	{object}	errResponse
//	@Failure	503	{object}	errResponse
//	@Router		/predict-csv [post]
func (h *Handler) PredictCSV(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Loaded() {
		writeError(w, r, h.logger, apperr.ErrModelUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	name := filepath.Base(header.Filename)
	if !strings.EqualFold(filepath.Ext(name), ".csv") {
		writeError(w, r, h.logger, fmt.Errorf("%w: only CSV files are supported", apperr.ErrUnsupportedFile))
		return
	}

	frame, err := dataset.ReadCSV(file)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	res, err := h.svc.PredictFrame(frame)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	h.metrics.ObservePredictions("predict-csv", len(res.Raw))

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition",
		mime.FormatMediaType("attachment", map[string]string{"filename": resultFilename(name)}))
	w.WriteHeader(http.StatusOK)
	if err := dataset.WriteCSV(w, res.Frame); err != nil {
		h.logger.Error("write csv response failed", slog.String("error", err.Error()))
	}
}

// TrainingRuns handles GET /training-runs.
//
//	@Summary	Recently recorded training runs
//	@Tags		model
//	@Produce	json
//	@Param		limit	query		int	false	"Maximum runs"
//	@Success	200		{object}	TrainingRunsResponse
//	@Failure	503		{object}	errResponse
//	@Router		/training-runs [get]
func (h *Handler) TrainingRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("training-run registry not configured"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.runs.List(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if runs == nil {
		runs = []registry.Run{}
	}
	writeJSON(w, http.StatusOK, TrainingRunsResponse{Runs: runs})
}

// resultFilename derives the download name from everything before the
// first dot of the upload name.
func resultFilename(upload string) string {
	stem, _, _ := strings.Cut(upload, ".")
	if stem == "" {
		stem = "predictions"
	}
	return stem + "_with_prediction.csv"
}
