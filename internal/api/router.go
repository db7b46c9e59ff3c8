package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/hpml/internal/predictor"
	"github.com/starford/hpml/internal/registry"
)

// RouterConfig wires the API router.
type RouterConfig struct {
	Predictor *predictor.Service
	// Runs is optional; without it /training-runs reports 503.
	Runs registry.Store
	// Metrics is optional; without it /metrics is not mounted.
	Metrics *Metrics
	// Events is optional; when set it is served on /events.
	Events      http.Handler
	Logger      *slog.Logger
	AuthEnabled bool
	AuthToken   string
	// RateLimit in requests per second; zero disables limiting.
	RateLimit float64
	RateBurst int
}

// NewRouter creates a chi router with all API routes mounted. Health and
// metrics routes are public; everything else sits behind auth and the rate
// limiter.
func NewRouter(cfg RouterConfig) chi.Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(cfg.Predictor, cfg.Runs, cfg.Metrics, logger)

	r := chi.NewRouter()
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	if cfg.Events != nil {
		r.With(AuthMiddleware(cfg.AuthEnabled, cfg.AuthToken)).Handle("/events", cfg.Events)
	}

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.AuthToken))
		if cfg.RateLimit > 0 {
			burst := cfg.RateBurst
			if burst < 1 {
				burst = 1
			}
			r.Use(NewRateLimiter(cfg.RateLimit, burst, logger).Handler)
		}

		r.Get("/model-info", h.ModelInfo)
		r.Post("/predict", h.Predict)
		r.Post("/predict-batch", h.PredictBatch)
		r.Post("/predict-csv", h.PredictCSV)
		r.Get("/training-runs", h.TrainingRuns)
	})

	return r
}
