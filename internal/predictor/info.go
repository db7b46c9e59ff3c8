package predictor

import (
	"math"
	"strings"
	"time"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/bundle"
)

// TopFeature is one of the most influential coefficients, rounded.
type TopFeature struct {
	Feature string `json:"feature"`
	Impact  int64  `json:"impact"`
}

// ModelInfo is the public projection of the training metadata.
type ModelInfo struct {
	RunID         string             `json:"run_id,omitempty"`
	Target        string             `json:"target"`
	FeaturesUsed  []string           `json:"features_used"`
	NSamples      int                `json:"n_samples"`
	TrainSamples  int                `json:"train_samples"`
	TestSamples   int                `json:"test_samples"`
	TrainMAE      int64              `json:"train_mae"`
	TestMAE       int64              `json:"test_mae"`
	TrainR2       float64            `json:"train_r2"`
	TestR2        float64            `json:"test_r2"`
	Coefficients  map[string]float64 `json:"coefficients"`
	TopFeatures   []TopFeature       `json:"top_features"`
	ReferenceYear int                `json:"reference_year"`
	TrainingDate  time.Time          `json:"training_date"`
	Checksum      string             `json:"checksum"`
}

// ModelInfo summarizes the loaded model. Test metrics are -1 when the model
// was fitted without a held-out split.
func (s *Service) ModelInfo() (*ModelInfo, error) {
	if !s.Loaded() {
		return nil, apperr.ErrModelUnavailable
	}
	if s.meta == nil {
		return nil, apperr.ErrMetadataUnavailable
	}
	m := s.meta
	info := &ModelInfo{
		RunID:         m.RunID,
		Target:        s.bundle.TargetName(),
		FeaturesUsed:  s.bundle.FeatureNames(),
		NSamples:      m.NSamples,
		TrainSamples:  m.TrainSamples,
		TestSamples:   m.TestSamples,
		TrainMAE:      Round(m.MetricsOnTrainingSet.MAE),
		TestMAE:       -1,
		TrainR2:       roundTo(m.MetricsOnTrainingSet.R2, 4),
		TestR2:        -1,
		Coefficients:  make(map[string]float64, len(m.Coefficients)),
		ReferenceYear: s.bundle.Params().ReferenceYear,
		TrainingDate:  m.TrainingDate,
		Checksum:      s.bundle.Checksum(),
	}
	if t := m.MetricsOnTestSet; t != nil {
		info.TestMAE = Round(t.MAE)
		info.TestR2 = roundTo(t.R2, 4)
	}
	for name, c := range m.Coefficients {
		info.Coefficients[strings.TrimPrefix(name, "num__")] = roundTo(c, 2)
	}
	for _, c := range bundle.TopFeatures(m.Coefficients, bundle.TopFeatureCount) {
		info.TopFeatures = append(info.TopFeatures, TopFeature{Feature: c.Feature, Impact: Round(c.Coefficient)})
	}
	return info, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
