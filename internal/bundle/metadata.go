package bundle

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/starford/hpml/internal/regression"
	"github.com/starford/hpml/internal/storage"
)

// TopFeatureCount is how many coefficients are reported as most important.
const TopFeatureCount = 5

// Coefficient pairs a feature with its standardized-scale coefficient.
type Coefficient struct {
	Feature     string  `json:"feature"`
	Coefficient float64 `json:"coefficient"`
}

// Metadata is the human-readable record written next to the bundle. It is
// informational: serving reads it for /model-info and never for prediction.
type Metadata struct {
	RunID                       string              `json:"run_id,omitempty"`
	Target                      string              `json:"target"`
	NSamples                    int                 `json:"n_samples"`
	TrainSamples                int                 `json:"train_samples"`
	TestSamples                 int                 `json:"test_samples"`
	FeaturesUsed                []string            `json:"features_used"`
	TrainMeanPrice              float64             `json:"train_mean_price"`
	BaselineNaiveMAE            float64             `json:"baseline_naive_mae"`
	MetricsOnTrainingSet        regression.Metrics  `json:"metrics_on_training_set"`
	MetricsOnTestSet            *regression.Metrics `json:"metrics_on_test_set,omitempty"`
	ImprovementOverBaselinePct  float64             `json:"improvement_over_baseline_pct"`
	Model                       string              `json:"model"`
	Coefficients                map[string]float64  `json:"coefficients"`
	Intercept                   float64             `json:"intercept"`
	TrainingDate                time.Time           `json:"training_date"`
	ReferenceYear               int                 `json:"reference_year"`
	TrainingMedianSquareFootage float64             `json:"training_median_square_footage"`
	Top5ImportantFeatures       []Coefficient       `json:"top_5_important_features"`
}

// LoadMetadata reads the metadata sidecar at path.
func LoadMetadata(path string) (*Metadata, error) {
	a, err := storage.Read(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: load metadata: %w", err)
	}
	var m Metadata
	if err := json.Unmarshal(a.Data, &m); err != nil {
		return nil, fmt.Errorf("bundle: decode metadata %s: %w", path, err)
	}
	return &m, nil
}

// SaveMetadata writes m atomically as indented JSON.
func SaveMetadata(path string, m *Metadata) error {
	data, err := EncodeMetadata(m)
	if err != nil {
		return err
	}
	return storage.Write(path, data)
}

// EncodeMetadata returns the bytes SaveMetadata would write.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("bundle: encode metadata: %w", err)
	}
	return data, nil
}

// TopFeatures returns up to n coefficients ordered by absolute value,
// largest first. Ties are broken by feature name. A legacy "num__" prefix is
// stripped from names.
func TopFeatures(coefs map[string]float64, n int) []Coefficient {
	out := make([]Coefficient, 0, len(coefs))
	for name, c := range coefs {
		out = append(out, Coefficient{Feature: strings.TrimPrefix(name, "num__"), Coefficient: c})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := math.Abs(out[i].Coefficient), math.Abs(out[j].Coefficient)
		if ai != aj {
			return ai > aj
		}
		return out[i].Feature < out[j].Feature
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
