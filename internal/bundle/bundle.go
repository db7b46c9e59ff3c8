// Package bundle persists and loads the trained model artifact and its
// metadata sidecar.
package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/features"
	"github.com/starford/hpml/internal/housing"
	"github.com/starford/hpml/internal/regression"
	"github.com/starford/hpml/internal/storage"
)

// FormatVersion is the bundle layout written by Save.
const FormatVersion = 1

// Bundle is the persisted model: the fitted pipeline, the ordered feature
// names it expects, the target it predicts and the feature params fixed at
// training time. A loaded bundle is never mutated.
type Bundle struct {
	FormatVersion int                  `json:"format_version"`
	Pipeline      *regression.Pipeline `json:"pipeline"`
	FeaturesUsed  []string             `json:"features_used"`
	Target        string               `json:"target"`
	FeatureParams features.Params      `json:"feature_params"`
	CreatedAt     time.Time            `json:"created_at"`

	checksum string
}

// New assembles a bundle for a freshly fitted pipeline.
func New(p *regression.Pipeline, featureNames []string, target string, params features.Params) *Bundle {
	return &Bundle{
		FormatVersion: FormatVersion,
		Pipeline:      p,
		FeaturesUsed:  slices.Clone(featureNames),
		Target:        target,
		FeatureParams: params,
		CreatedAt:     time.Now().UTC(),
	}
}

// Load reads and validates the bundle at path. Any inconsistency is an
// error; a bundle is never partially usable.
func Load(path string) (*Bundle, error) {
	a, err := storage.Read(path)
	if err != nil {
		return nil, fmt.Errorf("bundle: load: %w", err)
	}
	var b Bundle
	if err := json.Unmarshal(a.Data, &b); err != nil {
		return nil, fmt.Errorf("bundle: decode %s: %w", path, err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bundle: %s: %w", path, err)
	}
	b.checksum = a.Checksum
	return &b, nil
}

// Save writes the bundle atomically.
func (b *Bundle) Save(path string) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	return storage.Write(path, data)
}

// Encode validates the bundle and returns the bytes Save would write.
func (b *Bundle) Encode() ([]byte, error) {
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("bundle: save: %w", err)
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("bundle: encode: %w", err)
	}
	return data, nil
}

// Validate checks that the bundle is internally consistent and that every
// feature it names can be produced by the feature engineer.
func (b *Bundle) Validate() error {
	if b.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported format version %d", b.FormatVersion)
	}
	if b.Target == "" {
		return errors.New("missing target name")
	}
	if err := b.FeatureParams.Validate(); err != nil {
		return err
	}
	if err := b.Pipeline.Validate(); err != nil {
		return err
	}
	if len(b.FeaturesUsed) != b.Pipeline.NumFeatures() {
		return fmt.Errorf("%d feature names for %d coefficients", len(b.FeaturesUsed), b.Pipeline.NumFeatures())
	}
	seen := make(map[string]bool, len(b.FeaturesUsed))
	var unknown []string
	for _, name := range b.FeaturesUsed {
		if seen[name] {
			return fmt.Errorf("duplicate feature %q", name)
		}
		seen[name] = true
		if !Derivable(name) {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		return &apperr.SchemaError{Unexpected: unknown}
	}
	return nil
}

// Derivable reports whether name is a raw column or an engineered one.
func Derivable(name string) bool {
	return slices.Contains(housing.RawColumns, name) || slices.Contains(features.EngineeredColumns, name)
}

// Predict maps ordered feature rows to raw, unrounded prices.
func (b *Bundle) Predict(rows [][]float64) ([]float64, error) {
	return b.Pipeline.Predict(rows)
}

// FeatureNames returns the ordered model input columns.
func (b *Bundle) FeatureNames() []string { return slices.Clone(b.FeaturesUsed) }

// TargetName returns the predicted column.
func (b *Bundle) TargetName() string { return b.Target }

// Params returns the feature params fixed at training time.
func (b *Bundle) Params() features.Params { return b.FeatureParams }

// Checksum returns the SHA-256 of the file the bundle was loaded from, or
// "" for an unsaved bundle.
func (b *Bundle) Checksum() string { return b.checksum }

// Coefficients maps each feature to its coefficient on the standardized
// scale.
func (b *Bundle) Coefficients() map[string]float64 {
	out := make(map[string]float64, len(b.FeaturesUsed))
	for i, name := range b.FeaturesUsed {
		out[name] = b.Pipeline.Model.Coef[i]
	}
	return out
}

// withMedian returns a copy of b whose params carry the given large_house
// threshold.
func (b *Bundle) withMedian(m float64) *Bundle {
	c := *b
	c.FeaturesUsed = slices.Clone(b.FeaturesUsed)
	c.FeatureParams.MedianSquareFootage = &m
	return &c
}
