// Package features implements the feature engineering shared by training,
// serving and batch evaluation. The derivations live here and nowhere else.
package features

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/housing"
)

// Engineered column names.
const (
	AgeOfHouse           = "age_of_house"
	SizePerBedroom       = "size_per_bedroom"
	BathroomBedroomRatio = "bathroom_bedroom_ratio"
	TotalRooms           = "total_rooms"
	QualityScore         = "quality_score"
	SquareFootageSq      = "square_footage_sq"
	LotSizeSq            = "lot_size_sq"
	IsNewHouse           = "is_new_house"
	LargeHouse           = "large_house"
)

// EngineeredColumns lists derived columns in derivation order.
var EngineeredColumns = []string{
	AgeOfHouse,
	SizePerBedroom,
	BathroomBedroomRatio,
	TotalRooms,
	QualityScore,
	SquareFootageSq,
	LotSizeSq,
	IsNewHouse,
	LargeHouse,
}

// ModelColumns is the default model input: the raw business attributes with
// year_built replaced by age_of_house, followed by the engineered columns.
var ModelColumns = func() []string {
	out := make([]string, 0, len(housing.RawColumns)+len(EngineeredColumns))
	for _, c := range housing.RawColumns {
		if c != housing.YearBuilt {
			out = append(out, c)
		}
	}
	return append(out, EngineeredColumns...)
}()

// QualityProduct is the only quality_score definition: school_rating times
// distance_to_city_center.
const QualityProduct = "product"

// DefaultReferenceYear is the year house age is measured against.
const DefaultReferenceYear = 2025

// NewHouseMaxAge is the largest age_of_house flagged as is_new_house.
const NewHouseMaxAge = 5

// Params are the values fixed at training time that the derivations depend
// on. They are persisted with the model bundle.
type Params struct {
	ReferenceYear       int      `json:"reference_year"`
	MedianSquareFootage *float64 `json:"median_square_footage,omitempty"`
	QualityScore        string   `json:"quality_score"`
}

// DefaultParams returns params with the default reference year and no
// persisted median.
func DefaultParams() Params {
	return Params{ReferenceYear: DefaultReferenceYear, QualityScore: QualityProduct}
}

// Validate checks that the params describe the canonical derivations.
func (p Params) Validate() error {
	if p.ReferenceYear < housing.MinYearBuilt {
		return fmt.Errorf("features: reference year %d before %d", p.ReferenceYear, housing.MinYearBuilt)
	}
	if p.QualityScore != QualityProduct {
		return fmt.Errorf("features: unsupported quality_score definition %q", p.QualityScore)
	}
	if p.MedianSquareFootage != nil && *p.MedianSquareFootage <= 0 {
		return errors.New("features: median square footage must be positive")
	}
	return nil
}

// Engineer derives model features from raw columns.
type Engineer struct {
	params   Params
	required []string
	logger   *slog.Logger
}

// EngineerOption configures an Engineer.
type EngineerOption func(*Engineer)

// WithRequired makes Transform fail with a SchemaError when any of cols is
// absent from the input.
func WithRequired(cols ...string) EngineerOption {
	return func(e *Engineer) { e.required = slices.Clone(cols) }
}

// WithLogger sets the logger used to report the degraded large_house path.
func WithLogger(l *slog.Logger) EngineerOption {
	return func(e *Engineer) { e.logger = l }
}

// NewEngineer returns an Engineer for the given params.
func NewEngineer(p Params, opts ...EngineerOption) *Engineer {
	e := &Engineer{params: p, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Params returns the params the engineer was built with.
func (e *Engineer) Params() Params { return e.params }

// Transform returns a copy of t with every derivable column added. A
// derivation whose inputs are absent is skipped, never defaulted.
func (e *Engineer) Transform(t *Table) (*Table, error) {
	var missing []string
	for _, c := range e.required {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &apperr.SchemaError{Missing: missing}
	}

	out := t.Clone()
	n := t.Len()
	derive := func(name string, inputs []string, fn func(i int, in [][]float64) float64) {
		in := make([][]float64, len(inputs))
		for k, c := range inputs {
			if in[k] = out.Column(c); in[k] == nil {
				return
			}
		}
		col := make([]float64, n)
		for i := range col {
			col[i] = fn(i, in)
		}
		_ = out.Set(name, col)
	}

	refYear := float64(e.params.ReferenceYear)
	derive(AgeOfHouse, []string{housing.YearBuilt}, func(i int, in [][]float64) float64 {
		return refYear - in[0][i]
	})
	derive(SizePerBedroom, []string{housing.SquareFootage, housing.Bedrooms}, func(i int, in [][]float64) float64 {
		return in[0][i] / (in[1][i] + 1)
	})
	derive(BathroomBedroomRatio, []string{housing.Bathrooms, housing.Bedrooms}, func(i int, in [][]float64) float64 {
		return in[0][i] / (in[1][i] + 1)
	})
	derive(TotalRooms, []string{housing.Bedrooms, housing.Bathrooms}, func(i int, in [][]float64) float64 {
		return in[0][i] + in[1][i]
	})
	derive(QualityScore, []string{housing.SchoolRating, housing.DistanceToCityCenter}, func(i int, in [][]float64) float64 {
		return in[0][i] * in[1][i]
	})
	derive(SquareFootageSq, []string{housing.SquareFootage}, func(i int, in [][]float64) float64 {
		return in[0][i] * in[0][i]
	})
	derive(LotSizeSq, []string{housing.LotSize}, func(i int, in [][]float64) float64 {
		return in[0][i] * in[0][i]
	})
	derive(IsNewHouse, []string{AgeOfHouse}, func(i int, in [][]float64) float64 {
		return flag(in[0][i] <= NewHouseMaxAge)
	})

	if sqft := out.Column(housing.SquareFootage); sqft != nil && n > 0 {
		threshold := e.largeHouseThreshold(sqft)
		derive(LargeHouse, []string{housing.SquareFootage}, func(i int, in [][]float64) float64 {
			return flag(in[0][i] > threshold)
		})
	}
	return out, nil
}

// Features runs Transform and then selects columns in the given order.
func (e *Engineer) Features(t *Table, names []string) (*Table, error) {
	derived, err := e.Transform(t)
	if err != nil {
		return nil, err
	}
	return Select(derived, names)
}

func (e *Engineer) largeHouseThreshold(sqft []float64) float64 {
	if e.params.MedianSquareFootage != nil {
		return *e.params.MedianSquareFootage
	}
	m := Median(sqft)
	e.logger.Warn("large_house threshold not persisted, using batch median",
		slog.Float64("batch_median", m),
		slog.Int("rows", len(sqft)))
	return m
}

// Median returns the middle value of xs, averaging the two middle values
// for an even count. xs is not modified.
func Median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := slices.Clone(xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
