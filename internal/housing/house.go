// Package housing defines the raw house record accepted by every prediction
// path and its range validation.
package housing

import (
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/hpml/internal/apperr"
)

// Raw column names.
const (
	SquareFootage        = "square_footage"
	Bedrooms             = "bedrooms"
	Bathrooms            = "bathrooms"
	YearBuilt            = "year_built"
	LotSize              = "lot_size"
	DistanceToCityCenter = "distance_to_city_center"
	SchoolRating         = "school_rating"
)

// MinYearBuilt is the earliest accepted construction year.
const MinYearBuilt = 1900

// RawColumns lists the business attributes of a house in canonical order.
var RawColumns = []string{
	SquareFootage,
	Bedrooms,
	Bathrooms,
	YearBuilt,
	LotSize,
	DistanceToCityCenter,
	SchoolRating,
}

// House is one raw record. Pointer fields distinguish an absent attribute
// from a legitimate zero (distance_to_city_center and school_rating may be 0).
type House struct {
	SquareFootage        *float64 `json:"square_footage"`
	Bedrooms             *int     `json:"bedrooms"`
	Bathrooms            *float64 `json:"bathrooms"`
	YearBuilt            *int     `json:"year_built"`
	LotSize              *float64 `json:"lot_size"`
	DistanceToCityCenter *float64 `json:"distance_to_city_center"`
	SchoolRating         *float64 `json:"school_rating"`
}

// Validate checks presence and declared ranges. maxYear bounds year_built
// from above and must be the reference year the model was trained with.
func (h *House) Validate(maxYear int) error {
	err := validation.ValidateStruct(h,
		validation.Field(&h.SquareFootage, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&h.Bedrooms, validation.Required, validation.Min(1), validation.Max(10)),
		validation.Field(&h.Bathrooms, validation.Required, validation.Min(1.0), validation.Max(10.0)),
		validation.Field(&h.YearBuilt, validation.Required, validation.Min(MinYearBuilt), validation.Max(maxYear)),
		validation.Field(&h.LotSize, validation.Required, validation.Min(0.0).Exclusive()),
		validation.Field(&h.DistanceToCityCenter, validation.NotNil, validation.Min(0.0)),
		validation.Field(&h.SchoolRating, validation.NotNil, validation.Min(0.0), validation.Max(10.0)),
	)
	if err == nil {
		return nil
	}
	return toValidationError(err, 0)
}

// Values returns the record as a column → value map. Absent attributes are
// omitted.
func (h *House) Values() map[string]float64 {
	out := make(map[string]float64, len(RawColumns))
	if h.SquareFootage != nil {
		out[SquareFootage] = *h.SquareFootage
	}
	if h.Bedrooms != nil {
		out[Bedrooms] = float64(*h.Bedrooms)
	}
	if h.Bathrooms != nil {
		out[Bathrooms] = *h.Bathrooms
	}
	if h.YearBuilt != nil {
		out[YearBuilt] = float64(*h.YearBuilt)
	}
	if h.LotSize != nil {
		out[LotSize] = *h.LotSize
	}
	if h.DistanceToCityCenter != nil {
		out[DistanceToCityCenter] = *h.DistanceToCityCenter
	}
	if h.SchoolRating != nil {
		out[SchoolRating] = *h.SchoolRating
	}
	return out
}

// FromValues builds a House from parsed numeric columns, as read from a CSV
// row. Integer attributes must hold integral values. row is 1-based and is
// only used for error reporting.
func FromValues(values map[string]float64, row int) (House, error) {
	var h House
	f := func(name string) *float64 {
		v, ok := values[name]
		if !ok {
			return nil
		}
		return &v
	}
	i := func(name string) (*int, error) {
		v, ok := values[name]
		if !ok {
			return nil, nil
		}
		if v != math.Trunc(v) || math.IsInf(v, 0) {
			return nil, &apperr.ValidationError{Row: row, Field: name, Msg: fmt.Sprintf("must be an integer, got %v", v)}
		}
		n := int(v)
		return &n, nil
	}

	var err error
	h.SquareFootage = f(SquareFootage)
	if h.Bedrooms, err = i(Bedrooms); err != nil {
		return House{}, err
	}
	h.Bathrooms = f(Bathrooms)
	if h.YearBuilt, err = i(YearBuilt); err != nil {
		return House{}, err
	}
	h.LotSize = f(LotSize)
	h.DistanceToCityCenter = f(DistanceToCityCenter)
	h.SchoolRating = f(SchoolRating)
	return h, nil
}

// ValidateRow is Validate with the row number attached to the error.
func (h *House) ValidateRow(maxYear, row int) error {
	err := h.Validate(maxYear)
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		ve.Row = row
	}
	return err
}

func toValidationError(err error, row int) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &apperr.ValidationError{Row: row, Msg: err.Error()}
	}
	if len(errs) == 1 {
		for field, fe := range errs {
			return &apperr.ValidationError{Row: row, Field: field, Msg: fe.Error()}
		}
	}
	return &apperr.ValidationError{Row: row, Msg: errs.Error()}
}
