package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestSchemaErrorNamesColumns(t *testing.T) {
	err := &SchemaError{Missing: []string{"lot_size_sq", "age_of_house"}}
	want := "schema mismatch: missing columns: lot_size_sq, age_of_house"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Row: 3, Field: "bedrooms", Msg: "must be no greater than 10"}
	want := "validation failed at row 3: bedrooms: must be no greater than 10"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestIsClientError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("wrap: %w", &SchemaError{Missing: []string{"x"}}), true},
		{&ValidationError{Field: "bedrooms"}, true},
		{fmt.Errorf("csv: %w", ErrEmptyInput), true},
		{ErrUnsupportedFile, true},
		{ErrModelUnavailable, false},
		{errors.New("disk on fire"), false},
	}
	for _, c := range cases {
		if got := IsClientError(c.err); got != c.want {
			t.Errorf("IsClientError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestIsUnavailable(t *testing.T) {
	if !IsUnavailable(fmt.Errorf("predict: %w", ErrModelUnavailable)) {
		t.Error("wrapped ErrModelUnavailable not detected")
	}
	if !IsUnavailable(ErrMetadataUnavailable) {
		t.Error("ErrMetadataUnavailable not detected")
	}
	if IsUnavailable(ErrEmptyInput) {
		t.Error("ErrEmptyInput reported as unavailable")
	}
}
