// Package apperr defines the error taxonomy shared by the training, serving
// and evaluation paths.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrModelUnavailable    = errors.New("model not loaded")
	ErrMetadataUnavailable = errors.New("model metadata not loaded")
	ErrEmptyInput          = errors.New("empty input")
	ErrUnsupportedFile     = errors.New("unsupported file type")
	ErrUnreadableInput     = errors.New("unreadable input")
)

// ValidationError reports a raw input value that is absent, of the wrong
// type, or outside its declared range. Row is 1-based; zero means the error
// is not tied to a table row.
type ValidationError struct {
	Row   int
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("validation failed")
	if e.Row > 0 {
		fmt.Fprintf(&b, " at row %d", e.Row)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": %s", e.Field)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	return b.String()
}

// SchemaError reports a feature table whose columns do not match what the
// model bundle expects.
type SchemaError struct {
	Missing    []string
	Unexpected []string
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected columns: "+strings.Join(e.Unexpected, ", "))
	}
	if len(parts) == 0 {
		return "schema mismatch"
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// IsUnavailable reports whether err means the model or its metadata is not
// loaded.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrModelUnavailable) || errors.Is(err, ErrMetadataUnavailable)
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var ve *ValidationError
	var se *SchemaError
	switch {
	case errors.As(err, &ve), errors.As(err, &se):
		return true
	case errors.Is(err, ErrEmptyInput), errors.Is(err, ErrUnsupportedFile), errors.Is(err, ErrUnreadableInput):
		return true
	}
	return false
}
