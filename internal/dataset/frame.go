// Package dataset reads and writes tabular house data as CSV or XLSX.
package dataset

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/features"
)

// IDColumn is the row identifier added to prediction output when absent.
const IDColumn = "id"

// PredictionColumn is appended to prediction output.
const PredictionColumn = "predicted_price"

// Frame is a string table: a header and one record per data row. Every
// record has len(Header) cells.
type Frame struct {
	Header  []string
	Records [][]string
}

// Len returns the number of data rows.
func (f *Frame) Len() int { return len(f.Records) }

// Index returns the position of col in the header, or -1.
func (f *Frame) Index(col string) int { return slices.Index(f.Header, col) }

// Has reports whether col is in the header.
func (f *Frame) Has(col string) bool { return f.Index(col) >= 0 }

// Float parses column col. An empty or non-numeric cell is a
// ValidationError carrying its 1-based data row.
func (f *Frame) Float(col string) ([]float64, error) {
	j := f.Index(col)
	if j < 0 {
		return nil, &apperr.SchemaError{Missing: []string{col}}
	}
	out := make([]float64, len(f.Records))
	for i, rec := range f.Records {
		v, err := parseCell(rec[j])
		if err != nil {
			return nil, &apperr.ValidationError{Row: i + 1, Field: col, Msg: err.Error()}
		}
		out[i] = v
	}
	return out, nil
}

// Table parses the named columns into a numeric table. Columns absent from
// the header are skipped; callers decide which absences are errors.
func (f *Frame) Table(cols []string) (*features.Table, error) {
	t := features.NewTable(f.Len())
	for _, c := range cols {
		if !f.Has(c) {
			continue
		}
		vals, err := f.Float(c)
		if err != nil {
			return nil, err
		}
		if err := t.Set(c, vals); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// WithID returns a frame whose first column is id = 1..n, or f itself when
// it already has an id column.
func (f *Frame) WithID() *Frame {
	if f.Has(IDColumn) {
		return f
	}
	out := &Frame{
		Header:  append([]string{IDColumn}, f.Header...),
		Records: make([][]string, len(f.Records)),
	}
	for i, rec := range f.Records {
		out.Records[i] = append([]string{strconv.Itoa(i + 1)}, rec...)
	}
	return out
}

// WithColumn returns a copy of f with col appended. values must have one
// entry per record.
func (f *Frame) WithColumn(col string, values []string) (*Frame, error) {
	if len(values) != len(f.Records) {
		return nil, fmt.Errorf("dataset: %d values for %d records", len(values), len(f.Records))
	}
	out := &Frame{
		Header:  append(slices.Clone(f.Header), col),
		Records: make([][]string, len(f.Records)),
	}
	for i, rec := range f.Records {
		out.Records[i] = append(slices.Clone(rec), values[i])
	}
	return out, nil
}

// Prices formats rounded predictions as integer strings.
func Prices(preds []int64) []string {
	out := make([]string, len(preds))
	for i, p := range preds {
		out[i] = strconv.FormatInt(p, 10)
	}
	return out
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	return v, nil
}
