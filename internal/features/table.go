package features

import (
	"fmt"
	"slices"

	"github.com/starford/hpml/internal/apperr"
	"github.com/starford/hpml/internal/housing"
)

// Table is a column-oriented numeric table. Every column has Len() values.
type Table struct {
	n     int
	order []string
	cols  map[string][]float64
}

// NewTable returns an empty table of n rows.
func NewTable(n int) *Table {
	return &Table{n: n, cols: make(map[string][]float64)}
}

// FromHouses builds a table with one row per house. A single house and a
// batch containing that house produce identical rows.
func FromHouses(houses []housing.House) *Table {
	t := NewTable(len(houses))
	values := make([]map[string]float64, len(houses))
	for i := range houses {
		values[i] = houses[i].Values()
	}
	for _, name := range housing.RawColumns {
		col := make([]float64, len(houses))
		present := len(houses) > 0
		for i := range values {
			v, ok := values[i][name]
			if !ok {
				present = false
				break
			}
			col[i] = v
		}
		if present {
			t.order = append(t.order, name)
			t.cols[name] = col
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return t.n }

// Columns returns the column names in insertion order.
func (t *Table) Columns() []string { return slices.Clone(t.order) }

// Has reports whether the column exists.
func (t *Table) Has(name string) bool {
	_, ok := t.cols[name]
	return ok
}

// Column returns the values of a column, or nil when absent. The returned
// slice must not be modified.
func (t *Table) Column(name string) []float64 { return t.cols[name] }

// Set adds or replaces a column.
func (t *Table) Set(name string, values []float64) error {
	if len(values) != t.n {
		return fmt.Errorf("features: column %q has %d values, table has %d rows", name, len(values), t.n)
	}
	if _, ok := t.cols[name]; !ok {
		t.order = append(t.order, name)
	}
	t.cols[name] = values
	return nil
}

// Clone returns a shallow copy that can gain columns without touching t.
func (t *Table) Clone() *Table {
	c := &Table{n: t.n, order: slices.Clone(t.order), cols: make(map[string][]float64, len(t.cols))}
	for k, v := range t.cols {
		c.cols[k] = v
	}
	return c
}

// Rows returns a subset of rows by index, in the given order.
func (t *Table) Rows(idx []int) *Table {
	out := NewTable(len(idx))
	for _, name := range t.order {
		src := t.cols[name]
		col := make([]float64, len(idx))
		for i, j := range idx {
			col[i] = src[j]
		}
		out.order = append(out.order, name)
		out.cols[name] = col
	}
	return out
}

// Select returns a table holding exactly names, in that order. Any name
// without a column yields a SchemaError listing every missing name.
func Select(t *Table, names []string) (*Table, error) {
	var missing []string
	for _, name := range names {
		if !t.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &apperr.SchemaError{Missing: missing}
	}
	out := NewTable(t.n)
	for _, name := range names {
		out.order = append(out.order, name)
		out.cols[name] = t.cols[name]
	}
	return out, nil
}

// Matrix returns the table as row-major vectors following column order.
func (t *Table) Matrix() [][]float64 {
	rows := make([][]float64, t.n)
	for i := range rows {
		row := make([]float64, len(t.order))
		for j, name := range t.order {
			row[j] = t.cols[name][i]
		}
		rows[i] = row
	}
	return rows
}
