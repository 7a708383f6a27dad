package series

import (
	"fmt"
	"slices"
	"sort"
	"time"
)

// Builder accumulates observations from one or more sources and produces
// a sorted, validated Table. Sources must share the same columns.
type Builder struct {
	columns []string
	rows    []Observation
}

// NewBuilder returns a Builder for the given value columns.
func NewBuilder(columns ...string) *Builder {
	return &Builder{columns: columns}
}

// Columns returns the builder's columns.
func (b *Builder) Columns() []string {
	return b.columns
}

// SetColumns sets the columns if none are set yet, otherwise it checks that
// cols equals the existing columns.
func (b *Builder) SetColumns(cols []string) error {
	if len(b.columns) == 0 {
		b.columns = append([]string(nil), cols...)
		return nil
	}
	if !slices.Equal(b.columns, cols) {
		return fmt.Errorf("columns %v do not match %v", cols, b.columns)
	}
	return nil
}

// Add appends an observation.
func (b *Builder) Add(ts time.Time, values ...float64) {
	b.rows = append(b.rows, Observation{Time: ts, Values: values})
}

// Build sorts the rows by time and validates them. Duplicate timestamps,
// including ones coming from different sources, are an error.
func (b *Builder) Build() (*Table, error) {
	rows := make([]Observation, len(b.rows))
	copy(rows, b.rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time.Before(rows[j].Time) })
	return NewTable(b.columns, rows)
}
