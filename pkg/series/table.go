// Package series holds the time-indexed observation table consumed by the
// forecasting models. A Table is built once and is read-only afterwards,
// so it may be shared between goroutines without locking.
package series

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/HatiCode/analogcast/pkg/calendar"
)

var (
	ErrNoColumns          = errors.New("table has no value columns")
	ErrColumnMismatch     = errors.New("row value count does not match columns")
	ErrUnsorted           = errors.New("timestamps are not sorted ascending")
	ErrDuplicateTimestamp = errors.New("duplicate timestamp")
)

// Observation is one timestamped row of values, one per table column.
// A NaN value marks a missing cell.
type Observation struct {
	Time   time.Time
	Values []float64
}

// Table is an ordered collection of observations with unique, strictly
// increasing timestamps.
type Table struct {
	columns []string
	rows    []Observation
	dates   []calendar.Date
	index   map[calendar.Date]map[time.Duration]int
}

// NewTable validates rows and builds the date / time-of-day index.
// rows must already be sorted; use [Builder] to merge unsorted sources.
func NewTable(columns []string, rows []Observation) (*Table, error) {
	if len(columns) == 0 {
		return nil, ErrNoColumns
	}

	t := &Table{
		columns: append([]string(nil), columns...),
		rows:    rows,
		index:   make(map[calendar.Date]map[time.Duration]int),
	}

	for i, row := range rows {
		if len(row.Values) != len(columns) {
			return nil, fmt.Errorf("row %d (%s): %w: got %d values, want %d",
				i, row.Time.Format(time.RFC3339), ErrColumnMismatch, len(row.Values), len(columns))
		}
		if i > 0 {
			prev := rows[i-1].Time
			if row.Time.Equal(prev) {
				return nil, fmt.Errorf("row %d: %w: %s", i, ErrDuplicateTimestamp, row.Time.Format(time.RFC3339))
			}
			if row.Time.Before(prev) {
				return nil, fmt.Errorf("row %d: %w: %s after %s", i, ErrUnsorted,
					row.Time.Format(time.RFC3339), prev.Format(time.RFC3339))
			}
		}

		d := calendar.DateOf(row.Time)
		byClock, ok := t.index[d]
		if !ok {
			byClock = make(map[time.Duration]int)
			t.index[d] = byClock
			t.dates = append(t.dates, d)
		}
		byClock[calendar.Clock(row.Time)] = i
	}

	// Mixed locations can make dates appear out of order even when
	// instants are sorted.
	sort.SliceStable(t.dates, func(i, j int) bool { return t.dates[i].Before(t.dates[j]) })

	return t, nil
}

// Columns returns the value column names.
func (t *Table) Columns() []string {
	return append([]string(nil), t.columns...)
}

// Len returns the number of observations.
func (t *Table) Len() int {
	return len(t.rows)
}

// Row returns the i-th observation.
func (t *Table) Row(i int) Observation {
	return t.rows[i]
}

// Dates returns the distinct calendar dates present, ascending.
func (t *Table) Dates() []calendar.Date {
	return append([]calendar.Date(nil), t.dates...)
}

// Lookup returns the observation on date d whose time-of-day is exactly clock.
func (t *Table) Lookup(d calendar.Date, clock time.Duration) (Observation, bool) {
	byClock, ok := t.index[d]
	if !ok {
		return Observation{}, false
	}
	i, ok := byClock[clock]
	if !ok {
		return Observation{}, false
	}
	return t.rows[i], true
}

// First and Last return the earliest and latest timestamps. Both are zero
// for an empty table.
func (t *Table) First() time.Time {
	if len(t.rows) == 0 {
		return time.Time{}
	}
	return t.rows[0].Time
}

func (t *Table) Last() time.Time {
	if len(t.rows) == 0 {
		return time.Time{}
	}
	return t.rows[len(t.rows)-1].Time
}

// Resolution returns the smallest gap between consecutive observations,
// or 0 when the table has fewer than two rows.
func (t *Table) Resolution() time.Duration {
	var res time.Duration
	for i := 1; i < len(t.rows); i++ {
		gap := t.rows[i].Time.Sub(t.rows[i-1].Time)
		if res == 0 || gap < res {
			res = gap
		}
	}
	return res
}
