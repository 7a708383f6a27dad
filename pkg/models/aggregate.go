package models

import (
	"math"
	"time"

	"github.com/HatiCode/analogcast/pkg/calendar"
	"github.com/HatiCode/analogcast/pkg/series"
)

// Aggregation is the column-wise mean of the comparison days' observations
// at one time-of-day.
type Aggregation struct {
	// Values holds one mean per table column, nil when Matched is 0.
	// A column whose matched cells are all NaN averages to NaN.
	Values []float64
	// Matched is the number of comparison days with an observation at the
	// requested time-of-day.
	Matched int
}

// Missing reports whether no comparison day produced an observation.
func (a Aggregation) Missing() bool {
	return a.Matched == 0
}

// Aggregate averages, per column, the observations of each comparison date
// whose time-of-day equals clock exactly. NaN cells are skipped.
func Aggregate(dates []calendar.Date, clock time.Duration, table *series.Table) Aggregation {
	if table == nil || len(dates) == 0 {
		return Aggregation{}
	}

	width := len(table.Columns())
	sums := make([]float64, width)
	counts := make([]int, width)
	matched := 0

	for _, d := range dates {
		obs, ok := table.Lookup(d, clock)
		if !ok {
			continue
		}
		matched++
		for i, v := range obs.Values {
			if math.IsNaN(v) {
				continue
			}
			sums[i] += v
			counts[i]++
		}
	}

	if matched == 0 {
		return Aggregation{}
	}

	values := make([]float64, width)
	for i := range values {
		if counts[i] == 0 {
			values[i] = math.NaN()
			continue
		}
		values[i] = sums[i] / float64(counts[i])
	}
	return Aggregation{Values: values, Matched: matched}
}
