// Package adapters loads historical observations from external sources and
// normalizes them into a [series.Table] for the forecasting models.
//
// Each adapter implements the Adapter interface. Available adapters:
//   - CSVAdapter: one or more CSV files with a timestamp column
//   - PrometheusAdapter: range queries against the Prometheus HTTP API
//     (also used for VictoriaMetrics, which serves the same API)
//   - HTTPAdapter: any REST API with JSON responses, via gjson paths
//
// Adapters only load and shape data. Calendar classification and
// forecasting live in the packages above them.
package adapters

import (
	"context"
	"time"

	"github.com/HatiCode/analogcast/pkg/series"
)

// Range bounds the history an adapter loads. A zero Start or End means
// unbounded on that side, where the source allows it.
type Range struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t is inside r, bounds inclusive.
func (r Range) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// Adapter is the interface that all data sources implement.
//
// Load is synchronous and should respect context cancellation and
// deadlines. The returned table is sorted with unique timestamps.
type Adapter interface {
	// Load fetches the observations inside r.
	Load(ctx context.Context, r Range) (*series.Table, error)

	// Name returns a short, unique identifier for the adapter.
	// Example: "csv", "prometheus", "http".
	Name() string
}

// AlignTimestamp truncates ts to a multiple of stepSec.
func AlignTimestamp(ts time.Time, stepSec int) time.Time {
	return ts.Truncate(time.Duration(stepSec) * time.Second)
}
