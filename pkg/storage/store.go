// Package storage keeps the latest forecast per series so it can be served
// over HTTP or shared between forecaster instances.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/HatiCode/analogcast/pkg/models"
)

// ErrEmptySeries is returned when a snapshot or lookup has no series name.
var ErrEmptySeries = errors.New("series name cannot be empty")

// Snapshot is one forecasting run for a named series.
type Snapshot struct {
	Series      string          `json:"series"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Forecast    models.Forecast `json:"forecast"`
}

type Store interface {
	Put(ctx context.Context, snapshot Snapshot) error
	GetLatest(ctx context.Context, series string) (Snapshot, bool, error)
}

// ValidateSeriesName accepts alphanumerics, hyphens, underscores and dots.
func ValidateSeriesName(name string) error {
	if name == "" {
		return ErrEmptySeries
	}
	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-' || c == '_' || c == '.') {
			return fmt.Errorf("invalid series name %q: only alphanumeric, hyphens, underscores, and dots allowed", name)
		}
	}
	return nil
}
