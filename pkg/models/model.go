// Package models implements seasonal-naive forecasting by calendar analogy.
//
// For every target timestamp the analog model picks the historical days
// that share the target's month and day (and, by default, its weekday
// group), keeps the N nearest in elapsed days, and averages their
// observations at the target's exact time-of-day.
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/HatiCode/analogcast/pkg/calendar"
	"github.com/HatiCode/analogcast/pkg/series"
)

// Model is a forecasting model trained on an observation table.
type Model interface {
	// Name returns the model identifier.
	Name() string

	// Train prepares the model for history. The table must not be modified
	// afterwards.
	Train(ctx context.Context, history *series.Table) error

	// Predict forecasts every step of period.
	Predict(ctx context.Context, period Period) (Forecast, error)
}

// Prediction is the forecast for one target timestamp.
type Prediction struct {
	Time time.Time
	// Values holds one value per column. Nil when Missing.
	Values []float64
	// Comparisons are the selected comparison days, closest first.
	Comparisons []calendar.Date
	// Matched counts comparison days that had an observation at Time's
	// time-of-day.
	Matched int
	// Missing is set when no comparison data was available. It is distinct
	// from a computed zero.
	Missing bool
}

type predictionJSON struct {
	Time        time.Time       `json:"time"`
	Values      []*float64      `json:"values"`
	Comparisons []calendar.Date `json:"comparisons,omitempty"`
	Matched     int             `json:"matched"`
	Missing     bool            `json:"missing"`
}

// MarshalJSON encodes NaN values as null.
func (p Prediction) MarshalJSON() ([]byte, error) {
	w := predictionJSON{
		Time:        p.Time,
		Comparisons: p.Comparisons,
		Matched:     p.Matched,
		Missing:     p.Missing,
	}
	if p.Values != nil {
		w.Values = make([]*float64, len(p.Values))
		for i, v := range p.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			v := v
			w.Values[i] = &v
		}
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes null values back to NaN.
func (p *Prediction) UnmarshalJSON(data []byte) error {
	var w predictionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode prediction: %w", err)
	}
	*p = Prediction{
		Time:        w.Time,
		Comparisons: w.Comparisons,
		Matched:     w.Matched,
		Missing:     w.Missing,
	}
	if w.Values != nil {
		p.Values = make([]float64, len(w.Values))
		for i, v := range w.Values {
			if v == nil {
				p.Values[i] = math.NaN()
				continue
			}
			p.Values[i] = *v
		}
	}
	return nil
}

// Forecast is an ordered sequence of predictions, one per period step.
type Forecast struct {
	Model       string       `json:"model"`
	Columns     []string     `json:"columns"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	StepSeconds int          `json:"stepSeconds"`
	Predictions []Prediction `json:"predictions"`
	// MissingSteps counts predictions with no comparison data.
	MissingSteps int `json:"missingSteps"`
}

// Column returns the predicted series for column i, NaN at missing steps.
func (f Forecast) Column(i int) []float64 {
	out := make([]float64, len(f.Predictions))
	for j, p := range f.Predictions {
		if p.Missing || i < 0 || i >= len(p.Values) {
			out[j] = math.NaN()
			continue
		}
		out[j] = p.Values[i]
	}
	return out
}
