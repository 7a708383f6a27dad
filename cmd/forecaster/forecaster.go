// Package main implements the forecast run orchestration.
//
// This file contains the Forecaster type which drives one forecast run:
//
//	load → checkResolution → train → predict → storeSnapshot
//
// Each run loads the history through the adapter, indexes it in the model,
// forecasts every step of the target period and stores the resulting
// snapshot for the HTTP API. Stages are timed with Prometheus metrics and
// failures are counted by component.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/HatiCode/analogcast/cmd/forecaster/metrics"
	"github.com/HatiCode/analogcast/pkg/adapters"
	"github.com/HatiCode/analogcast/pkg/models"
	"github.com/HatiCode/analogcast/pkg/series"
	"github.com/HatiCode/analogcast/pkg/storage"
)

var (
	// ErrEmptyHistory is returned when the adapter loads no observations.
	ErrEmptyHistory = errors.New("history is empty")

	// ErrStepResolution is returned when the forecast step is not a
	// multiple of the history's sampling interval.
	ErrStepResolution = errors.New("step is not a multiple of the history resolution")
)

// Forecaster orchestrates a forecast run: load → train → predict → store.
type Forecaster struct {
	series  string
	adapter adapters.Adapter
	model   models.Model
	store   storage.Store
	period  models.Period
	history adapters.Range
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a new Forecaster. metrics may be nil.
func New(
	series string,
	adapter adapters.Adapter,
	model models.Model,
	store storage.Store,
	period models.Period,
	history adapters.Range,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forecaster{
		series:  series,
		adapter: adapter,
		model:   model,
		store:   store,
		period:  period,
		history: history,
		logger:  logger,
		metrics: metrics,
		now:     time.Now,
	}
}

// Run performs one forecast run and returns the stored snapshot. A failed
// run stores nothing.
func (f *Forecaster) Run(ctx context.Context) (storage.Snapshot, error) {
	start := f.now()
	f.logger.Debug("starting forecast run", "series", f.series)

	if err := f.period.Validate(); err != nil {
		f.recordError("model", "invalid_period")
		return storage.Snapshot{}, err
	}

	table, loadDuration, err := f.load(ctx)
	if err != nil {
		f.recordError("adapter", "load_failed")
		return storage.Snapshot{}, fmt.Errorf("load: %w", err)
	}

	if err := f.checkResolution(table); err != nil {
		f.recordError("adapter", "resolution_mismatch")
		return storage.Snapshot{}, err
	}

	trainStart := time.Now()
	if err := f.model.Train(ctx, table); err != nil {
		f.recordError("model", "train_failed")
		return storage.Snapshot{}, fmt.Errorf("train: %w", err)
	}
	if f.metrics != nil {
		f.metrics.RecordTrain(time.Since(trainStart).Seconds())
	}

	forecast, predictDuration, err := f.predict(ctx)
	if err != nil {
		f.recordError("model", "predict_failed")
		return storage.Snapshot{}, fmt.Errorf("predict: %w", err)
	}

	snapshot := storage.Snapshot{
		Series:      f.series,
		GeneratedAt: f.now(),
		Forecast:    forecast,
	}
	if err := f.store.Put(ctx, snapshot); err != nil {
		f.recordError("store", "put_failed")
		return storage.Snapshot{}, fmt.Errorf("store: %w", err)
	}

	if f.metrics != nil {
		counts := make([]int, len(forecast.Predictions))
		for i, p := range forecast.Predictions {
			counts[i] = len(p.Comparisons)
		}
		f.metrics.RecordForecast(len(forecast.Predictions), forecast.MissingSteps, counts,
			float64(snapshot.GeneratedAt.Unix()))
	}

	f.logger.Info("forecast run complete",
		"series", f.series,
		"model", f.model.Name(),
		"history_rows", table.Len(),
		"steps", len(forecast.Predictions),
		"missing_steps", forecast.MissingSteps,
		"load_ms", loadDuration.Milliseconds(),
		"predict_ms", predictDuration.Milliseconds(),
		"total_ms", f.now().Sub(start).Milliseconds(),
	)

	return snapshot, nil
}

// load retrieves the history from the adapter.
func (f *Forecaster) load(ctx context.Context) (*series.Table, time.Duration, error) {
	start := time.Now()

	table, err := f.adapter.Load(ctx, f.history)
	if err != nil {
		return nil, 0, err
	}
	if table == nil || table.Len() == 0 {
		return nil, 0, ErrEmptyHistory
	}

	duration := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordLoad(duration.Seconds(), table.Len())
	}

	f.logger.Info("loaded history",
		"adapter", f.adapter.Name(),
		"rows", table.Len(),
		"columns", table.Columns(),
		"first", table.First().Format(time.RFC3339),
		"last", table.Last().Format(time.RFC3339),
		"duration_ms", duration.Milliseconds(),
	)

	return table, duration, nil
}

// checkResolution rejects a step that would land between samples. A
// single-row history has no resolution and is accepted.
func (f *Forecaster) checkResolution(table *series.Table) error {
	res := table.Resolution()
	if res <= 0 {
		return nil
	}
	if f.period.Step%res != 0 {
		return fmt.Errorf("%w: step %v, resolution %v", ErrStepResolution, f.period.Step, res)
	}
	return nil
}

// predict forecasts the target period.
func (f *Forecaster) predict(ctx context.Context) (models.Forecast, time.Duration, error) {
	start := time.Now()

	forecast, err := f.model.Predict(ctx, f.period)
	if err != nil {
		return models.Forecast{}, 0, err
	}

	duration := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordPredict(duration.Seconds())
	}

	f.logger.Debug("predicted forecast",
		"model", f.model.Name(),
		"steps", len(forecast.Predictions),
		"duration_ms", duration.Milliseconds(),
	)

	return forecast, duration, nil
}

func (f *Forecaster) recordError(component, reason string) {
	if f.metrics != nil {
		f.metrics.RecordError(component, reason)
	}
}

// Print writes forecast to w as a text table or as JSON. head > 0 limits
// the output to the first head predictions. Format "none" writes nothing.
func Print(w io.Writer, forecast models.Forecast, format string, head int) error {
	if head > 0 && head < len(forecast.Predictions) {
		forecast.Predictions = forecast.Predictions[:head]
	}

	switch format {
	case "none":
		return nil
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(forecast)
	case "text", "":
		return printTable(w, forecast)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func printTable(w io.Writer, forecast models.Forecast) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	header := append([]string{"time"}, forecast.Columns...)
	header = append(header, "matched")
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")

	for _, p := range forecast.Predictions {
		row := make([]string, 0, len(forecast.Columns)+2)
		row = append(row, p.Time.Format("2006-01-02 15:04:05"))
		for i := range forecast.Columns {
			row = append(row, formatValue(p, i))
		}
		row = append(row, strconv.Itoa(p.Matched))
		fmt.Fprintln(tw, strings.Join(row, "\t")+"\t")
	}

	return tw.Flush()
}

func formatValue(p models.Prediction, i int) string {
	if p.Missing || i >= len(p.Values) {
		return "NaN"
	}
	return strconv.FormatFloat(p.Values[i], 'f', 3, 64)
}
