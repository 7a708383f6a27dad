package models

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/HatiCode/analogcast/pkg/calendar"
	"github.com/HatiCode/analogcast/pkg/series"
)

// ErrNotTrained is returned by Predict before Train has succeeded.
var ErrNotTrained = errors.New("model has no history; call Train first")

const (
	DefaultComparisonDays = 4
	DefaultCacheSize      = 1024
)

// Options configures an AnalogModel.
type Options struct {
	// ComparisonDays is the maximum number of comparison days per step.
	ComparisonDays int

	// GroupAware restricts comparison days to the target's weekday group.
	GroupAware bool

	// Workers is the number of goroutines computing steps. Values <= 1 run
	// steps sequentially. Output order never depends on Workers.
	Workers int

	// CacheSize bounds the per-run cache of comparison-day selections,
	// keyed by target date.
	CacheSize int
}

// DefaultOptions returns group-aware matching over 4 comparison days.
func DefaultOptions() Options {
	return Options{
		ComparisonDays: DefaultComparisonDays,
		GroupAware:     true,
		Workers:        1,
		CacheSize:      DefaultCacheSize,
	}
}

// AnalogModel forecasts each target timestamp from the average of its
// nearest same-calendar-day analogues.
//
// Algorithm, per step t:
//  1. Classify t's date into a weekday group (holiday overrides applied).
//  2. Take historical dates with t's month and day, restricted to the same
//     group when GroupAware.
//  3. Keep the ComparisonDays nearest in elapsed days, earliest on ties.
//  4. Average the kept days' observations at t's exact time-of-day.
//
// An UnmappedWeekdayError from any step aborts the whole run. A step with
// no comparison data yields a Missing prediction and the run continues.
type AnalogModel struct {
	name   string
	cal    *calendar.Calendar
	opts   Options
	logger *slog.Logger

	history    *series.Table
	byMonthDay map[calendar.MonthDay][]calendar.Date
	groupOf    map[calendar.Date]string
}

// NewAnalogModel creates a model using cal for classification.
func NewAnalogModel(cal *calendar.Calendar, opts Options, logger *slog.Logger) *AnalogModel {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ComparisonDays <= 0 {
		opts.ComparisonDays = DefaultComparisonDays
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = DefaultCacheSize
	}

	name := "analog"
	if !opts.GroupAware {
		name = "naive"
	}

	return &AnalogModel{
		name:   name,
		cal:    cal,
		opts:   opts,
		logger: logger,
	}
}

// NewNaiveModel creates a model that ignores weekday groups when picking
// comparison days. Targets are still classified, so an unmapped weekday
// still fails the run.
func NewNaiveModel(cal *calendar.Calendar, opts Options, logger *slog.Logger) *AnalogModel {
	opts.GroupAware = false
	return NewAnalogModel(cal, opts, logger)
}

// Name returns "analog" or "naive".
func (m *AnalogModel) Name() string {
	return m.name
}

// Options returns the effective options.
func (m *AnalogModel) Options() Options {
	return m.opts
}

// Train indexes the history's dates by month-day and weekday group.
// Historical days whose weekday is unmapped belong to no group and are
// never chosen by a group-aware model.
func (m *AnalogModel) Train(ctx context.Context, history *series.Table) error {
	if history == nil {
		return fmt.Errorf("history cannot be nil")
	}
	if m.cal == nil {
		return fmt.Errorf("calendar cannot be nil")
	}

	byMonthDay := make(map[calendar.MonthDay][]calendar.Date)
	groupOf := make(map[calendar.Date]string)
	unmapped := 0

	for _, d := range history.Dates() {
		if err := ctx.Err(); err != nil {
			return err
		}
		byMonthDay[d.MonthDay()] = append(byMonthDay[d.MonthDay()], d)

		label, err := m.cal.ClassifyDate(d)
		if err != nil {
			if !errors.Is(err, calendar.ErrUnmappedWeekday) {
				return err
			}
			unmapped++
			continue
		}
		groupOf[d] = label
	}

	m.history = history
	m.byMonthDay = byMonthDay
	m.groupOf = groupOf

	m.logger.Debug("indexed history",
		"model", m.name,
		"rows", history.Len(),
		"days", len(groupOf)+unmapped,
		"unmapped_days", unmapped,
	)
	return nil
}

type selection struct {
	group string
	days  []calendar.Date
}

// Predict forecasts each step of period in chronological order.
func (m *AnalogModel) Predict(ctx context.Context, period Period) (Forecast, error) {
	if err := period.Validate(); err != nil {
		return Forecast{}, err
	}
	if m.history == nil {
		return Forecast{}, ErrNotTrained
	}

	cache, err := lru.New[calendar.Date, selection](m.opts.CacheSize)
	if err != nil {
		return Forecast{}, fmt.Errorf("create selection cache: %w", err)
	}

	steps := period.Steps()
	predictions := make([]Prediction, len(steps))

	if m.opts.Workers <= 1 {
		for i, ts := range steps {
			if err := ctx.Err(); err != nil {
				return Forecast{}, err
			}
			p, err := m.predictStep(ts, cache)
			if err != nil {
				return Forecast{}, err
			}
			predictions[i] = p
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(m.opts.Workers)
		for i, ts := range steps {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				p, err := m.predictStep(ts, cache)
				if err != nil {
					return err
				}
				predictions[i] = p
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return Forecast{}, err
		}
		if err := ctx.Err(); err != nil {
			return Forecast{}, err
		}
	}

	missing := 0
	for _, p := range predictions {
		if p.Missing {
			missing++
		}
	}
	if missing > 0 {
		m.logger.Warn("forecast has steps without comparison data",
			"model", m.name,
			"missing_steps", missing,
			"steps", len(predictions),
		)
	}

	return Forecast{
		Model:        m.name,
		Columns:      m.history.Columns(),
		Start:        period.Start,
		End:          period.End,
		StepSeconds:  int(period.Step / time.Second),
		Predictions:  predictions,
		MissingSteps: missing,
	}, nil
}

func (m *AnalogModel) predictStep(ts time.Time, cache *lru.Cache[calendar.Date, selection]) (Prediction, error) {
	sel, err := m.selectFor(calendar.DateOf(ts), cache)
	if err != nil {
		return Prediction{}, err
	}

	agg := Aggregate(sel.days, calendar.Clock(ts), m.history)
	if agg.Missing() {
		m.logger.Debug("no comparison data for step",
			"time", ts.Format(time.RFC3339),
			"group", sel.group,
			"comparison_days", len(sel.days),
		)
	}

	return Prediction{
		Time:        ts,
		Values:      agg.Values,
		Comparisons: sel.days,
		Matched:     agg.Matched,
		Missing:     agg.Missing(),
	}, nil
}

// selectFor classifies d and picks its comparison days. Selections depend
// only on the date, so every step of a day reuses one.
func (m *AnalogModel) selectFor(d calendar.Date, cache *lru.Cache[calendar.Date, selection]) (selection, error) {
	if sel, ok := cache.Get(d); ok {
		return sel, nil
	}

	group, err := m.cal.ClassifyDate(d)
	if err != nil {
		return selection{}, err
	}

	pool := m.byMonthDay[d.MonthDay()]
	if m.opts.GroupAware {
		filtered := make([]calendar.Date, 0, len(pool))
		for _, h := range pool {
			if m.groupOf[h] == group {
				filtered = append(filtered, h)
			}
		}
		pool = filtered
	}

	sel := selection{
		group: group,
		days:  SelectComparisonDays(d, pool, m.opts.ComparisonDays),
	}
	cache.Add(d, sel)
	return sel, nil
}

// Predict trains an analog model on table and forecasts period in one call.
func Predict(ctx context.Context, table *series.Table, period Period, cal *calendar.Calendar, opts Options) (Forecast, error) {
	m := NewAnalogModel(cal, opts, nil)
	if err := m.Train(ctx, table); err != nil {
		return Forecast{}, err
	}
	return m.Predict(ctx, period)
}
