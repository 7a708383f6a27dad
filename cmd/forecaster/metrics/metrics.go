// Package metrics provides Prometheus metrics instrumentation for the forecaster.
//
// Metrics exposed:
//   - analogcast_adapter_load_seconds: Histogram of history load duration
//   - analogcast_model_train_seconds: Histogram of model training duration
//   - analogcast_model_predict_seconds: Histogram of forecast duration
//   - analogcast_history_rows: Gauge of rows in the loaded history
//   - analogcast_forecast_steps: Gauge of steps in the latest forecast
//   - analogcast_forecast_missing_steps: Gauge of steps without comparison data
//   - analogcast_comparison_days: Histogram of comparison days used per step
//   - analogcast_forecast_timestamp_seconds: Gauge of the latest forecast time
//   - analogcast_errors_total: Counter of errors by component and reason
//
// All metrics carry a series label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the forecaster.
type Metrics struct {
	AdapterLoadSeconds  prometheus.Histogram
	ModelTrainSeconds   prometheus.Histogram
	ModelPredictSeconds prometheus.Histogram
	HistoryRows         prometheus.Gauge
	ForecastSteps       prometheus.Gauge
	MissingSteps        prometheus.Gauge
	ComparisonDays      prometheus.Histogram
	ForecastTimestamp   prometheus.Gauge
	ErrorsTotal         *prometheus.CounterVec
}

// New creates the metrics and registers them with reg, or with the
// default registry when reg is nil.
func New(series, adapter, model string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	labels := prometheus.Labels{"series": series}

	return &Metrics{
		AdapterLoadSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "analogcast_adapter_load_seconds",
			Help: "Time spent loading history from the adapter",
			ConstLabels: prometheus.Labels{
				"adapter": adapter,
				"series":  series,
			},
			Buckets: prometheus.DefBuckets,
		}),

		ModelTrainSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "analogcast_model_train_seconds",
			Help: "Time spent indexing history",
			ConstLabels: prometheus.Labels{
				"model":  model,
				"series": series,
			},
			Buckets: prometheus.DefBuckets,
		}),

		ModelPredictSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name: "analogcast_model_predict_seconds",
			Help: "Time spent predicting the target period",
			ConstLabels: prometheus.Labels{
				"model":  model,
				"series": series,
			},
			Buckets: prometheus.DefBuckets,
		}),

		HistoryRows: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "analogcast_history_rows",
			Help:        "Observations in the loaded history",
			ConstLabels: labels,
		}),

		ForecastSteps: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "analogcast_forecast_steps",
			Help:        "Steps in the latest forecast",
			ConstLabels: labels,
		}),

		MissingSteps: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "analogcast_forecast_missing_steps",
			Help:        "Steps in the latest forecast without comparison data",
			ConstLabels: labels,
		}),

		ComparisonDays: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "analogcast_comparison_days",
			Help:        "Comparison days selected per forecast step",
			ConstLabels: labels,
			Buckets:     prometheus.LinearBuckets(0, 1, 9),
		}),

		ForecastTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "analogcast_forecast_timestamp_seconds",
			Help:        "Unix time the latest forecast was generated",
			ConstLabels: labels,
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "analogcast_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

// RecordLoad records the time spent loading history and the row count.
func (m *Metrics) RecordLoad(seconds float64, rows int) {
	m.AdapterLoadSeconds.Observe(seconds)
	m.HistoryRows.Set(float64(rows))
}

// RecordTrain records the time spent training.
func (m *Metrics) RecordTrain(seconds float64) {
	m.ModelTrainSeconds.Observe(seconds)
}

// RecordPredict records the time spent predicting.
func (m *Metrics) RecordPredict(seconds float64) {
	m.ModelPredictSeconds.Observe(seconds)
}

// RecordForecast records the shape of a finished forecast.
func (m *Metrics) RecordForecast(steps, missing int, comparisonDays []int, generatedAt float64) {
	m.ForecastSteps.Set(float64(steps))
	m.MissingSteps.Set(float64(missing))
	for _, n := range comparisonDays {
		m.ComparisonDays.Observe(float64(n))
	}
	m.ForecastTimestamp.Set(generatedAt)
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
