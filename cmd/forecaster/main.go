// Command forecaster implements the analogcast forecast engine.
//
// The forecaster performs one forecast run and optionally keeps serving it:
//  1. Loads historical observations through an adapter (CSV, Prometheus,
//     VictoriaMetrics, or a generic HTTP/JSON API)
//  2. Classifies every target day into a weekday group, holidays applied
//  3. Averages the nearest same-calendar-day analogues at each step
//  4. Stores the forecast snapshot and prints it to stdout
//  5. With -listen, exposes the snapshot via HTTP API at /forecast/current
//
// The HTTP API provides:
//   - GET /forecast/current?series=<name> - Retrieve latest forecast snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	forecaster \
//	  -adapter=csv -files=2022.csv,2023.csv \
//	  -start=2024-12-24 -end='2024-12-26 23:00' -step=1h \
//	  -holiday-map='{"2024-12-25":"sunday"}' \
//	  -head=24
//
// Environment variables:
//
//	ADAPTER         - Adapter type (required)
//	ADAPTER_*       - Adapter settings, e.g. ADAPTER_URL, ADAPTER_QUERY
//	START, END      - Target period bounds (required)
//	STEP            - Forecast step size (default: 1h)
//	COMPARISON_DAYS - Comparison days per step (default: 4)
//	WEEKDAY_GROUPS  - Weekday groups as JSON
//	HOLIDAY_MAP     - Holiday overrides as JSON
//	CALENDAR_FILE   - YAML calendar file
//	SERIES          - Series name (default: default)
//	STORAGE         - memory or redis (default: memory)
//	LISTEN          - HTTP listen address (default: run once and exit)
//	STALE_AFTER     - Age after which served snapshots are marked stale
//	LOG_LEVEL       - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT      - Logging format: text, json (default: text)
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HatiCode/analogcast/cmd/forecaster/config"
	"github.com/HatiCode/analogcast/cmd/forecaster/logger"
	"github.com/HatiCode/analogcast/cmd/forecaster/metrics"
	"github.com/HatiCode/analogcast/cmd/forecaster/models"
	"github.com/HatiCode/analogcast/cmd/forecaster/router"
	"github.com/HatiCode/analogcast/cmd/forecaster/store"
	"github.com/HatiCode/analogcast/pkg/adapters"
	"github.com/HatiCode/analogcast/pkg/httpx"
	"github.com/HatiCode/analogcast/pkg/storage"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	logger := logger.New(cfg)
	slog.SetDefault(logger)

	logger.Info("starting analogcast forecaster",
		"version", version,
		"series", cfg.Series,
		"adapter", cfg.Adapter,
		"start", cfg.Start.Format(time.RFC3339),
		"end", cfg.End.Format(time.RFC3339),
		"step", cfg.Step,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("forecaster failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	adapter, err := buildAdapter(cfg, logger)
	if err != nil {
		return err
	}

	cal, err := models.NewCalendar(cfg, logger)
	if err != nil {
		return err
	}

	model, err := models.New(cfg, cal, logger)
	if err != nil {
		return err
	}

	st, err := store.New(cfg, logger)
	if err != nil {
		return err
	}
	if closer, ok := st.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Error("failed to close store", "error", err)
			}
		}()
	}

	m := metrics.New(cfg.Series, adapter.Name(), model.Name(), prometheus.DefaultRegisterer)
	f := New(cfg.Series, adapter, model, st, cfg.Period(), cfg.HistoryRange(), logger, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	snapshot, err := f.Run(ctx)
	if err != nil {
		return err
	}

	if err := Print(os.Stdout, snapshot.Forecast, cfg.Output, cfg.Head); err != nil {
		return err
	}

	if cfg.Listen == "" {
		return nil
	}
	return serve(ctx, cfg, st, logger)
}

// buildAdapter creates the configured adapter.
func buildAdapter(cfg *config.Config, logger *slog.Logger) (adapters.Adapter, error) {
	adapter, err := adapters.New(cfg.Adapter, cfg.AdapterConfig, int(cfg.Step.Seconds()))
	if err != nil {
		return nil, err
	}
	logger.Info("adapter configured", "adapter", adapter.Name())
	return adapter, nil
}

// serve exposes the stored snapshot over HTTP until ctx is canceled.
func serve(ctx context.Context, cfg *config.Config, st storage.Store, logger *slog.Logger) error {
	mux := router.SetupRoutes(st, cfg.StaleAfter, logger)
	handler := httpx.Chain(mux, httpx.RecoveryMiddleware(logger), httpx.LoggingMiddleware(logger))
	httpServer := httpx.NewServer(cfg.Listen, handler, logger)

	if err := httpServer.Run(ctx, 10*time.Second); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
