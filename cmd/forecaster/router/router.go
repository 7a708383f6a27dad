// Package router configures HTTP routes for the forecaster's HTTP API.
//
// Routes configured:
//   - GET /forecast/current?series=<name> - Latest forecast snapshot for a series
//   - GET /healthz - Health check endpoint (503 when the store is unreachable)
//   - GET /metrics - Prometheus metrics endpoint
//
// The /forecast/current endpoint returns the stored snapshot as JSON: series
// name, generation time and the forecast with one prediction per step.
// Values without comparison data are null. Snapshots older than the stale
// threshold carry an X-Analogcast-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/analogcast/pkg/httpx"
	"github.com/HatiCode/analogcast/pkg/storage"
)

var seriesNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_.-]{0,251}[a-zA-Z0-9])?$`)

// StaleHeader marks responses whose snapshot is older than the stale threshold.
const StaleHeader = "X-Analogcast-Stale"

// pinger is implemented by stores with a remote backend, such as Redis.
type pinger interface {
	Ping(ctx context.Context) error
}

// SetupRoutes configures HTTP endpoints for the forecaster. A staleAfter
// of zero never marks snapshots stale.
func SetupRoutes(store storage.Store, staleAfter time.Duration, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	if p, ok := store.(pinger); ok {
		mux.Handle("GET /healthz", httpx.HealthHandlerWithCheck(p.Ping))
	} else {
		mux.Handle("GET /healthz", httpx.HealthHandler())
	}
	mux.HandleFunc("GET /forecast/current", handleGetSnapshot(store, staleAfter, logger))
	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// handleGetSnapshot returns a handler for GET /forecast/current?series=<name>.
func handleGetSnapshot(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		series := r.URL.Query().Get("series")
		if series == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "series parameter required")
			return
		}

		if !seriesNameRegex.MatchString(series) {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid series name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, series)
		if err != nil {
			logger.Error("failed to get snapshot", "series", series, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("no forecast for series %q", series))
			return
		}

		if staleAfter > 0 && time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set(StaleHeader, "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
