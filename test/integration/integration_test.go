//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/HatiCode/analogcast/cmd/forecaster/router"
	"github.com/HatiCode/analogcast/pkg/adapters"
	"github.com/HatiCode/analogcast/pkg/calendar"
	"github.com/HatiCode/analogcast/pkg/models"
	"github.com/HatiCode/analogcast/pkg/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// christmasCalendar treats every Dec 25 as a Sunday.
func christmasCalendar() *calendar.Calendar {
	holidays := calendar.NewHolidayMap()
	holidays.SetAnnual(calendar.MonthDay{Month: time.December, Day: 25}, calendar.Sunday)
	return calendar.New(calendar.DefaultWeekdayGroups(), holidays)
}

// writeYear writes hourly rows for Dec 24-26 of year with value
// (year-2020)*100 + hour.
func writeYear(t *testing.T, dir string, year int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,load\n")
	start := time.Date(year, time.December, 24, 0, 0, 0, 0, time.UTC)
	for ts := start; ts.Before(start.AddDate(0, 0, 3)); ts = ts.Add(time.Hour) {
		fmt.Fprintf(&b, "%s,%d\n", ts.Format("2006-01-02 15:04:05"), (year-2020)*100+ts.Hour())
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.csv", year))
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func setupRedis(t *testing.T) *storage.RedisStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	store, err := storage.NewRedisStore(strings.TrimPrefix(endpoint, "redis://"), "", 0, time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// TestCSVForecastServedFromRedis runs CSV history through the analog model,
// stores the result in Redis and reads it back over the HTTP API.
func TestCSVForecastServedFromRedis(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	dir := t.TempDir()
	adapter := &adapters.CSVAdapter{
		Paths: []string{writeYear(t, dir, 2021), writeYear(t, dir, 2022), writeYear(t, dir, 2023)},
	}
	table, err := adapter.Load(ctx, adapters.Range{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 3*72 {
		t.Fatalf("loaded %d rows, want %d", table.Len(), 3*72)
	}

	// Dec 24 2024 is a Tuesday; no Dec 24 in 2021-2023 was Mon-Thu.
	period := models.Period{
		Start: time.Date(2024, 12, 24, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 12, 25, 23, 0, 0, 0, time.UTC),
		Step:  time.Hour,
	}
	forecast, err := models.Predict(ctx, table, period, christmasCalendar(), models.DefaultOptions())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if forecast.MissingSteps != 24 {
		t.Errorf("MissingSteps = %d, want 24", forecast.MissingSteps)
	}

	store := setupRedis(t)
	if err := store.Put(ctx, storage.Snapshot{Series: "christmas", GeneratedAt: time.Now(), Forecast: forecast}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	srv := httptest.NewServer(router.SetupRoutes(store, time.Hour, discardLogger()))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/forecast/current?series=christmas")
	if err != nil {
		t.Fatalf("GET forecast: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got storage.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	preds := got.Forecast.Predictions
	if len(preds) != 48 {
		t.Fatalf("got %d predictions, want 48", len(preds))
	}
	for i, p := range preds[:24] {
		if !p.Missing {
			t.Errorf("step %d (%s) should be missing", i, p.Time)
		}
	}
	for h, p := range preds[24:] {
		if p.Missing || p.Values[0] != float64(200+h) || p.Matched != 3 {
			t.Errorf("Dec 25 %02d:00 = %+v, want %d from 3 days", h, p, 200+h)
		}
	}
}

// TestPrometheusAdapterForecast loads history from a mock Prometheus server
// running in a container.
func TestPrometheusAdapterForecast(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	ctx := context.Background()

	var values []string
	for i, year := range []int{2021, 2022, 2023} {
		ts := time.Date(year, time.December, 25, 9, 0, 0, 0, time.UTC).Unix()
		values = append(values, fmt.Sprintf(`[%d,"%d"]`, ts, (i+1)*10))
	}
	promResponse := `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{"job":"grid"},"values":[` +
		strings.Join(values, ",") + `]}]}}`

	pythonScript := `
import http.server
import socketserver

class PrometheusHandler(http.server.BaseHTTPRequestHandler):
    def do_GET(self):
        if self.path.startswith('/api/v1/query_range'):
            self.send_response(200)
            self.send_header('Content-type', 'application/json')
            self.end_headers()
            self.wfile.write(b'` + promResponse + `')
        else:
            self.send_response(404)
            self.end_headers()

    def log_message(self, format, *args):
        pass

with socketserver.TCPServer(("", 9090), PrometheusHandler) as httpd:
    httpd.serve_forever()
`

	prom, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "python:3.11-alpine",
			ExposedPorts: []string{"9090/tcp"},
			Cmd:          []string{"python", "-c", pythonScript},
			WaitingFor:   wait.ForListeningPort("9090/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start mock Prometheus: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(prom); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := prom.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get host: %v", err)
	}
	port, err := prom.MappedPort(ctx, "9090/tcp")
	if err != nil {
		t.Fatalf("Failed to get port: %v", err)
	}

	adapter, err := adapters.New("prometheus", map[string]string{
		"url":    fmt.Sprintf("http://%s:%s", host, port.Port()),
		"query":  "sum(grid_load)",
		"column": "load",
	}, 3600)
	if err != nil {
		t.Fatalf("adapters.New: %v", err)
	}

	table, err := adapter.Load(ctx, adapters.Range{
		Start: time.Date(2021, 12, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.Len() != 3 || table.Columns()[0] != "load" {
		t.Fatalf("unexpected table: %d rows, columns %v", table.Len(), table.Columns())
	}

	target := time.Date(2024, 12, 25, 9, 0, 0, 0, time.UTC)
	forecast, err := models.Predict(ctx, table, models.Period{Start: target, End: target, Step: time.Hour},
		christmasCalendar(), models.DefaultOptions())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got := forecast.Column(0)[0]; got != 20 {
		t.Errorf("forecast = %v, want 20", got)
	}
}
