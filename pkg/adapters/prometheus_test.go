package adapters

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"
)

func TestPrometheusAdapter_SingleSeries(t *testing.T) {
	json := `{
        "status":"success",
        "data":{
            "resultType":"matrix",
            "result":[
                {
                    "metric":{},
                    "values":[
                        [ 1700002800, "120" ],
                        [ 1699996400, "100" ],
                        [ 1699999600, "110" ]
                    ]
                }
            ]
        }
    }`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("query"); got != "sum(load)" {
			t.Errorf("query = %q, want sum(load)", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, json)
	}))
	defer server.Close()

	ad := &PrometheusAdapter{
		ServerURL:   server.URL,
		Query:       "sum(load)",
		Column:      "load",
		StepSeconds: 3600,
		Now:         func() time.Time { return time.Unix(1700003000, 0) },
	}

	table, err := ad.Load(context.Background(), Range{Start: time.Unix(1699990000, 0)})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	if cols := table.Columns(); len(cols) != 1 || cols[0] != "load" {
		t.Errorf("columns = %v, want [load]", cols)
	}
	for i, want := range []float64{100, 110, 120} {
		if got := table.Row(i).Values[0]; got != want {
			t.Errorf("row %d = %v, want %v", i, got, want)
		}
	}
}

func TestPrometheusAdapter_MultiSeriesAggregates(t *testing.T) {
	json := `{
        "status":"success",
        "data":{
            "resultType":"matrix",
            "result":[
                { "metric":{"pod":"a"}, "values":[ [ 1700000000, "1" ], [ 1700003600, "2" ] ] },
                { "metric":{"pod":"b"}, "values":[ [ 1700000000, "3" ], [ 1700003600, "4" ] ] }
            ]
        }
    }`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, json)
	}))
	defer server.Close()

	ad := &PrometheusAdapter{ServerURL: server.URL, Query: "load", StepSeconds: 3600}
	r := Range{Start: time.Unix(1699999200, 0), End: time.Unix(1700006400, 0)}
	table, err := ad.Load(context.Background(), r)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", table.Len())
	}
	if got := table.Row(0).Values[0]; got != 4 {
		t.Errorf("first value = %v, want 4", got)
	}
	if got := table.Row(1).Values[0]; got != 6 {
		t.Errorf("second value = %v, want 6", got)
	}
}

func TestPrometheusAdapter_ChunksLongRanges(t *testing.T) {
	type window struct{ start, end int64 }
	var (
		mu      sync.Mutex
		windows []window
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		start, _ := strconv.ParseInt(q.Get("start"), 10, 64)
		end, _ := strconv.ParseInt(q.Get("end"), 10, 64)
		mu.Lock()
		windows = append(windows, window{start, end})
		mu.Unlock()
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[%d,"1"],[%d,"2"]]}]}}`, start, end)
	}))
	defer server.Close()

	const step = 3600
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(15000 * time.Hour)
	ad := &PrometheusAdapter{ServerURL: server.URL, Query: "load", StepSeconds: step}

	table, err := ad.Load(context.Background(), Range{Start: start, End: end})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if len(windows) != 2 {
		t.Fatalf("expected 2 queries, got %d: %v", len(windows), windows)
	}
	for i, w := range windows {
		if points := (w.end-w.start)/step + 1; points > maxPointsPerQuery {
			t.Errorf("query %d covers %d points, limit %d", i, points, maxPointsPerQuery)
		}
	}
	if windows[0].start != start.Unix() || windows[1].end != end.Unix() {
		t.Errorf("queries do not cover the range: %v", windows)
	}
	if windows[1].start != windows[0].end+step {
		t.Errorf("queries are not contiguous: %v", windows)
	}
	if table.Len() != 4 {
		t.Errorf("expected 4 merged rows, got %d", table.Len())
	}
}

func TestPrometheusAdapter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusBadGateway, "bad gateway"},
		{"status error", http.StatusOK, `{"status":"error","data":{"resultType":"matrix","result":[]}}`},
		{"bad value", http.StatusOK, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[1700000000,"x"]]}]}}`},
		{"bad pair", http.StatusOK, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[1700000000]]}]}}`},
		{"bad json", http.StatusOK, `{"status":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			ad := &PrometheusAdapter{ServerURL: server.URL, Query: "load"}
			r := Range{Start: time.Unix(1699999200, 0), End: time.Unix(1700006400, 0)}
			if _, err := ad.Load(context.Background(), r); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestPrometheusAdapter_RequiresConfig(t *testing.T) {
	if _, err := (&PrometheusAdapter{Query: "up"}).Load(context.Background(), Range{}); err == nil {
		t.Error("expected error without ServerURL")
	}
	if _, err := (&PrometheusAdapter{ServerURL: "http://localhost:9090"}).Load(context.Background(), Range{}); err == nil {
		t.Error("expected error without Query")
	}
}

func TestAlignTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 5, 14, 37, 12, 0, time.UTC)
	if got, want := AlignTimestamp(ts, 3600), time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("AlignTimestamp = %v, want %v", got, want)
	}
	if got, want := AlignTimestamp(ts, 900), time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("AlignTimestamp = %v, want %v", got, want)
	}
}

func TestPrometheusAdapter_Location(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	utc8 := time.Date(2023, time.December, 25, 8, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status":"success","data":{"resultType":"matrix","result":[{"metric":{},"values":[[%d,"8"]]}]}}`, utc8.Unix())
	}))
	defer server.Close()

	ad := &PrometheusAdapter{ServerURL: server.URL, Query: "up", StepSeconds: 3600, Location: berlin}
	table, err := ad.Load(context.Background(), Range{Start: utc8, End: utc8})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	got := table.Row(0).Time
	if got.Location() != berlin || got.Hour() != 9 || !got.Equal(utc8) {
		t.Errorf("row time = %v, want 09:00 Europe/Berlin", got)
	}
}
