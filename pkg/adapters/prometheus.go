package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/HatiCode/analogcast/pkg/series"
)

// DefaultLookback is the history loaded when a Range has no Start.
// Three years gives the analog model three same-day analogues.
const DefaultLookback = 3 * 365 * 24 * time.Hour

// maxPointsPerQuery stays under Prometheus' 11,000 points-per-series limit.
const maxPointsPerQuery = 10000

// PrometheusAdapter loads a single-column table from the Prometheus HTTP
// API using /api/v1/query_range. Long ranges are split into several
// queries. If multiple series are returned, values with the same timestamp
// are SUMMED.
type PrometheusAdapter struct {
	// ServerURL is the base URL to Prometheus, e.g. http://prometheus.monitoring.svc:9090
	ServerURL string
	// Query is the PromQL expression to evaluate.
	Query string
	// Column names the value column. Defaults to "value".
	Column string
	// StepSeconds controls the resolution (defaults to 3600s if <= 0).
	StepSeconds int
	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client
	// Now is used to default the range end. Defaults to time.Now.
	Now func() time.Time
	// Location is the zone rows are reported in. Defaults to UTC.
	Location *time.Location
}

func (p *PrometheusAdapter) Name() string { return "prometheus" }

// Load implements Adapter. A zero r.End means now and a zero r.Start means
// DefaultLookback before the end. Timestamps are aligned to the step.
func (p *PrometheusAdapter) Load(ctx context.Context, r Range) (*series.Table, error) {
	if p.ServerURL == "" || p.Query == "" {
		return nil, errors.New("prometheus adapter: ServerURL and Query are required")
	}
	step := p.StepSeconds
	if step <= 0 {
		step = 3600
	}
	column := p.Column
	if column == "" {
		column = "value"
	}

	end := r.End
	if end.IsZero() {
		now := time.Now
		if p.Now != nil {
			now = p.Now
		}
		end = now()
	}
	end = AlignTimestamp(end.UTC(), step)
	start := r.Start
	if start.IsZero() {
		start = end.Add(-DefaultLookback)
	}
	start = AlignTimestamp(start.UTC(), step)
	if end.Before(start) {
		return nil, fmt.Errorf("prometheus adapter: range end %s precedes start %s", end.Format(time.RFC3339), start.Format(time.RFC3339))
	}

	stepDur := time.Duration(step) * time.Second
	chunk := time.Duration(maxPointsPerQuery-1) * stepDur

	acc := make(map[int64]float64)
	for from := start; !from.After(end); from = from.Add(chunk + stepDur) {
		to := from.Add(chunk)
		if to.After(end) {
			to = end
		}
		result, err := p.queryRange(ctx, from, to, step)
		if err != nil {
			return nil, err
		}
		values, err := AggregateRangeResult(result)
		if err != nil {
			return nil, err
		}
		for ts, v := range values {
			acc[ts] = v
		}
	}

	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	b := series.NewBuilder(column)
	for ts, v := range acc {
		b.Add(time.Unix(ts, 0).In(loc), v)
	}
	table, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("prometheus adapter: %w", err)
	}
	return table, nil
}

func (p *PrometheusAdapter) queryRange(ctx context.Context, start, end time.Time, step int) ([]PrometheusRangeSerie, error) {
	u, err := url.Parse(p.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}
	u.Path = "/api/v1/query_range"

	q := u.Query()
	q.Set("query", p.Query)
	q.Set("start", strconv.FormatInt(start.Unix(), 10))
	q.Set("end", strconv.FormatInt(end.Unix(), 10))
	q.Set("step", strconv.Itoa(step))
	u.RawQuery = q.Encode()

	cli := p.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("prometheus: status %d", resp.StatusCode)
	}

	var pr PrometheusRangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode prometheus response: %w", err)
	}
	if pr.Status != "success" {
		return nil, fmt.Errorf("prometheus status: %s", pr.Status)
	}
	return pr.Data.Result, nil
}

// PrometheusRangeResponse represents the response from Prometheus (and compatible systems).
type PrometheusRangeResponse struct {
	Status string              `json:"status"`
	Data   PrometheusRangeData `json:"data"`
}

// PrometheusRangeData contains the result data from a range query.
type PrometheusRangeData struct {
	ResultType string                 `json:"resultType"`
	Result     []PrometheusRangeSerie `json:"result"`
}

// PrometheusRangeSerie represents a single time series in the result.
type PrometheusRangeSerie struct {
	Metric map[string]string `json:"metric"`
	// Values is an array of [ <unix_time_float>, "<value_string>" ]
	Values [][]any `json:"values"`
}

// AggregateRangeResult sums multiple series into one value per Unix second.
func AggregateRangeResult(result []PrometheusRangeSerie) (map[int64]float64, error) {
	acc := make(map[int64]float64)
	for _, s := range result {
		for _, pair := range s.Values {
			if len(pair) != 2 {
				return nil, fmt.Errorf("invalid value pair length: %d", len(pair))
			}

			var tsSec int64
			switch v := pair[0].(type) {
			case float64:
				tsSec = int64(v)
			case json.Number:
				f, _ := v.Float64()
				tsSec = int64(f)
			default:
				return nil, fmt.Errorf("unexpected timestamp type %T", v)
			}

			var val float64
			switch vv := pair[1].(type) {
			case string:
				f, err := strconv.ParseFloat(vv, 64)
				if err != nil {
					return nil, fmt.Errorf("parse value: %w", err)
				}
				val = f
			case float64:
				val = vv
			case json.Number:
				f, _ := vv.Float64()
				val = f
			default:
				return nil, fmt.Errorf("unexpected value type %T", vv)
			}
			acc[tsSec] += val
		}
	}
	return acc, nil
}
