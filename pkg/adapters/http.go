package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/tidwall/gjson"

	"github.com/HatiCode/analogcast/pkg/series"
)

// HTTPAdapter is a generic HTTP adapter that can call any REST API endpoint
// and extract time-series data using JSON path expressions.
//
// It supports:
//   - Configurable HTTP method (GET, POST, etc.)
//   - Template-based request body with variables: {{.Start}}, {{.End}}, {{.Step}}
//   - Custom headers including authentication (Bearer tokens, API keys, etc.)
//   - JSON path extraction for timestamps and values using gjson syntax
//   - Flexible timestamp parsing (RFC3339, Unix seconds, Unix milliseconds)
//
// Example configuration for a custom metrics API:
//
//	adapter := &HTTPAdapter{
//	    URL: "https://api.example.com/metrics",
//	    Method: "POST",
//	    Headers: map[string]string{
//	        "Authorization": "Bearer {{.Token}}",
//	        "Content-Type": "application/json",
//	    },
//	    Body: `{"metric": "load", "from": "{{.StartRFC3339}}", "to": "{{.EndRFC3339}}"}`,
//	    ValuePath: "data.#.value",
//	    TimestampPath: "data.#.timestamp",
//	}
type HTTPAdapter struct {
	// URL is the endpoint to call (required)
	URL string

	// Method is the HTTP method (GET, POST, etc.). Defaults to GET if empty.
	Method string

	// Headers are custom HTTP headers to include in the request.
	// Values can use template variables like {{.Token}}.
	Headers map[string]string

	// Body is the request body template (for POST/PUT). Supports variables:
	//   {{.Start}}         - range start as Unix timestamp
	//   {{.End}}           - range end as Unix timestamp
	//   {{.Step}}          - step size in seconds
	//   {{.StartRFC3339}}  - range start as RFC3339 string
	//   {{.EndRFC3339}}    - range end as RFC3339 string
	Body string

	// ValuePath is the gjson path to extract metric values from the response.
	// Use "#" for arrays, e.g. "data.#.value" extracts all values from data array.
	ValuePath string

	// TimestampPath is the gjson path to extract timestamps from the response.
	// Must return the same number of elements as ValuePath.
	TimestampPath string

	// TimestampFormat specifies how to parse timestamps:
	//   "rfc3339"    - RFC3339 strings (default)
	//   "unix"       - Unix seconds (float or int)
	//   "unix_milli" - Unix milliseconds (float or int)
	TimestampFormat string

	// Column names the value column. Defaults to "value".
	Column string

	// StepSeconds is passed to templates (defaults to 3600s if <= 0).
	StepSeconds int

	// HTTPClient is optional; if nil a default client with timeout is used.
	HTTPClient *http.Client

	// TemplateVars are custom variables available in Body and Headers templates.
	// Use this to pass tokens, API keys, etc.
	TemplateVars map[string]string

	// Now is used to default the range end. Defaults to time.Now.
	Now func() time.Time

	// Location is the zone rows are reported in. Defaults to UTC.
	Location *time.Location
}

func (h *HTTPAdapter) Name() string { return "http" }

// Load implements Adapter. Points outside r are dropped. A zero r.End means
// now and a zero r.Start means DefaultLookback before the end; the
// resolved window is what templates see. JSON null values load as NaN.
func (h *HTTPAdapter) Load(ctx context.Context, r Range) (*series.Table, error) {
	if err := h.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}

	req, err := h.newRequest(ctx, h.templateData(r))
	if err != nil {
		return nil, err
	}

	cli := h.HTTPClient
	if cli == nil {
		cli = &http.Client{Timeout: 30 * time.Second}
	}
	resp, err := cli.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, snippet)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return h.extract(body, r)
}

// templateData resolves the load window and merges TemplateVars.
func (h *HTTPAdapter) templateData(r Range) map[string]any {
	step := h.StepSeconds
	if step <= 0 {
		step = 3600
	}
	end := r.End
	if end.IsZero() {
		now := time.Now
		if h.Now != nil {
			now = h.Now
		}
		end = now().UTC().Truncate(time.Second)
	}
	start := r.Start
	if start.IsZero() {
		start = end.Add(-DefaultLookback)
	}

	data := map[string]any{
		"Start":        start.Unix(),
		"End":          end.Unix(),
		"Step":         step,
		"StartRFC3339": start.UTC().Format(time.RFC3339),
		"EndRFC3339":   end.UTC().Format(time.RFC3339),
	}
	for k, v := range h.TemplateVars {
		data[k] = v
	}
	return data
}

func (h *HTTPAdapter) newRequest(ctx context.Context, data map[string]any) (*http.Request, error) {
	method := h.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if h.Body != "" {
		rendered, err := renderTemplate(h.Body, data)
		if err != nil {
			return nil, fmt.Errorf("render body template: %w", err)
		}
		body = strings.NewReader(rendered)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range h.Headers {
		rendered, err := renderTemplate(value, data)
		if err != nil {
			return nil, fmt.Errorf("render header %s: %w", key, err)
		}
		req.Header.Set(key, rendered)
	}
	return req, nil
}

// extract pairs the values and timestamps selected by the gjson paths.
func (h *HTTPAdapter) extract(body []byte, r Range) (*series.Table, error) {
	values := gjson.GetBytes(body, h.ValuePath)
	if !values.Exists() {
		return nil, fmt.Errorf("value path %q not found in response", h.ValuePath)
	}
	timestamps := gjson.GetBytes(body, h.TimestampPath)
	if !timestamps.Exists() {
		return nil, fmt.Errorf("timestamp path %q not found in response", h.TimestampPath)
	}

	vals, stamps := values.Array(), timestamps.Array()
	if len(vals) != len(stamps) {
		return nil, fmt.Errorf("value count (%d) != timestamp count (%d)", len(vals), len(stamps))
	}

	column := h.Column
	if column == "" {
		column = "value"
	}
	loc := h.Location
	if loc == nil {
		loc = time.UTC
	}
	b := series.NewBuilder(column)
	for i, v := range vals {
		ts, err := h.parseTimestamp(stamps[i])
		if err != nil {
			return nil, fmt.Errorf("parse timestamp[%d]: %w", i, err)
		}
		ts = ts.In(loc)
		if !r.Contains(ts) {
			continue
		}
		if v.Type == gjson.Null {
			b.Add(ts, math.NaN())
			continue
		}
		b.Add(ts, v.Float())
	}

	table, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	return table, nil
}

func (h *HTTPAdapter) parseTimestamp(value gjson.Result) (time.Time, error) {
	switch h.TimestampFormat {
	case "rfc3339", "":
		return time.Parse(time.RFC3339, value.String())
	case "unix":
		return time.Unix(int64(value.Float()), 0).UTC(), nil
	case "unix_milli":
		return time.UnixMilli(int64(value.Float())).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp format: %s", h.TimestampFormat)
	}
}

// renderTemplate renders a text template with the given data
func renderTemplate(tmplStr string, data map[string]any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Parse(tmplStr)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// ValidateConfig checks if the adapter configuration is valid
func (h *HTTPAdapter) ValidateConfig() error {
	if h.URL == "" {
		return errors.New("url is required")
	}
	if h.ValuePath == "" {
		return errors.New("valuePath is required")
	}
	if h.TimestampPath == "" {
		return errors.New("timestampPath is required")
	}

	validFormats := map[string]bool{
		"":           true,
		"rfc3339":    true,
		"unix":       true,
		"unix_milli": true,
	}
	if !validFormats[h.TimestampFormat] {
		return fmt.Errorf("invalid timestampFormat: %s (must be rfc3339, unix, or unix_milli)", h.TimestampFormat)
	}

	return nil
}
