package adapters

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// Constructor builds an adapter from its settings and the forecast step.
type Constructor func(cfg Settings, stepSeconds int) (Adapter, error)

var constructors = map[string]Constructor{
	"csv":             newCSV,
	"prometheus":      promQueryAPI("prometheus", "http://localhost:9090"),
	"victoriametrics": promQueryAPI("victoriametrics", "http://localhost:8428"),
	"http":            newHTTP,
}

// Kinds lists the adapter kinds New accepts.
func Kinds() []string {
	return slices.Sorted(maps.Keys(constructors))
}

// New creates the adapter named by kind. Settings come from ADAPTER_*
// environment variables with camelCase keys: "url", "query", "paths",
// "valuePath" and so on.
func New(kind string, config map[string]string, stepSeconds int) (Adapter, error) {
	build, ok := constructors[kind]
	if !ok {
		return nil, fmt.Errorf("unknown adapter kind %q (must be one of %s)", kind, strings.Join(Kinds(), ", "))
	}
	return build(Settings(config), stepSeconds)
}

// Settings is the flat string configuration of an adapter.
type Settings map[string]string

// Get returns the value of key, or def when it is empty.
func (s Settings) Get(key, def string) string {
	if v := strings.TrimSpace(s[key]); v != "" {
		return v
	}
	return def
}

// List splits a comma-separated value, dropping empty items.
func (s Settings) List(key string) []string {
	var out []string
	for _, item := range strings.Split(s[key], ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// JSONMap decodes a JSON object of strings. A missing key yields nil.
func (s Settings) JSONMap(key string) (map[string]string, error) {
	raw := s.Get(key, "")
	if raw == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("invalid %q JSON: %w", key, err)
	}
	return m, nil
}

// Location resolves the IANA zone under key. A missing key yields UTC.
func (s Settings) Location(key string) (*time.Location, error) {
	tz := s.Get(key, "")
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid %q: %w", key, err)
	}
	return loc, nil
}

func newCSV(cfg Settings, _ int) (Adapter, error) {
	paths := cfg.List("paths")
	if len(paths) == 0 {
		return nil, fmt.Errorf("csv adapter requires 'paths' config")
	}

	loc, err := cfg.Location("timezone")
	if err != nil {
		return nil, fmt.Errorf("csv adapter: %w", err)
	}
	a := &CSVAdapter{
		Paths:           paths,
		TimeColumn:      cfg.Get("timeColumn", ""),
		TimestampFormat: cfg.Get("timestampFormat", ""),
		Location:        loc,
	}
	if d := cfg["delimiter"]; d != "" {
		r := []rune(d)
		if len(r) != 1 {
			return nil, fmt.Errorf("csv adapter: invalid 'delimiter' %q: must be a single character", d)
		}
		a.Delimiter = r[0]
	}
	return a, nil
}

// promQueryAPI builds adapters for servers speaking the Prometheus
// query_range API, which VictoriaMetrics also serves.
func promQueryAPI(kind, defaultURL string) Constructor {
	return func(cfg Settings, stepSeconds int) (Adapter, error) {
		query := cfg.Get("query", "")
		if query == "" {
			return nil, fmt.Errorf("%s adapter requires 'query' config", kind)
		}
		loc, err := cfg.Location("timezone")
		if err != nil {
			return nil, fmt.Errorf("%s adapter: %w", kind, err)
		}
		return &PrometheusAdapter{
			ServerURL:   cfg.Get("url", defaultURL),
			Query:       query,
			Column:      cfg.Get("column", ""),
			StepSeconds: stepSeconds,
			Location:    loc,
		}, nil
	}
}

func newHTTP(cfg Settings, stepSeconds int) (Adapter, error) {
	url := cfg.Get("url", "")
	if url == "" {
		return nil, fmt.Errorf("http adapter requires 'url' config")
	}

	headers, err := cfg.JSONMap("headers")
	if err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	vars, err := cfg.JSONMap("templateVars")
	if err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	loc, err := cfg.Location("timezone")
	if err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}

	a := &HTTPAdapter{
		URL:             url,
		Method:          cfg.Get("method", "GET"),
		Headers:         headers,
		Body:            cfg["body"],
		ValuePath:       cfg.Get("valuePath", ""),
		TimestampPath:   cfg.Get("timestampPath", ""),
		TimestampFormat: cfg.Get("timestampFormat", "rfc3339"),
		Column:          cfg.Get("column", ""),
		StepSeconds:     stepSeconds,
		TemplateVars:    vars,
		Location:        loc,
	}
	if err := a.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("http adapter: %w", err)
	}
	return a, nil
}
