// Package config provides configuration parsing and management for the forecaster.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for one forecasting run:
//   - Target period (start, end, step) and history range
//   - Adapter selection and ADAPTER_* settings
//   - Calendar (weekday groups, holiday overrides, or a YAML calendar file)
//   - Model options (analog or naive, comparison days, workers)
//   - Output, storage, HTTP serving and logging
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
//
// Example usage:
//
//	cfg := config.ParseFlags()
//	period := cfg.Period()
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/HatiCode/analogcast/pkg/adapters"
	"github.com/HatiCode/analogcast/pkg/models"
)

// DefaultWeekdayGroups is the JSON form of calendar.DefaultWeekdayGroups.
const DefaultWeekdayGroups = `{"Mon-Thu":[0,1,2,3],"Friday":[4],"Saturday":[5],"Sunday":[6]}`

// Config holds all forecaster configuration.
type Config struct {
	Listen        string
	StaleAfter    time.Duration
	LogFormat     string
	LogLevel      string
	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	MemoryTTL     time.Duration

	Series        string
	Adapter       string
	AdapterConfig map[string]string
	Files         string
	Timezone      string

	StartRaw        string
	EndRaw          string
	HistoryStartRaw string
	HistoryEndRaw   string
	Step            time.Duration

	Start        time.Time
	End          time.Time
	HistoryStart time.Time
	HistoryEnd   time.Time

	ComparisonDays int
	WeekdayGroups  string
	HolidayMap     string
	CalendarFile   string
	Model          string
	Workers        int

	Output string
	Head   int
}

var seriesNameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9_.-]{0,251}[a-zA-Z0-9])?$`)

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
// It exits the process when the configuration is invalid.
func ParseFlags() *Config {
	cfg, err := Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// Load registers the forecaster flags on fs, parses args and validates the
// result.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}

	fs.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ""), "HTTP listen address; empty runs once and exits")
	fs.DurationVar(&cfg.StaleAfter, "stale-after", getEnvDuration("STALE_AFTER", 0), "Mark served snapshots older than this as stale (0 disables)")

	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	fs.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	fs.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	fs.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	fs.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 24*time.Hour), "Redis snapshot TTL")
	fs.DurationVar(&cfg.MemoryTTL, "memory-ttl", getEnvDuration("MEMORY_TTL", 0), "In-memory snapshot TTL (0 keeps snapshots until restart)")

	fs.StringVar(&cfg.Series, "series", getEnv("SERIES", "default"), "Name the forecast is stored and served under")
	fs.StringVar(&cfg.Adapter, "adapter", getEnv("ADAPTER", ""), "Adapter type: csv, prometheus, victoriametrics, or http")
	fs.StringVar(&cfg.Files, "files", getEnv("FILES", ""), "Comma-separated CSV files (shortcut for ADAPTER_PATHS)")
	fs.StringVar(&cfg.Timezone, "timezone", getEnv("TIMEZONE", "UTC"), "Location for timestamps without a zone")

	fs.StringVar(&cfg.StartRaw, "start", getEnv("START", ""), "First target timestamp (required)")
	fs.StringVar(&cfg.EndRaw, "end", getEnv("END", ""), "Last target timestamp (required)")
	fs.DurationVar(&cfg.Step, "step", getEnvDuration("STEP", time.Hour), "Forecast step size")
	fs.StringVar(&cfg.HistoryStartRaw, "history-start", getEnv("HISTORY_START", ""), "Earliest history to load (default: adapter's lookback)")
	fs.StringVar(&cfg.HistoryEndRaw, "history-end", getEnv("HISTORY_END", ""), "Latest history to load (default: everything available)")

	fs.IntVar(&cfg.ComparisonDays, "comparison-days", getEnvInt("COMPARISON_DAYS", models.DefaultComparisonDays), "Maximum comparison days per step")
	fs.StringVar(&cfg.WeekdayGroups, "weekday-groups", getEnv("WEEKDAY_GROUPS", DefaultWeekdayGroups), "Weekday groups as JSON: label to list of weekdays (0=Monday)")
	fs.StringVar(&cfg.HolidayMap, "holiday-map", getEnv("HOLIDAY_MAP", ""), "Holiday overrides as JSON: date (YYYY-MM-DD or MM-DD) to weekday")
	fs.StringVar(&cfg.CalendarFile, "calendar-file", getEnv("CALENDAR_FILE", ""), "YAML calendar file; overrides -weekday-groups and -holiday-map")
	fs.StringVar(&cfg.Model, "model", getEnv("MODEL", "analog"), "Forecasting model: analog or naive")
	fs.IntVar(&cfg.Workers, "workers", getEnvInt("WORKERS", 1), "Goroutines computing forecast steps")

	fs.StringVar(&cfg.Output, "output", getEnv("OUTPUT", "text"), "Output format: text, json, or none")
	fs.IntVar(&cfg.Head, "head", getEnvInt("HEAD", 0), "Print only the first N predictions (0 prints all)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.AdapterConfig = parseAdapterConfig()
	if cfg.Files != "" {
		cfg.AdapterConfig["paths"] = cfg.Files
	}
	if _, ok := cfg.AdapterConfig["timezone"]; !ok {
		cfg.AdapterConfig["timezone"] = cfg.Timezone
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required settings and resolves the timestamp flags.
func (c *Config) Validate() error {
	if c.Adapter == "" {
		return errors.New("--adapter is required")
	}
	if c.StartRaw == "" {
		return errors.New("--start is required")
	}
	if c.EndRaw == "" {
		return errors.New("--end is required")
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if c.Start, err = parseTime("start", c.StartRaw, loc); err != nil {
		return err
	}
	if c.End, err = parseTime("end", c.EndRaw, loc); err != nil {
		return err
	}
	if c.HistoryStart, err = parseTime("history-start", c.HistoryStartRaw, loc); err != nil {
		return err
	}
	if c.HistoryEnd, err = parseTime("history-end", c.HistoryEndRaw, loc); err != nil {
		return err
	}

	if err := c.Period().Validate(); err != nil {
		return err
	}
	if !c.HistoryStart.IsZero() && !c.HistoryEnd.IsZero() && c.HistoryEnd.Before(c.HistoryStart) {
		return fmt.Errorf("history-end %s precedes history-start %s", c.HistoryEndRaw, c.HistoryStartRaw)
	}

	if !seriesNameRegex.MatchString(c.Series) {
		return fmt.Errorf("invalid series name %q (must be alphanumeric with dash/underscore/dot, 1-253 chars)", c.Series)
	}
	if c.ComparisonDays <= 0 {
		return fmt.Errorf("comparison-days must be > 0, got %d", c.ComparisonDays)
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MemoryTTL < 0 {
		return fmt.Errorf("memory-ttl must be >= 0, got %v", c.MemoryTTL)
	}
	if c.StaleAfter < 0 {
		return fmt.Errorf("stale-after must be >= 0, got %v", c.StaleAfter)
	}
	if c.Head < 0 {
		return fmt.Errorf("head must be >= 0, got %d", c.Head)
	}

	switch c.Model {
	case "analog", "naive":
	default:
		return fmt.Errorf("invalid model %q (must be analog or naive)", c.Model)
	}
	switch c.Output {
	case "text", "json", "none":
	default:
		return fmt.Errorf("invalid output %q (must be text, json, or none)", c.Output)
	}
	switch c.Storage {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}

	return nil
}

// Period returns the target period.
func (c *Config) Period() models.Period {
	return models.Period{Start: c.Start, End: c.End, Step: c.Step}
}

// HistoryRange returns the range of history to load.
func (c *Config) HistoryRange() adapters.Range {
	return adapters.Range{Start: c.HistoryStart, End: c.HistoryEnd}
}

func parseTime(name, raw string, loc *time.Location) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := adapters.ParseTimestamp(raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return t, nil
}

// parseAdapterConfig parses ADAPTER_* environment variables into a generic configuration map.
// Adapter-specific configuration is provided via environment variables with the ADAPTER_ prefix.
// For example: ADAPTER_QUERY, ADAPTER_URL, ADAPTER_VALUE_PATH
// Environment variable names are converted to camelCase for the map keys (ADAPTER_QUERY -> query).
func parseAdapterConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || len(name) <= len("ADAPTER_") || !strings.HasPrefix(name, "ADAPTER_") {
			continue
		}
		config[toLowerCamelCase(strings.TrimPrefix(name, "ADAPTER_"))] = value
	}

	return config
}

func toLowerCamelCase(s string) string {
	parts := strings.Split(strings.ToLower(s), "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i > 0 && b.Len() > 0 {
			b.WriteString(strings.ToUpper(p[:1]))
			b.WriteString(p[1:])
			continue
		}
		b.WriteString(p)
	}
	return b.String()
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
