package adapters

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/HatiCode/analogcast/pkg/series"
)

// timestampLayouts are tried in order when TimestampFormat is empty.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	time.DateOnly,
}

// CSVAdapter reads observations from CSV files.
//
// Every file must have a header row. The timestamp column is TimeColumn,
// or the first column when TimeColumn is empty; all other columns are
// numeric values. Empty cells are read as NaN. Rows from all files are
// merged and sorted; files must share the same value columns, and a
// timestamp present in two files is an error.
type CSVAdapter struct {
	// Paths lists the files to read (required).
	Paths []string

	// TimeColumn names the timestamp column. Defaults to the first column.
	TimeColumn string

	// TimestampFormat is a Go time layout. When empty, RFC3339 and common
	// "2006-01-02 15:04:05" style layouts are tried.
	TimestampFormat string

	// Location is used for timestamps without a zone. Defaults to UTC.
	Location *time.Location

	// Delimiter defaults to ','.
	Delimiter rune
}

func (c *CSVAdapter) Name() string { return "csv" }

// Load implements Adapter. Rows outside r are dropped.
func (c *CSVAdapter) Load(ctx context.Context, r Range) (*series.Table, error) {
	if len(c.Paths) == 0 {
		return nil, errors.New("csv adapter: at least one path is required")
	}

	b := series.NewBuilder()
	for _, path := range c.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.loadFile(path, r, b); err != nil {
			return nil, fmt.Errorf("csv adapter: %s: %w", path, err)
		}
	}

	table, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("csv adapter: %w", err)
	}
	return table, nil
}

func (c *CSVAdapter) loadFile(path string, r Range, b *series.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.read(f, r, b)
}

func (c *CSVAdapter) read(in io.Reader, r Range, b *series.Builder) error {
	reader := csv.NewReader(in)
	if c.Delimiter != 0 {
		reader.Comma = c.Delimiter
	}
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty file")
		}
		return fmt.Errorf("read header: %w", err)
	}

	timeIdx := 0
	if c.TimeColumn != "" {
		timeIdx = -1
		for i, h := range header {
			if strings.TrimSpace(h) == c.TimeColumn {
				timeIdx = i
				break
			}
		}
		if timeIdx < 0 {
			return fmt.Errorf("time column %q not found in header %v", c.TimeColumn, header)
		}
	}

	columns := make([]string, 0, len(header)-1)
	for i, h := range header {
		if i != timeIdx {
			columns = append(columns, strings.TrimSpace(h))
		}
	}
	if len(columns) == 0 {
		return errors.New("no value columns")
	}
	if err := b.SetColumns(columns); err != nil {
		return err
	}

	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := c.parseTimestamp(record[timeIdx], loc)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !r.Contains(ts) {
			continue
		}

		values := make([]float64, 0, len(columns))
		for i, cell := range record {
			if i == timeIdx {
				continue
			}
			v, err := parseCell(cell)
			if err != nil {
				return fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			values = append(values, v)
		}
		b.Add(ts, values...)
	}

	return nil
}

func (c *CSVAdapter) parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if c.TimestampFormat != "" {
		return time.ParseInLocation(c.TimestampFormat, s, loc)
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func parseCell(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// ParseTimestamp parses s with the layouts CSVAdapter accepts by default.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	return (&CSVAdapter{}).parseTimestamp(s, loc)
}
