package adapters

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestCSVAdapter_Load(t *testing.T) {
	path := writeCSV(t, "load.csv", `datetime,north,south
2024-01-01 01:00:00,11,21
2024-01-01 00:00:00,10,20
2024-01-01 02:00:00,,22
`)

	ad := &CSVAdapter{Paths: []string{path}}
	table, err := ad.Load(context.Background(), Range{})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	cols := table.Columns()
	if len(cols) != 2 || cols[0] != "north" || cols[1] != "south" {
		t.Errorf("columns = %v, want [north south]", cols)
	}
	if got := table.Row(0).Values; got[0] != 10 || got[1] != 20 {
		t.Errorf("row 0 = %v, want [10 20]", got)
	}
	if got := table.Row(2).Values; !math.IsNaN(got[0]) || got[1] != 22 {
		t.Errorf("row 2 = %v, want [NaN 22]", got)
	}
}

func TestCSVAdapter_TimeColumnAndLocation(t *testing.T) {
	path := writeCSV(t, "load.csv", `value;stamp
5;2024-06-01T12:00
`)
	paris, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	ad := &CSVAdapter{Paths: []string{path}, TimeColumn: "stamp", Location: paris, Delimiter: ';'}
	table, err := ad.Load(context.Background(), Range{})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	want := time.Date(2024, 6, 1, 12, 0, 0, 0, paris)
	if got := table.Row(0).Time; !got.Equal(want) {
		t.Errorf("time = %v, want %v", got, want)
	}
	if got := table.Row(0).Values[0]; got != 5 {
		t.Errorf("value = %v, want 5", got)
	}
}

func TestCSVAdapter_MergesFiles(t *testing.T) {
	a := writeCSV(t, "2023.csv", "ts,load\n2023-12-31T23:00:00Z,1\n")
	b := writeCSV(t, "2024.csv", "ts,load\n2024-01-01T00:00:00Z,2\n2024-01-01T01:00:00Z,3\n")

	ad := &CSVAdapter{Paths: []string{b, a}}
	table, err := ad.Load(context.Background(), Range{})
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.Len() != 3 {
		t.Fatalf("expected 3 rows, got %d", table.Len())
	}
	if got := table.Row(0).Values[0]; got != 1 {
		t.Errorf("first row = %v, want 1", got)
	}
}

func TestCSVAdapter_Range(t *testing.T) {
	path := writeCSV(t, "load.csv", "ts,load\n2024-01-01,1\n2024-01-02,2\n2024-01-03,3\n2024-01-04,4\n")

	ad := &CSVAdapter{Paths: []string{path}}
	r := Range{
		Start: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC),
	}
	table, err := ad.Load(context.Background(), r)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 rows inside range, got %d", table.Len())
	}
}

func TestCSVAdapter_Errors(t *testing.T) {
	tests := []struct {
		name    string
		files   []string
		column  string
		wantMsg string
	}{
		{"empty file", []string{""}, "", "empty file"},
		{"header only time", []string{"ts\n"}, "", "no value columns"},
		{"missing time column", []string{"ts,load\n"}, "when", "time column"},
		{"bad timestamp", []string{"ts,load\nnot-a-date,1\n"}, "", "line 2"},
		{"bad value", []string{"ts,load\n2024-01-01,abc\n"}, "", `column "load"`},
		{"column mismatch", []string{"ts,load\n", "ts,other\n"}, "", "do not match"},
		{"duplicate across files", []string{"ts,load\n2024-01-01,1\n", "ts,load\n2024-01-01,2\n"}, "", "duplicate timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths []string
			for i, content := range tt.files {
				paths = append(paths, writeCSV(t, "f"+string(rune('a'+i))+".csv", content))
			}
			ad := &CSVAdapter{Paths: paths, TimeColumn: tt.column}
			_, err := ad.Load(context.Background(), Range{})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCSVAdapter_MissingFile(t *testing.T) {
	ad := &CSVAdapter{Paths: []string{filepath.Join(t.TempDir(), "absent.csv")}}
	if _, err := ad.Load(context.Background(), Range{}); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := (&CSVAdapter{}).Load(context.Background(), Range{}); err == nil {
		t.Fatal("expected error without paths")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-01T10:00:00Z", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)},
		{"2024-01-01T10:00:00+02:00", time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)},
		{"2024-01-01 10:30:15", time.Date(2024, 1, 1, 10, 30, 15, 0, time.UTC)},
		{"2024-01-01 10:30", time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-01-01", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in, time.UTC)
		if err != nil {
			t.Errorf("ParseTimestamp(%q) error: %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := ParseTimestamp("01/02/2024", time.UTC); err == nil {
		t.Error("expected error for unsupported layout")
	}
}
