package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/HatiCode/analogcast/pkg/calendar"
)

func date(y int, m time.Month, d int) calendar.Date {
	return calendar.Date{Year: y, Month: m, Day: d}
}

func TestSelectComparisonDays(t *testing.T) {
	history := []calendar.Date{
		date(2019, 12, 25),
		date(2020, 12, 24),
		date(2020, 12, 25),
		date(2021, 12, 25),
		date(2022, 12, 25),
		date(2023, 12, 25),
		date(2023, 12, 26),
	}

	tests := []struct {
		name   string
		target calendar.Date
		hist   []calendar.Date
		n      int
		want   []calendar.Date
	}{
		{
			name:   "nearest four",
			target: date(2024, 12, 25),
			hist:   history,
			n:      4,
			want:   []calendar.Date{date(2023, 12, 25), date(2022, 12, 25), date(2021, 12, 25), date(2020, 12, 25)},
		},
		{
			name:   "fewer candidates than n",
			target: date(2024, 12, 26),
			hist:   history,
			n:      4,
			want:   []calendar.Date{date(2023, 12, 26)},
		},
		{
			name:   "no candidates",
			target: date(2024, 7, 4),
			hist:   history,
			n:      4,
			want:   nil,
		},
		{
			name:   "zero n",
			target: date(2024, 12, 25),
			hist:   history,
			n:      0,
			want:   nil,
		},
		{
			name:   "equidistant picks earlier",
			target: date(2022, 6, 15),
			hist:   []calendar.Date{date(2023, 6, 15), date(2021, 6, 15)},
			n:      1,
			want:   []calendar.Date{date(2021, 6, 15)},
		},
		{
			name:   "equidistant order",
			target: date(2022, 6, 15),
			hist:   []calendar.Date{date(2023, 6, 15), date(2021, 6, 15)},
			n:      2,
			want:   []calendar.Date{date(2021, 6, 15), date(2023, 6, 15)},
		},
		{
			name:   "leap day only matches leap days",
			target: date(2028, 2, 29),
			hist:   []calendar.Date{date(2020, 2, 29), date(2023, 2, 28), date(2024, 2, 29), date(2025, 3, 1)},
			n:      4,
			want:   []calendar.Date{date(2024, 2, 29), date(2020, 2, 29)},
		},
		{
			name:   "duplicates collapse",
			target: date(2024, 12, 25),
			hist:   []calendar.Date{date(2023, 12, 25), date(2023, 12, 25)},
			n:      4,
			want:   []calendar.Date{date(2023, 12, 25)},
		},
		{
			name:   "target date itself and later years",
			target: date(2022, 12, 25),
			hist:   history,
			n:      3,
			want:   []calendar.Date{date(2022, 12, 25), date(2021, 12, 25), date(2023, 12, 25)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectComparisonDays(tt.target, tt.hist, tt.n)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("SelectComparisonDays() mismatch (-want +got):\n%s", diff)
			}
			if len(got) > tt.n && tt.n >= 0 {
				t.Errorf("returned %d days, bound is %d", len(got), tt.n)
			}
		})
	}
}
