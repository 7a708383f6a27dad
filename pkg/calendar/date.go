// Package calendar classifies days into weekday groups for analog forecasting.
//
// A day's group is derived from its weekday ordinal (Monday=0 … Sunday=6),
// optionally replaced by a holiday override, and then looked up in a
// [WeekdayGroups] partition. Classification of an ordinal that no group
// contains fails with an [*UnmappedWeekdayError]; it is never defaulted.
package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is a weekday ordinal using the Monday=0 convention.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [...]string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// WeekdayOf converts a Go weekday (Sunday=0) to the Monday=0 ordinal.
func WeekdayOf(wd time.Weekday) Weekday {
	return Weekday((int(wd) + 6) % 7)
}

// Valid reports whether w is in 0..6.
func (w Weekday) Valid() bool {
	return w >= Monday && w <= Sunday
}

func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	s := weekdayNames[w]
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParseWeekday accepts an ordinal ("0".."6"), a full English name or a
// three-letter abbreviation, case-insensitively.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty weekday")
	}

	if n, err := strconv.Atoi(s); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, fmt.Errorf("weekday ordinal %d out of range [0, 6]", n)
		}
		return w, nil
	}

	for i, name := range weekdayNames {
		if s == name || s == name[:3] {
			return Weekday(i), nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Date is a civil calendar date without time or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses an ISO "2006-01-02" date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days since the Unix epoch. Differences
// between two dates' Days are elapsed calendar days.
func (d Date) Days() int {
	return int(d.Time().Unix() / 86400)
}

// Weekday returns d's natural weekday ordinal.
func (d Date) Weekday() Weekday {
	return WeekdayOf(d.Time().Weekday())
}

// MonthDay returns the annual recurrence key of d.
func (d Date) MonthDay() MonthDay {
	return MonthDay{Month: d.Month, Day: d.Day}
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText encodes d as "2006-01-02".
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes a "2006-01-02" date.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthDay is a (month, day) pair that recurs every year.
type MonthDay struct {
	Month time.Month
	Day   int
}

// ParseMonthDay parses "01-02" (month-day).
func ParseMonthDay(s string) (MonthDay, error) {
	// Parse inside a leap year so "02-29" is accepted.
	t, err := time.Parse("2006-01-02", "2000-"+strings.TrimSpace(s))
	if err != nil {
		return MonthDay{}, fmt.Errorf("parse month-day %q: %w", s, err)
	}
	return MonthDay{Month: t.Month(), Day: t.Day()}, nil
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// Clock returns the time-of-day of t as an offset from midnight, read from
// t's wall clock in its own location.
func Clock(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}
