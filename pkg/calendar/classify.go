package calendar

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnmappedWeekday is matched by every *UnmappedWeekdayError.
var ErrUnmappedWeekday = errors.New("weekday not mapped to any group")

// UnmappedWeekdayError reports a day whose effective weekday ordinal, after
// holiday overrides, is contained in no weekday group.
type UnmappedWeekdayError struct {
	Date    Date
	Weekday Weekday
	// Override is true when Weekday came from the holiday map.
	Override bool
}

func (e *UnmappedWeekdayError) Error() string {
	src := "natural"
	if e.Override {
		src = "holiday override"
	}
	return fmt.Sprintf("%s: weekday %d (%s, %s) not mapped to any group", e.Date, int(e.Weekday), e.Weekday, src)
}

// Is reports whether target is ErrUnmappedWeekday.
func (e *UnmappedWeekdayError) Is(target error) bool {
	return target == ErrUnmappedWeekday
}

// Calendar combines a weekday group map with holiday overrides.
// It is immutable after construction and safe for concurrent use.
type Calendar struct {
	Groups   *WeekdayGroups
	Holidays *HolidayMap
}

// New returns a Calendar. holidays may be nil.
func New(groups *WeekdayGroups, holidays *HolidayMap) *Calendar {
	return &Calendar{Groups: groups, Holidays: holidays}
}

// EffectiveWeekday returns the weekday used for grouping d: the holiday
// override if one exists, else d's natural weekday.
func (c *Calendar) EffectiveWeekday(d Date) (Weekday, bool) {
	if w, ok := c.Holidays.Lookup(d); ok {
		return w, true
	}
	return d.Weekday(), false
}

// ClassifyDate returns the group label of d.
func (c *Calendar) ClassifyDate(d Date) (string, error) {
	w, override := c.EffectiveWeekday(d)
	label, ok := c.Groups.Lookup(w)
	if !ok {
		return "", &UnmappedWeekdayError{Date: d, Weekday: w, Override: override}
	}
	return label, nil
}

// Classify returns the group label of t's calendar date.
func (c *Calendar) Classify(t time.Time) (string, error) {
	return c.ClassifyDate(DateOf(t))
}

// Classify returns the weekday group label of t, honoring holidays.
// holidays may be nil.
func Classify(t time.Time, groups *WeekdayGroups, holidays *HolidayMap) (string, error) {
	return New(groups, holidays).Classify(t)
}
