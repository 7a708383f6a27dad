package calendar

// HolidayMap reassigns specific days to a substitute weekday ordinal.
//
// Dated entries apply to one calendar date. Annual entries apply to a
// month-day in every year. A dated entry takes precedence over an annual
// one for the same day. The zero value is an empty map.
type HolidayMap struct {
	dates  map[Date]Weekday
	annual map[MonthDay]Weekday
}

// NewHolidayMap returns an empty holiday map.
func NewHolidayMap() *HolidayMap {
	return &HolidayMap{
		dates:  make(map[Date]Weekday),
		annual: make(map[MonthDay]Weekday),
	}
}

// Set overrides the weekday of a single date.
func (h *HolidayMap) Set(d Date, w Weekday) {
	if h.dates == nil {
		h.dates = make(map[Date]Weekday)
	}
	h.dates[d] = w
}

// SetAnnual overrides the weekday of a month-day in every year.
func (h *HolidayMap) SetAnnual(md MonthDay, w Weekday) {
	if h.annual == nil {
		h.annual = make(map[MonthDay]Weekday)
	}
	h.annual[md] = w
}

// Lookup returns the override for d, if any.
func (h *HolidayMap) Lookup(d Date) (Weekday, bool) {
	if h == nil {
		return 0, false
	}
	if w, ok := h.dates[d]; ok {
		return w, true
	}
	if w, ok := h.annual[d.MonthDay()]; ok {
		return w, true
	}
	return 0, false
}

// Len returns the number of dated and annual entries.
func (h *HolidayMap) Len() int {
	if h == nil {
		return 0
	}
	return len(h.dates) + len(h.annual)
}
