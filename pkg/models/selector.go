package models

import (
	"sort"

	"github.com/HatiCode/analogcast/pkg/calendar"
)

// SelectComparisonDays returns up to n dates from historical that share
// target's month and day, closest first by elapsed days. Equidistant dates
// are ordered earliest first. Fewer than n dates are returned when history
// is short, and nil when there is no candidate or n <= 0.
//
// Callers that match on weekday groups pass an already filtered historical
// slice.
func SelectComparisonDays(target calendar.Date, historical []calendar.Date, n int) []calendar.Date {
	if n <= 0 {
		return nil
	}

	md := target.MonthDay()
	targetDay := target.Days()

	type candidate struct {
		date     calendar.Date
		distance int
	}
	seen := make(map[calendar.Date]struct{})
	var pool []candidate
	for _, d := range historical {
		if d.MonthDay() != md {
			continue
		}
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dist := d.Days() - targetDay
		if dist < 0 {
			dist = -dist
		}
		pool = append(pool, candidate{date: d, distance: dist})
	}
	if len(pool) == 0 {
		return nil
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].distance != pool[j].distance {
			return pool[i].distance < pool[j].distance
		}
		return pool[i].date.Before(pool[j].date)
	})

	if len(pool) > n {
		pool = pool[:n]
	}
	out := make([]calendar.Date, len(pool))
	for i, c := range pool {
		out[i] = c.date
	}
	return out
}
