package calendar

import (
	"fmt"
	"sort"
)

// Group is a named set of weekday ordinals.
type Group struct {
	Label string
	Days  []Weekday
}

// WeekdayGroups partitions weekday ordinals into labelled groups.
// Each ordinal belongs to at most one group. Ordinals that belong to no
// group are allowed at construction and rejected when classified.
type WeekdayGroups struct {
	groups []Group
	byDay  [7]string
}

// DefaultWeekdayGroups returns Mon-Thu, Friday, Saturday and Sunday.
func DefaultWeekdayGroups() *WeekdayGroups {
	g, err := NewWeekdayGroups(map[string][]Weekday{
		"Mon-Thu":  {Monday, Tuesday, Wednesday, Thursday},
		"Friday":   {Friday},
		"Saturday": {Saturday},
		"Sunday":   {Sunday},
	})
	if err != nil {
		panic(err)
	}
	return g
}

// NewWeekdayGroups builds a group map from label → ordinals.
//
// Returns an error if a label is empty, a group has no ordinals, an ordinal
// is outside 0..6, or an ordinal appears in more than one group.
func NewWeekdayGroups(m map[string][]Weekday) (*WeekdayGroups, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("weekday groups cannot be empty")
	}

	labels := make([]string, 0, len(m))
	for label := range m {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	wg := &WeekdayGroups{groups: make([]Group, 0, len(m))}
	for _, label := range labels {
		days := m[label]
		if label == "" {
			return nil, fmt.Errorf("weekday group label cannot be empty")
		}
		if len(days) == 0 {
			return nil, fmt.Errorf("weekday group %q has no weekdays", label)
		}

		seen := make([]Weekday, 0, len(days))
		for _, d := range days {
			if !d.Valid() {
				return nil, fmt.Errorf("weekday group %q: ordinal %d out of range [0, 6]", label, int(d))
			}
			if owner := wg.byDay[d]; owner != "" {
				if owner == label {
					continue
				}
				return nil, fmt.Errorf("weekday %d is in both %q and %q", int(d), owner, label)
			}
			wg.byDay[d] = label
			seen = append(seen, d)
		}
		sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
		wg.groups = append(wg.groups, Group{Label: label, Days: seen})
	}

	return wg, nil
}

// Lookup returns the label of the group containing w.
func (g *WeekdayGroups) Lookup(w Weekday) (string, bool) {
	if g == nil || !w.Valid() {
		return "", false
	}
	label := g.byDay[w]
	return label, label != ""
}

// Groups returns the groups ordered by label.
func (g *WeekdayGroups) Groups() []Group {
	out := make([]Group, len(g.groups))
	copy(out, g.groups)
	return out
}

// Unmapped returns the ordinals no group contains, in ascending order.
func (g *WeekdayGroups) Unmapped() []Weekday {
	var out []Weekday
	for d := Monday; d <= Sunday; d++ {
		if g.byDay[d] == "" {
			out = append(out, d)
		}
	}
	return out
}
