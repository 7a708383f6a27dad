package calendar

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// ParseWeekdayGroupsJSON parses a JSON object of label → array of weekdays,
// for example {"Mon-Thu":[0,1,2,3],"Friday":[4],"Weekend":["sat","sun"]}.
// Array members may be integer ordinals or weekday names.
func ParseWeekdayGroupsJSON(s string) (*WeekdayGroups, error) {
	root, err := parseObject(s)
	if err != nil {
		return nil, fmt.Errorf("weekday groups: %w", err)
	}

	raw := make(map[string][]string)
	root.ForEach(func(key, value gjson.Result) bool {
		if _, dup := raw[key.String()]; dup {
			err = fmt.Errorf("weekday groups: duplicate group %q", key.String())
			return false
		}
		if !value.IsArray() {
			err = fmt.Errorf("weekday groups: group %q must be an array", key.String())
			return false
		}
		var days []string
		for _, elem := range value.Array() {
			day, convErr := jsonWeekday(elem)
			if convErr != nil {
				err = fmt.Errorf("weekday groups: group %q: %w", key.String(), convErr)
				return false
			}
			days = append(days, day)
		}
		raw[key.String()] = days
		return true
	})
	if err != nil {
		return nil, err
	}

	return weekdayGroupsFromStrings(raw)
}

// ParseHolidayMapJSON parses a JSON object of date → weekday, for example
// {"2024-12-25":5,"01-01":"sunday"}. Keys are either full dates
// ("2006-01-02") or annual month-days ("01-02").
func ParseHolidayMapJSON(s string) (*HolidayMap, error) {
	root, err := parseObject(s)
	if err != nil {
		return nil, fmt.Errorf("holiday map: %w", err)
	}

	raw := make(map[string]string)
	root.ForEach(func(key, value gjson.Result) bool {
		if _, dup := raw[key.String()]; dup {
			err = fmt.Errorf("holiday map: duplicate date %q", key.String())
			return false
		}
		day, convErr := jsonWeekday(value)
		if convErr != nil {
			err = fmt.Errorf("holiday map: %q: %w", key.String(), convErr)
			return false
		}
		raw[key.String()] = day
		return true
	})
	if err != nil {
		return nil, err
	}

	return holidayMapFromStrings(raw)
}

func parseObject(s string) (gjson.Result, error) {
	s = strings.TrimSpace(s)
	if !gjson.Valid(s) {
		return gjson.Result{}, fmt.Errorf("invalid JSON")
	}
	root := gjson.Parse(s)
	if !root.IsObject() {
		return gjson.Result{}, fmt.Errorf("expected a JSON object, got %s", root.Type)
	}
	return root, nil
}

// jsonWeekday normalises a JSON weekday value to its string form so JSON
// and YAML share one parser.
func jsonWeekday(v gjson.Result) (string, error) {
	switch v.Type {
	case gjson.Number:
		if v.Float() != float64(v.Int()) {
			return "", fmt.Errorf("weekday %s is not an integer", v.Raw)
		}
		return strconv.FormatInt(v.Int(), 10), nil
	case gjson.String:
		return v.String(), nil
	default:
		return "", fmt.Errorf("weekday must be a number or name, got %s", v.Raw)
	}
}

// File is the YAML calendar file layout:
//
//	weekdayGroups:
//	  Mon-Thu: [0, 1, 2, 3]
//	  Friday: [friday]
//	  Saturday: [5]
//	  Sunday: [6]
//	holidays:
//	  "2024-12-25": saturday
//	  "01-01": 6
type File struct {
	WeekdayGroups map[string][]string `yaml:"weekdayGroups"`
	Holidays      map[string]string   `yaml:"holidays"`
}

// LoadFile reads a YAML calendar file. A file without weekdayGroups
// yields the default groups.
func LoadFile(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	cal, err := ParseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("calendar file %s: %w", path, err)
	}
	return cal, nil
}

// ParseYAML decodes a calendar document in the [File] layout.
func ParseYAML(data []byte) (*Calendar, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}

	groups := DefaultWeekdayGroups()
	if len(f.WeekdayGroups) > 0 {
		var err error
		if groups, err = weekdayGroupsFromStrings(f.WeekdayGroups); err != nil {
			return nil, err
		}
	}

	holidays, err := holidayMapFromStrings(f.Holidays)
	if err != nil {
		return nil, err
	}

	return New(groups, holidays), nil
}

func weekdayGroupsFromStrings(raw map[string][]string) (*WeekdayGroups, error) {
	m := make(map[string][]Weekday, len(raw))
	for label, days := range raw {
		for _, s := range days {
			w, err := ParseWeekday(s)
			if err != nil {
				return nil, fmt.Errorf("weekday group %q: %w", label, err)
			}
			m[label] = append(m[label], w)
		}
		if _, ok := m[label]; !ok {
			m[label] = nil
		}
	}
	return NewWeekdayGroups(m)
}

func holidayMapFromStrings(raw map[string]string) (*HolidayMap, error) {
	h := NewHolidayMap()
	for key, value := range raw {
		w, err := ParseWeekday(value)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", key, err)
		}

		key = strings.TrimSpace(key)
		if len(key) == len("01-02") {
			md, err := ParseMonthDay(key)
			if err != nil {
				return nil, fmt.Errorf("holiday %q: %w", key, err)
			}
			h.SetAnnual(md, w)
			continue
		}

		d, err := ParseDate(key)
		if err != nil {
			return nil, fmt.Errorf("holiday %q: %w", key, err)
		}
		h.Set(d, w)
	}
	return h, nil
}
