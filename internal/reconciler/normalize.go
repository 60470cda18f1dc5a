package reconciler

import (
	"sort"
	"strings"

	pkgstrings "alpaca/pkg/strings"
)

var weekdays = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

// SortWeekdays orders a list of day names monday..sunday, ignoring case.
// Values that are not day names keep their relative order after the known
// days.
func SortWeekdays(v any) any {
	var days []any
	switch t := v.(type) {
	case []any:
		days = append(days, t...)
	case []string:
		for _, d := range t {
			days = append(days, d)
		}
	default:
		return v
	}

	rank := func(d any) int {
		s, ok := d.(string)
		if !ok {
			return len(weekdays)
		}
		if i, ok := weekdays[strings.ToLower(strings.TrimSpace(s))]; ok {
			return i
		}
		return len(weekdays)
	}
	sort.SliceStable(days, func(i, j int) bool { return rank(days[i]) < rank(days[j]) })
	if days == nil {
		days = []any{}
	}
	return days
}

// Upper upper-cases string values.
func Upper(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToUpper(s)
	}
	return v
}

// CollapseWhitespace trims a string and folds runs of whitespace into one
// space.
func CollapseWhitespace(v any) any {
	if s, ok := v.(string); ok {
		return pkgstrings.CollapseWhitespace(s)
	}
	return v
}

// ClearUnless sets path to "" unless its sibling companion equals want.
// path is dotted, for example "schedule.cronExpression".
func ClearUnless(path, companion, want string) Rule {
	return func(payload Record) {
		section, leaf := parent(payload, path)
		if section == nil {
			return
		}
		if String(section[companion]) != want {
			section[leaf] = ""
		}
	}
}

// NullWhen sets path to null when its sibling companion equals one of values.
func NullWhen(path, companion string, values ...string) Rule {
	return func(payload Record) {
		section, leaf := parent(payload, path)
		if section == nil {
			return
		}
		got := String(section[companion])
		for _, v := range values {
			if got == v {
				section[leaf] = nil
				return
			}
		}
	}
}

func parent(payload Record, path string) (Record, string) {
	parts := strings.Split(path, ".")
	section := payload
	for _, key := range parts[:len(parts)-1] {
		next, ok := section[key].(map[string]any)
		if !ok {
			return nil, ""
		}
		section = next
	}
	return section, parts[len(parts)-1]
}
