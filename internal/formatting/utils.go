package formatting

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"alpaca/internal/reconciler"
	pkgstrings "alpaca/pkg/strings"
)

// newCommandKey marks a command set entry that would be created rather than
// updated.
const newCommandKey = "new_command_payload"

// maxCellWidth bounds the width of table and console values.
const maxCellWidth = pkgstrings.DefaultCellMaxLen

// PrettyJSON formats any value as indented JSON for human-readable display.
// It falls back to fmt.Sprintf when v cannot be marshaled.
func PrettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// CompactJSON formats v as single-line JSON.
func CompactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// ChangeRow is one line of a rendered diff.
type ChangeRow struct {
	Field   string
	Current string
	Desired string
}

// ChangeRows flattens the changes of a Result into rows sorted by field.
// Nested sections join their keys with dots. A command set creation shows
// "(absent)" on the current side.
func ChangeRows(changes any) []ChangeRow {
	var rows []ChangeRow
	collectChanges(changes, "", &rows)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Field < rows[j].Field })
	return rows
}

func collectChanges(v any, prefix string, rows *[]ChangeRow) {
	switch t := v.(type) {
	case reconciler.Change:
		*rows = append(*rows, ChangeRow{Field: prefix, Current: Cell(t.Current), Desired: Cell(t.Desired)})
	case *reconciler.Change:
		if t != nil {
			collectChanges(*t, prefix, rows)
		}
	case reconciler.DiffTree:
		collectMap(t, prefix, rows)
	case map[string]any:
		collectMap(t, prefix, rows)
	}
}

func collectMap(m map[string]any, prefix string, rows *[]ChangeRow) {
	for key, v := range m {
		if key == newCommandKey {
			*rows = append(*rows, ChangeRow{Field: prefix, Current: "(absent)", Desired: Cell(v)})
			continue
		}
		collectChanges(v, join(prefix, key), rows)
	}
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

// Cell renders a value for a table cell or console line. Scalars print as
// is, lists of scalars are comma separated, everything else is compact JSON.
func Cell(v any) string {
	var s string
	switch t := v.(type) {
	case nil:
		s = ""
	case string, json.Number, bool, float64, float32, int, int64:
		s = reconciler.String(t)
	case []string:
		s = strings.Join(t, ", ")
	case []any:
		if parts, ok := scalarStrings(t); ok {
			s = strings.Join(parts, ", ")
		} else {
			s = CompactJSON(t)
		}
	default:
		s = CompactJSON(t)
	}
	return pkgstrings.Truncate(s, maxCellWidth)
}

func scalarStrings(items []any) ([]string, bool) {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return nil, false
		}
		out = append(out, reconciler.String(item))
	}
	return out, true
}

// preferredColumns lists the columns shown for each listable kind.
var preferredColumns = map[string][]string{
	"agents":   {"id", "hostname", "description", "ipAddress", "status"},
	"groups":   {"id", "name", "description"},
	"systems":  {"id", "name", "description", "groupName"},
	"commands": {"id", "name", "agentHostname", "processId"},
	"contexts": {"current", "name", "url", "username"},
}

const maxAutoColumns = 6

// Columns picks the table columns for items: the preferred columns for kind
// that occur in the data, or else the sorted scalar keys.
func Columns(kind string, items []reconciler.Record) []string {
	present := map[string]bool{}
	for _, item := range items {
		for k, v := range item {
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			present[k] = true
		}
	}

	var cols []string
	for _, c := range preferredColumns[kind] {
		if present[c] {
			cols = append(cols, c)
		}
	}
	if len(cols) > 0 {
		return cols
	}

	for k := range present {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	if len(cols) > maxAutoColumns {
		cols = cols[:maxAutoColumns]
	}
	return cols
}
