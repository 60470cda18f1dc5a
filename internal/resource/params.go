package resource

import (
	"encoding/json"
	"sort"

	"alpaca/internal/reconciler"
)

const (
	statePresent = "present"
	stateAbsent  = "absent"
)

func stateOf(params Record) (string, error) {
	switch s := str(params["state"]); s {
	case "":
		return statePresent, nil
	case statePresent, stateAbsent:
		return s, nil
	default:
		return "", &ValidationError{Field: "state", Message: "must be one of present, absent, got " + s}
	}
}

func str(v any) string {
	return reconciler.String(v)
}

// truthy mirrors how optional manifest values are tested: null, empty
// strings, zero numbers, false and empty collections count as unset.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func clone(r Record) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func list(v any) []Record {
	items, _ := v.([]any)
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if rec, ok := item.(map[string]any); ok {
			out = append(out, rec)
		}
	}
	return out
}

func sortedNames(items []Record) []string {
	names := []string{}
	for _, item := range items {
		if name, ok := item["name"]; ok && name != nil {
			names = append(names, str(name))
		}
	}
	sort.Strings(names)
	return names
}
