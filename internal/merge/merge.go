package merge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// NameKey identifies items of a named list.
const NameKey = "name"

// MissingNameError is returned when an item of a named list has no "name"
// key or a null one.
type MissingNameError struct {
	Path  string
	Side  string
	Index int
}

func (e *MissingNameError) Error() string {
	path := e.Path
	if path == "" {
		path = "<root>"
	}
	return fmt.Sprintf("%s list %s: item %d has no %q key", e.Side, path, e.Index, NameKey)
}

// Merge returns base overlaid with override. Neither input is modified.
// A nil override returns base unchanged.
func Merge(base, override any) (any, error) {
	if override == nil {
		return base, nil
	}
	return merge(base, override, "")
}

func merge(base, override any, path string) (any, error) {
	overrideMap, ok := override.(map[string]any)
	if !ok {
		return override, nil
	}
	baseMap, ok := base.(map[string]any)
	if !ok {
		return override, nil
	}

	merged := make(map[string]any, len(baseMap)+len(overrideMap))
	for k, v := range baseMap {
		merged[k] = v
	}

	for key, value := range overrideMap {
		if value == nil {
			continue
		}
		child := join(path, key)
		switch ov := value.(type) {
		case map[string]any:
			if bv, ok := merged[key].(map[string]any); ok {
				m, err := merge(bv, ov, child)
				if err != nil {
					return nil, err
				}
				merged[key] = m
				continue
			}
		case []any:
			if bv, ok := merged[key].([]any); ok {
				l, err := mergeLists(bv, ov, child)
				if err != nil {
					return nil, err
				}
				merged[key] = l
				continue
			}
		}
		merged[key] = value
	}
	return merged, nil
}

// MergeLists merges two lists. Lists of named records merge by name, every
// other combination returns override.
func MergeLists(base, override []any) ([]any, error) {
	return mergeLists(base, override, "")
}

func mergeLists(base, override []any, path string) ([]any, error) {
	if len(override) == 0 {
		return base, nil
	}
	if len(base) == 0 {
		return override, nil
	}
	if !named(base[0]) || !named(override[0]) {
		return override, nil
	}

	result := make([]any, 0, len(base)+len(override))
	index := make(map[string]int, len(base))
	for i, item := range base {
		name, ok := nameOf(item)
		if !ok {
			return nil, &MissingNameError{Path: path, Side: "base", Index: i}
		}
		if _, dup := index[name]; !dup {
			index[name] = len(result)
		}
		result = append(result, item)
	}

	for i, item := range override {
		name, ok := nameOf(item)
		if !ok {
			return nil, &MissingNameError{Path: path, Side: "override", Index: i}
		}
		pos, exists := index[name]
		if !exists {
			index[name] = len(result)
			result = append(result, item)
			continue
		}
		m, err := merge(result[pos], item, path+"["+strconv.Quote(name)+"]")
		if err != nil {
			return nil, err
		}
		result[pos] = m
	}
	return result, nil
}

func named(item any) bool {
	m, ok := item.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[NameKey]
	return ok
}

func nameOf(item any) (string, bool) {
	m, ok := item.(map[string]any)
	if !ok {
		return "", false
	}
	switch name := m[NameKey].(type) {
	case nil:
		return "", false
	case string:
		return name, true
	default:
		// Non-string names never collide with string ones.
		return fmt.Sprintf("%T:%v", name, name), true
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// MergeJSON decodes two JSON documents, merges them and returns the result
// as compact JSON. Numbers are carried through verbatim.
func MergeJSON(baseJSON, overrideJSON string) ([]byte, error) {
	base, err := decode(baseJSON)
	if err != nil {
		return nil, fmt.Errorf("invalid default JSON: %w", err)
	}
	override, err := decode(overrideJSON)
	if err != nil {
		return nil, fmt.Errorf("invalid override JSON: %w", err)
	}

	merged, err := Merge(base, override)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(merged); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decode(s string) (any, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}
