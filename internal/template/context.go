package template

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"alpaca/internal/merge"
)

// Context is the data a manifest is rendered with.
type Context struct {
	Values map[string]any
}

func (c Context) data() map[string]any {
	values := c.Values
	if values == nil {
		values = map[string]any{}
	}
	return map[string]any{"Values": values}
}

// Lookup resolves a dotted path such as "system.name" in the values.
func (c Context) Lookup(path string) (any, bool) {
	var cur any = c.Values
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// MergeValues merges multiple value sets into one. Later sets override
// earlier ones; nested maps are merged key by key.
func MergeValues(sets ...map[string]any) (map[string]any, error) {
	var result any = map[string]any{}
	for _, set := range sets {
		if set == nil {
			continue
		}
		merged, err := merge.Merge(result, set)
		if err != nil {
			return nil, err
		}
		result = merged
	}
	return result.(map[string]any), nil
}

// ParseSet turns key=value assignments into nested values. Dots in the key
// create nested maps: "system.name=SYS" yields {"system": {"name": "SYS"}}.
// Values are kept as strings.
func ParseSet(assignments []string) (map[string]any, error) {
	values := map[string]any{}
	for _, a := range assignments {
		key, value, ok := strings.Cut(a, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid value %q: expected key=value", a)
		}
		parts := strings.Split(key, ".")
		cur := values
		for i, part := range parts {
			if part == "" {
				return nil, fmt.Errorf("invalid key %q: empty segment", key)
			}
			if i == len(parts)-1 {
				cur[part] = value
				break
			}
			next, ok := cur[part].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[part] = next
			}
			cur = next
		}
	}
	return values, nil
}

// LoadValuesFile reads a YAML mapping of values.
func LoadValuesFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}
	values := map[string]any{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse values file %s: %w", path, err)
	}
	return values, nil
}
