package reconciler

import (
	"sort"
	"strings"
)

// Diff compares payload against current field by field.
func (s *Schema) Diff(payload Record, current any) DiffTree {
	return diffSection(s.Fields, AsRecord(payload), AsRecord(current))
}

func diffSection(fields []Field, payload, current Record) DiffTree {
	tree := DiffTree{}
	for _, f := range fields {
		if f.WriteOnly {
			continue
		}
		if len(f.Fields) > 0 {
			sub := diffSection(f.Fields, AsRecord(payload[f.Name]), AsRecord(current[f.Name]))
			if !sub.IsEmpty() {
				tree[f.Name] = sub
			}
			continue
		}

		cur := current[f.Name]
		if cur != nil && f.Normalize != nil {
			cur = f.Normalize(cur)
		}
		want := payload[f.Name]
		if !Same(want, cur) {
			tree[f.Name] = Change{Current: cur, Desired: want}
		}
	}
	return tree
}

// Same reports whether two values are equal for diffing purposes. Null,
// empty strings and empty collections are interchangeable.
func Same(a, b any) bool {
	if blank(a) && blank(b) {
		return true
	}
	return Equal(a, b)
}

func blank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	default:
		return false
	}
}

// FlatChange is a Change addressed by its dotted path.
type FlatChange struct {
	Path    string
	Current any
	Desired any
}

// Flatten returns every change in the tree sorted by path.
func (d DiffTree) Flatten() []FlatChange {
	var out []FlatChange
	flatten(d, nil, &out)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func flatten(tree map[string]any, prefix []string, out *[]FlatChange) {
	for key, v := range tree {
		path := append(append([]string{}, prefix...), key)
		switch t := v.(type) {
		case Change:
			*out = append(*out, FlatChange{Path: strings.Join(path, "."), Current: t.Current, Desired: t.Desired})
		case DiffTree:
			flatten(t, path, out)
		case map[string]any:
			flatten(t, path, out)
		}
	}
}
