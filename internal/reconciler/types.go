package reconciler

// Record is a configuration record: a resource's desired or current state as
// decoded from YAML or JSON.
type Record = map[string]any

// Field describes one entry of a payload.
type Field struct {
	// Name is the key used in the payload and in the current state.
	Name string

	// From lists the desired-state keys to consult, in priority order.
	// Defaults to Name when empty.
	From []string

	// Default is used when neither desired nor current state provides a value.
	Default any

	// SkipEmpty treats empty strings in the desired or current state as unset.
	SkipEmpty bool

	// Normalize rewrites a value before it is placed in the payload and
	// before a current value is compared against it.
	Normalize func(any) any

	// Fields turns the entry into a nested section.
	Fields []Field

	// WriteOnly fields are only sent when the desired state provides them
	// and are never diffed.
	WriteOnly bool

	// DesiredOnly fields never fall back to the current state.
	DesiredOnly bool
}

// Rule adjusts a fully resolved payload.
type Rule func(payload Record)

// Schema is the field table of one resource type.
type Schema struct {
	Name   string
	Fields []Field
	Rules  []Rule
}

// Change is a single differing leaf.
type Change struct {
	Current any `json:"current" yaml:"current"`
	Desired any `json:"desired" yaml:"desired"`
}

// DiffTree maps field names to either a Change or a nested DiffTree.
type DiffTree map[string]any

// IsEmpty reports whether the tree holds no changes.
func (d DiffTree) IsEmpty() bool {
	return len(d) == 0
}

// AsRecord returns v as a Record. Anything that is not a mapping yields an
// empty record.
func AsRecord(v any) Record {
	switch m := v.(type) {
	case map[string]any:
		if m == nil {
			return Record{}
		}
		return m
	case map[string]string:
		out := make(Record, len(m))
		for k, s := range m {
			out[k] = s
		}
		return out
	default:
		return Record{}
	}
}
