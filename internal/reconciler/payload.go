package reconciler

// BuildPayload resolves every field of the schema against the desired and
// current state and returns a new record. Neither input is modified.
func (s *Schema) BuildPayload(desired Record, current any) Record {
	payload := buildSection(s.Fields, desired, AsRecord(current))
	for _, rule := range s.Rules {
		rule(payload)
	}
	return payload
}

func buildSection(fields []Field, desired, current Record) Record {
	payload := make(Record, len(fields))
	for _, f := range fields {
		if len(f.Fields) > 0 {
			payload[f.Name] = buildSection(f.Fields, AsRecord(desired[f.Name]), AsRecord(current[f.Name]))
			continue
		}

		value, fromDesired := f.desiredValue(desired)
		if f.WriteOnly {
			if fromDesired {
				payload[f.Name] = clone(value)
			}
			continue
		}
		if !fromDesired {
			value = f.fallback(current)
		}
		if value != nil && f.Normalize != nil {
			value = f.Normalize(value)
		}
		payload[f.Name] = clone(value)
	}
	return payload
}

func (f *Field) sources() []string {
	if len(f.From) == 0 {
		return []string{f.Name}
	}
	return f.From
}

func (f *Field) usable(v any) bool {
	if v == nil {
		return false
	}
	if s, ok := v.(string); ok && f.SkipEmpty && s == "" {
		return false
	}
	return true
}

func (f *Field) desiredValue(desired Record) (any, bool) {
	for _, key := range f.sources() {
		if v := desired[key]; f.usable(v) {
			return v, true
		}
	}
	return nil, false
}

func (f *Field) fallback(current Record) any {
	if !f.DesiredOnly {
		if v := current[f.Name]; f.usable(v) {
			return v
		}
	}
	return f.Default
}

// Resolve walks path in desired, then in current, and returns the first
// non-null value found. def is returned when neither has one.
func Resolve(desired, current any, path []string, def any) any {
	if v, ok := lookup(desired, path); ok {
		return v
	}
	if v, ok := lookup(current, path); ok {
		return v
	}
	return def
}

func lookup(v any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	for _, key := range path {
		rec, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		v = rec[key]
	}
	return v, v != nil
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = clone(item)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = item
		}
		return out
	default:
		return v
	}
}
