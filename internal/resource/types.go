package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"alpaca/internal/reconciler"
)

// Record is a configuration record.
type Record = reconciler.Record

// API is the subset of the REST client used for reconciliation.
type API interface {
	Do(ctx context.Context, method, path string, body, out any) error
	Lookup(ctx context.Context, resource, key string, value any) (Record, error)
	LookupProcessID(ctx context.Context, key string, value any) (any, error)
}

// Kind names a resource type.
type Kind string

const (
	KindAgent      Kind = "agent"
	KindGroup      Kind = "group"
	KindSystem     Kind = "system"
	KindCommand    Kind = "command"
	KindCommandSet Kind = "commandset"
)

// Kinds lists every supported kind.
func Kinds() []Kind {
	return []Kind{KindAgent, KindGroup, KindSystem, KindCommand, KindCommandSet}
}

// ParseKind accepts the kind names and their common aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "agent", "agents":
		return KindAgent, nil
	case "group", "groups":
		return KindGroup, nil
	case "system", "systems":
		return KindSystem, nil
	case "command", "commands", "cmd":
		return KindCommand, nil
	case "commandset", "command-set", "command_set", "commandsets":
		return KindCommandSet, nil
	}
	names := make([]string, 0, len(Kinds()))
	for _, k := range Kinds() {
		names = append(names, string(k))
	}
	return "", fmt.Errorf("unknown resource kind %q (valid: %s)", s, strings.Join(names, ", "))
}

// Reconciler brings one resource kind to its desired state.
type Reconciler interface {
	Kind() Kind
	Reconcile(ctx context.Context, params Record) (*Result, error)
}

// Options controls how reconcilers behave.
type Options struct {
	// Check reports what would change without writing anything.
	Check bool

	// MaxUnassignRounds bounds how often agent unassignment is retried when
	// the server reports success but keeps the assignment.
	MaxUnassignRounds int
}

// DefaultMaxUnassignRounds is used when Options.MaxUnassignRounds is zero.
const DefaultMaxUnassignRounds = 10

// For returns the reconciler for kind.
func For(kind Kind, api API, opts Options) (Reconciler, error) {
	if opts.MaxUnassignRounds <= 0 {
		opts.MaxUnassignRounds = DefaultMaxUnassignRounds
	}
	switch kind {
	case KindAgent:
		return &agentReconciler{api: api, opts: opts}, nil
	case KindGroup:
		return &groupReconciler{api: api, opts: opts}, nil
	case KindSystem:
		return &systemReconciler{api: api, opts: opts}, nil
	case KindCommand:
		return &commandReconciler{api: api, opts: opts}, nil
	case KindCommandSet:
		return &commandSetReconciler{api: api, opts: opts}, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

// Result is the outcome of one reconciliation.
type Result struct {
	Changed bool
	Msg     string
	Changes any
	Details map[string]any
}

func unchanged(msg string) *Result {
	return &Result{Msg: msg}
}

func changed(msg string) *Result {
	return &Result{Changed: true, Msg: msg}
}

func (r *Result) withChanges(c any) *Result {
	r.Changes = c
	return r
}

func (r *Result) with(key string, value any) *Result {
	if r.Details == nil {
		r.Details = map[string]any{}
	}
	r.Details[key] = value
	return r
}

// Map flattens the result into a single object.
func (r *Result) Map() map[string]any {
	out := make(map[string]any, len(r.Details)+3)
	for k, v := range r.Details {
		out[k] = v
	}
	out["changed"] = r.Changed
	out["msg"] = r.Msg
	if r.Changes != nil {
		out["changes"] = r.Changes
	}
	return out
}

// DetailKeys returns the detail keys in sorted order.
func (r *Result) DetailKeys() []string {
	keys := make([]string, 0, len(r.Details))
	for k := range r.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}
