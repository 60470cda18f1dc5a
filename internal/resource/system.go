package resource

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"alpaca/internal/client"
	"alpaca/internal/reconciler"
	"alpaca/pkg/logging"
)

// Variable modes for systems.
const (
	VariablesUpdate  = "update"
	VariablesReplace = "replace"
)

var sidPattern = regexp.MustCompile(`^[A-Z]{3}$`)

type systemReconciler struct {
	api  API
	opts Options
}

func (r *systemReconciler) Kind() Kind { return KindSystem }

// systemState is everything the API knows about one system.
type systemState struct {
	ID        any
	General   Record
	Agents    []Record
	Variables []Record
}

func (s *systemState) details() Record {
	return Record{
		"id":        s.ID,
		"general":   s.General,
		"agents":    agentNames(s.Agents),
		"variables": normalizeVariables(s.Variables),
	}
}

// systemIntent holds the parts of the manifest that are reconciled outside
// the general payload. A nil slice means the manifest leaves it unmanaged.
type systemIntent struct {
	agents    []string
	variables []any
}

// Reconcile brings the general settings, agent assignments and variable
// values of a system in line with params.
func (r *systemReconciler) Reconcile(ctx context.Context, params Record) (*Result, error) {
	state, err := stateOf(params)
	if err != nil {
		return nil, err
	}
	name := str(params["name"])
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	if err := validateSID(params); err != nil {
		return nil, err
	}
	mode := str(params["variables_mode"])
	if mode == "" {
		mode = VariablesUpdate
	}
	if mode != VariablesUpdate && mode != VariablesReplace {
		return nil, &ValidationError{Field: "variables_mode", Message: "must be one of update, replace, got " + mode}
	}

	existing, err := r.api.Lookup(ctx, "systems", "name", name)
	if err == nil && existing == nil && truthy(params["new_name"]) {
		existing, err = r.api.Lookup(ctx, "systems", "name", params["new_name"])
	}
	if err != nil {
		return nil, err
	}

	var current *systemState
	if existing != nil {
		if current, err = r.fetch(ctx, existing["id"]); err != nil {
			return nil, err
		}
	}

	if state == stateAbsent {
		return r.remove(ctx, current)
	}

	desired := clone(params)
	if err := r.resolveGroup(ctx, desired); err != nil {
		return nil, err
	}
	var general Record
	if current != nil {
		general = current.General
	}
	payload := reconciler.SystemSchema.BuildPayload(desired, general)

	intent := systemIntent{agents: desiredAgents(params["agents"])}
	if params["variables"] != nil {
		var currentVars []any
		if current != nil {
			currentVars = normalizeVariables(current.Variables)
		}
		intent.variables = desiredVariables(mode, currentVars, list(params["variables"]))
	}

	if err := r.checkReferences(ctx, intent); err != nil {
		return nil, err
	}
	if current == nil {
		return r.create(ctx, payload, intent)
	}
	return r.update(ctx, current, payload, intent)
}

func validateSID(params Record) error {
	sid, ok := reconciler.AsRecord(params["rfcConnection"])["sid"]
	if !ok || sid == nil {
		return nil
	}
	if !sidPattern.MatchString(str(sid)) {
		return &ValidationError{Field: "sid", Message: "must be exactly 3 uppercase letters (A-Z)"}
	}
	return nil
}

// resolveGroup replaces groupName with the matching groupId and checks that
// an explicit groupId exists.
func (r *systemReconciler) resolveGroup(ctx context.Context, desired Record) error {
	if groupName := desired["groupName"]; truthy(groupName) {
		group, err := r.api.Lookup(ctx, "groups", "name", groupName)
		if err != nil {
			return err
		}
		if group == nil {
			return &NotFoundError{Kind: "Group", Key: "name", Value: groupName}
		}
		desired["groupId"] = group["id"]
		return nil
	}
	if groupID := desired["groupId"]; truthy(groupID) {
		group, err := r.api.Lookup(ctx, "groups", "id", groupID)
		if err != nil {
			return err
		}
		if group == nil {
			return &NotFoundError{Kind: "Group", Key: "id", Value: groupID, Hint: "Please ensure group is created first."}
		}
	}
	return nil
}

// checkReferences fails when a desired agent or variable does not exist, so
// that nothing is written for a manifest that cannot be applied in full.
func (r *systemReconciler) checkReferences(ctx context.Context, intent systemIntent) error {
	if len(intent.agents) > 0 {
		var agents []Record
		if err := r.api.Do(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
			return err
		}
		for _, name := range intent.agents {
			if client.Find(agents, "hostname", name) == nil {
				return &NotFoundError{Kind: "Agent", Key: "hostname", Value: name, Hint: "Please ensure agent exists first."}
			}
		}
	}
	if len(intent.variables) > 0 {
		var defined []Record
		if err := r.api.Do(ctx, http.MethodGet, "/variables", nil, &defined); err != nil {
			return err
		}
		for _, v := range intent.variables {
			name := reconciler.AsRecord(v)["name"]
			if client.Find(defined, "name", name) == nil {
				return &NotFoundError{Kind: "Variable", Key: "name", Value: name, Hint: "Please ensure variable exists first."}
			}
		}
	}
	return nil
}

func (r *systemReconciler) fetch(ctx context.Context, id any) (*systemState, error) {
	st := &systemState{ID: id}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.api.Do(gctx, http.MethodGet, client.Path("systems", id), nil, &st.General)
	})
	g.Go(func() error {
		return r.api.Do(gctx, http.MethodGet, client.Path("systems", id, "agents"), nil, &st.Agents)
	})
	g.Go(func() error {
		return r.api.Do(gctx, http.MethodGet, client.Path("systems", id, "variables"), nil, &st.Variables)
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to read system %v: %w", id, err)
	}
	return st, nil
}

func (r *systemReconciler) create(ctx context.Context, payload Record, intent systemIntent) (*Result, error) {
	if r.opts.Check {
		return changed("System would be created.").with("payload", redact(payload)), nil
	}
	var created Record
	if err := r.api.Do(ctx, http.MethodPost, "/systems", payload, &created); err != nil {
		return nil, err
	}
	id := created["id"]
	if id == nil {
		return nil, fmt.Errorf("system %v was created but the response carries no id", payload["name"])
	}
	if intent.agents != nil {
		if err := r.syncAgents(ctx, id, intent.agents); err != nil {
			return nil, err
		}
	}
	if intent.variables != nil {
		if err := r.setVariables(ctx, id, intent.variables); err != nil {
			return nil, err
		}
	}
	logging.Info("System", "Created system %s with id %v", payload["name"], id)
	return changed("System created.").with("api_response", created), nil
}

func (r *systemReconciler) update(ctx context.Context, current *systemState, payload Record, intent systemIntent) (*Result, error) {
	diff := reconciler.DiffTree{}
	if general := reconciler.SystemSchema.Diff(payload, current.General); !general.IsEmpty() {
		diff["general"] = general
	}
	if intent.agents != nil {
		have := agentNames(current.Agents)
		if !reconciler.Equal(have, intent.agents) {
			diff["agents"] = reconciler.Change{Current: have, Desired: intent.agents}
		}
	}
	if intent.variables != nil {
		have := normalizeVariables(current.Variables)
		if !reconciler.Equal(have, intent.variables) {
			diff["variables"] = reconciler.Change{Current: have, Desired: intent.variables}
		}
	}

	if diff.IsEmpty() {
		return unchanged("System already exists with the desired configuration").with("system_details", current.details()), nil
	}
	if r.opts.Check {
		return changed("System would be updated.").withChanges(diff), nil
	}

	response := current.General
	if _, ok := diff["general"]; ok {
		var updated Record
		if err := r.api.Do(ctx, http.MethodPut, client.Path("systems", current.ID), payload, &updated); err != nil {
			return nil, err
		}
		response = orElse(updated, payload)
	}
	if _, ok := diff["agents"]; ok {
		if err := r.syncAgents(ctx, current.ID, intent.agents); err != nil {
			return nil, err
		}
	}
	if _, ok := diff["variables"]; ok {
		if err := r.setVariables(ctx, current.ID, intent.variables); err != nil {
			return nil, err
		}
	}
	logging.Info("System", "Updated system %v (%d changes)", current.ID, len(diff.Flatten()))
	return changed("System updated.").withChanges(diff).with("api_response", redact(response)), nil
}

func (r *systemReconciler) remove(ctx context.Context, current *systemState) (*Result, error) {
	if current == nil {
		return unchanged("System already absent."), nil
	}
	if r.opts.Check {
		return changed("System would be deleted.").with("system_details", current.details()), nil
	}
	if err := r.syncAgents(ctx, current.ID, []string{}); err != nil {
		return nil, err
	}
	if err := r.api.Do(ctx, http.MethodPost, client.Path("systems", current.ID, "variables"), []Record{}, nil); err != nil {
		return nil, err
	}
	if err := r.api.Do(ctx, http.MethodDelete, client.Path("systems", current.ID), nil, nil); err != nil {
		return nil, err
	}
	logging.Info("System", "Deleted system %v", current.ID)
	return changed("System deleted.").with("system_details", current.details()), nil
}

// syncAgents makes the system's assigned agents exactly want. Unassignment
// is repeated until the API stops listing the agent, because the server may
// acknowledge a removal before it takes effect.
func (r *systemReconciler) syncAgents(ctx context.Context, id any, want []string) error {
	wanted := make(map[string]bool, len(want))
	for _, name := range want {
		wanted[name] = true
	}

	assigned, err := r.assignedAgents(ctx, id)
	if err != nil {
		return err
	}
	have := make(map[string]bool, len(assigned))
	for _, a := range assigned {
		have[str(a["name"])] = true
	}

	// Resolve everything to assign before changing anything.
	var toAssign []any
	for _, name := range want {
		if have[name] {
			continue
		}
		agent, err := r.api.Lookup(ctx, "agents", "hostname", name)
		if err != nil {
			return err
		}
		if agent == nil {
			return &NotFoundError{Kind: "Agent", Key: "hostname", Value: name, Hint: "Please ensure agent exists first."}
		}
		toAssign = append(toAssign, agent["id"])
	}

	for round := 1; ; round++ {
		var stale []Record
		for _, a := range assigned {
			if !wanted[str(a["name"])] {
				stale = append(stale, a)
			}
		}
		if len(stale) == 0 {
			break
		}
		if round > r.opts.MaxUnassignRounds {
			return fmt.Errorf("agents %s are still assigned to system %v after %d attempts",
				strings.Join(agentNames(stale), ", "), id, r.opts.MaxUnassignRounds)
		}
		for _, a := range stale {
			agentID, err := r.agentID(ctx, a)
			if err != nil {
				return err
			}
			if err := r.api.Do(ctx, http.MethodDelete, client.Path("systems", id, "agents", agentID), nil, nil); err != nil {
				return err
			}
			logging.Debug("System", "Unassigned agent %v from system %v (round %d)", a["name"], id, round)
		}
		if assigned, err = r.assignedAgents(ctx, id); err != nil {
			return err
		}
	}

	for _, agentID := range toAssign {
		if err := r.api.Do(ctx, http.MethodPost, client.Path("systems", id, "agents"), Record{"id": agentID}, nil); err != nil {
			return err
		}
		logging.Debug("System", "Assigned agent %v to system %v", agentID, id)
	}
	return nil
}

func (r *systemReconciler) assignedAgents(ctx context.Context, id any) ([]Record, error) {
	var agents []Record
	if err := r.api.Do(ctx, http.MethodGet, client.Path("systems", id, "agents"), nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// agentID looks the assigned agent up by hostname, falling back to the id
// the assignment listing reports.
func (r *systemReconciler) agentID(ctx context.Context, assigned Record) (any, error) {
	agent, err := r.api.Lookup(ctx, "agents", "hostname", assigned["name"])
	if err != nil {
		return nil, err
	}
	if agent != nil {
		return agent["id"], nil
	}
	if assigned["id"] != nil {
		return assigned["id"], nil
	}
	return nil, &NotFoundError{Kind: "Agent", Key: "hostname", Value: assigned["name"]}
}

// setVariables replaces the system's variable values with vars, a list of
// {name, value} records.
func (r *systemReconciler) setVariables(ctx context.Context, id any, vars []any) error {
	var defined []Record
	if err := r.api.Do(ctx, http.MethodGet, "/variables", nil, &defined); err != nil {
		return err
	}
	assignments := make([]Record, 0, len(vars))
	for _, v := range vars {
		rec := reconciler.AsRecord(v)
		variable := client.Find(defined, "name", rec["name"])
		if variable == nil {
			return &NotFoundError{Kind: "Variable", Key: "name", Value: rec["name"], Hint: "Please ensure variable exists first."}
		}
		assignments = append(assignments, Record{"id": variable["id"], "value": rec["value"]})
	}
	return r.api.Do(ctx, http.MethodPost, client.Path("systems", id, "variables"), assignments, nil)
}

// desiredAgents accepts agents as plain hostnames or as {name: hostname}
// records. It returns nil when agents is not set.
func desiredAgents(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	names := []string{}
	for _, item := range items {
		switch t := item.(type) {
		case string:
			names = append(names, t)
		case map[string]any:
			if t["name"] != nil {
				names = append(names, str(t["name"]))
			}
		}
	}
	sort.Strings(names)
	return names
}

func agentNames(agents []Record) []string {
	return sortedNames(agents)
}

// normalizeVariables reduces variables to sorted {name, value} pairs with
// string values, the form both sides are compared in.
func normalizeVariables(vars []Record) []any {
	sorted := append([]Record(nil), vars...)
	sort.SliceStable(sorted, func(i, j int) bool { return str(sorted[i]["name"]) < str(sorted[j]["name"]) })
	out := make([]any, 0, len(sorted))
	for _, v := range sorted {
		out = append(out, map[string]any{"name": str(v["name"]), "value": str(v["value"])})
	}
	return out
}

// desiredVariables computes the variable set after applying want. In update
// mode variables not named in want keep their current value; in replace mode
// they are dropped.
func desiredVariables(mode string, current []any, want []Record) []any {
	merged := map[string]string{}
	if mode == VariablesUpdate {
		for _, v := range current {
			rec := reconciler.AsRecord(v)
			merged[str(rec["name"])] = str(rec["value"])
		}
	}
	for _, v := range want {
		if v["name"] == nil {
			continue
		}
		merged[str(v["name"])] = str(v["value"])
	}
	names := make([]string, 0, len(merged))
	for name := range merged {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]any, 0, len(names))
	for _, name := range names {
		out = append(out, map[string]any{"name": name, "value": merged[name]})
	}
	return out
}

// redact hides the RFC password in records that are reported back.
func redact(rec Record) Record {
	rfc, ok := rec["rfcConnection"].(map[string]any)
	if !ok {
		return rec
	}
	if _, has := rfc["password"]; !has {
		return rec
	}
	out := clone(rec)
	rfc = clone(rfc)
	rfc["password"] = "********"
	out["rfcConnection"] = rfc
	return out
}
