package resource

import (
	"context"
	"fmt"
	"net/http"

	"alpaca/internal/client"
	"alpaca/internal/reconciler"
	"alpaca/pkg/logging"
)

type commandReconciler struct {
	api  API
	opts Options
}

func (r *commandReconciler) Kind() Kind { return KindCommand }

// Reconcile manages a single command of a system. Commands are identified
// by name and agent hostname.
func (r *commandReconciler) Reconcile(ctx context.Context, params Record) (*Result, error) {
	sys := reconciler.AsRecord(params["system"])
	cmd := reconciler.AsRecord(params["command"])
	if len(cmd) == 0 {
		return nil, &ValidationError{Field: "command", Message: "is required"}
	}
	state, err := stateOf(cmd)
	if err != nil {
		return nil, err
	}
	if str(cmd["name"]) == "" {
		return nil, &ValidationError{Field: "command.name", Message: "is required"}
	}

	systemID, err := resolveSystem(ctx, r.api, sys)
	if err != nil {
		return nil, err
	}
	if systemID == nil {
		if state == stateAbsent {
			return unchanged("Command already absent because system was not found."), nil
		}
		return nil, systemNotFound(sys)
	}

	agent, err := resolveAgent(ctx, r.api, cmd)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		if state == stateAbsent {
			return unchanged("Command already absent because agent was not found."), nil
		}
		return nil, agentNotFound(cmd, "")
	}

	summaries, err := listCommands(ctx, r.api, systemID)
	if err != nil {
		return nil, err
	}
	var existing, current Record
	for _, c := range summaries {
		if str(c["name"]) == str(cmd["name"]) && str(c["agentHostname"]) == str(agent["hostname"]) {
			existing = c
			break
		}
	}
	if existing != nil {
		if err := r.api.Do(ctx, http.MethodGet, client.Path("systems", systemID, "commands", existing["id"]), nil, &current); err != nil {
			return nil, err
		}
	}

	if state == stateAbsent {
		if existing == nil {
			return unchanged("Command already absent."), nil
		}
		if r.opts.Check {
			return changed(fmt.Sprintf("Command would be deleted from system %v.", systemID)).with("command", current), nil
		}
		if err := r.api.Do(ctx, http.MethodDelete, client.Path("systems", systemID, "commands", existing["id"]), nil, nil); err != nil {
			return nil, err
		}
		logging.Info("Command", "Deleted command %v from system %v", cmd["name"], systemID)
		return changed(fmt.Sprintf("Command deleted from system %v.", systemID)).with("command", current), nil
	}

	processID, err := resolveProcess(ctx, r.api, cmd, "")
	if err != nil {
		return nil, err
	}
	payload := reconciler.CommandSchema.BuildPayload(withIDs(cmd, agent["id"], processID), current)

	if existing == nil {
		if r.opts.Check {
			return changed(fmt.Sprintf("Command would be created in system %v.", systemID)).with("payload", payload), nil
		}
		var created Record
		if err := r.api.Do(ctx, http.MethodPost, client.Path("systems", systemID, "commands"), payload, &created); err != nil {
			return nil, err
		}
		logging.Info("Command", "Created command %v in system %v", cmd["name"], systemID)
		return changed(fmt.Sprintf("Command created in system %v.", systemID)).with("command", orElse(created, payload)), nil
	}

	diff := reconciler.CommandSchema.Diff(payload, current)
	if diff.IsEmpty() {
		return unchanged(fmt.Sprintf("Command already exists with the desired configuration in system %v.", systemID)), nil
	}
	if r.opts.Check {
		return changed(fmt.Sprintf("Command would be updated in system %v.", systemID)).
			withChanges(diff).with("payload", payload), nil
	}
	var updated Record
	if err := r.api.Do(ctx, http.MethodPut, client.Path("systems", systemID, "commands", existing["id"]), payload, &updated); err != nil {
		return nil, err
	}
	logging.Info("Command", "Updated command %v in system %v", cmd["name"], systemID)
	return changed(fmt.Sprintf("Command updated in system %v.", systemID)).
		withChanges(diff).with("command", orElse(updated, payload)), nil
}

// resolveSystem returns the id of the system sys refers to by systemName or
// systemId, or nil when no such system exists.
func resolveSystem(ctx context.Context, api API, sys Record) (any, error) {
	var (
		system Record
		err    error
	)
	switch {
	case truthy(sys["systemName"]):
		system, err = api.Lookup(ctx, "systems", "name", sys["systemName"])
	case truthy(sys["systemId"]):
		system, err = api.Lookup(ctx, "systems", "id", sys["systemId"])
	default:
		return nil, &ValidationError{Message: "Either a systemName or systemId must be provided"}
	}
	if err != nil || system == nil {
		return nil, err
	}
	return system["id"], nil
}

func systemNotFound(sys Record) error {
	if truthy(sys["systemName"]) {
		return &NotFoundError{Kind: "System", Key: "name", Value: sys["systemName"]}
	}
	return &NotFoundError{Kind: "System", Key: "id", Value: sys["systemId"]}
}

// resolveAgent returns the agent cmd refers to by agentName or agentId, or
// nil when no such agent exists.
func resolveAgent(ctx context.Context, api API, cmd Record) (Record, error) {
	switch {
	case truthy(cmd["agentName"]):
		return api.Lookup(ctx, "agents", "hostname", cmd["agentName"])
	case truthy(cmd["agentId"]):
		return api.Lookup(ctx, "agents", "id", cmd["agentId"])
	default:
		return nil, &ValidationError{Message: "Either agentName or agentId must be provided"}
	}
}

func agentNotFound(cmd Record, hint string) error {
	if truthy(cmd["agentName"]) {
		return &NotFoundError{Kind: "Agent", Key: "hostname", Value: cmd["agentName"], Hint: hint}
	}
	return &NotFoundError{Kind: "Agent", Key: "id", Value: cmd["agentId"], Hint: hint}
}

// resolveProcess returns processId, or looks it up from processCentralId.
func resolveProcess(ctx context.Context, api API, cmd Record, hint string) (any, error) {
	if truthy(cmd["processId"]) {
		return cmd["processId"], nil
	}
	if !truthy(cmd["processCentralId"]) {
		return nil, &ValidationError{Message: "Either processCentralId or processId must be provided"}
	}
	id, err := api.LookupProcessID(ctx, "globalId", cmd["processCentralId"])
	if err != nil {
		return nil, err
	}
	if id == nil {
		return nil, &NotFoundError{Kind: "Process", Key: "central id", Value: cmd["processCentralId"], Hint: hint}
	}
	return id, nil
}

func withIDs(cmd Record, agentID, processID any) Record {
	out := clone(cmd)
	out["agentId"] = agentID
	out["processId"] = processID
	return out
}

func listCommands(ctx context.Context, api API, systemID any) ([]Record, error) {
	var commands []Record
	if err := api.Do(ctx, http.MethodGet, client.Path("systems", systemID, "commands"), nil, &commands); err != nil {
		return nil, err
	}
	return commands, nil
}
