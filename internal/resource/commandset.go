package resource

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"alpaca/internal/client"
	"alpaca/internal/reconciler"
	"alpaca/pkg/logging"
)

type commandSetReconciler struct {
	api  API
	opts Options
}

func (r *commandSetReconciler) Kind() Kind { return KindCommandSet }

// Reconcile makes the commands of a system match the present entries of
// params["commands"], position by position.
func (r *commandSetReconciler) Reconcile(ctx context.Context, params Record) (*Result, error) {
	sys := reconciler.AsRecord(params["system"])
	var desired []Record
	for i, cmd := range list(params["commands"]) {
		state, err := stateOf(cmd)
		if err != nil {
			return nil, fmt.Errorf("command index %d: %w", i, err)
		}
		if state == statePresent {
			desired = append(desired, cmd)
		}
	}

	systemID, err := resolveSystem(ctx, r.api, sys)
	if err != nil {
		return nil, err
	}
	if systemID == nil {
		if len(desired) > 0 {
			return nil, systemNotFound(sys)
		}
		return unchanged("Command state processed"), nil
	}

	// References are resolved for every entry before anything is written.
	resolved := make([]Record, len(desired))
	for i, cmd := range desired {
		hint := fmt.Sprintf("Referenced by command index %d.", i)
		agent, err := resolveAgent(ctx, r.api, cmd)
		if err != nil {
			return nil, fmt.Errorf("command index %d: %w", i, err)
		}
		if agent == nil {
			return nil, agentNotFound(cmd, hint)
		}
		processID, err := resolveProcess(ctx, r.api, cmd, hint)
		if err != nil {
			return nil, err
		}
		resolved[i] = withIDs(cmd, agent["id"], processID)
	}

	live, err := listCommands(ctx, r.api, systemID)
	if err != nil {
		return nil, err
	}
	sortByID(live)

	var removed []Record
	for _, c := range tail(live, len(desired)) {
		removed = append(removed, Record{
			"id":            c["id"],
			"name":          c["name"],
			"processId":     c["processId"],
			"agentHostname": c["agentHostname"],
		})
		if r.opts.Check {
			continue
		}
		if err := r.api.Do(ctx, http.MethodDelete, client.Path("systems", systemID, "commands", c["id"]), nil, nil); err != nil {
			return nil, err
		}
		logging.Info("CommandSet", "Deleted command %v (%v) from system %v", c["name"], c["id"], systemID)
	}

	changes := Record{}
	for i, cmd := range resolved {
		var current Record
		if i < len(live) {
			err := r.api.Do(ctx, http.MethodGet, client.Path("systems", systemID, "commands", live[i]["id"]), nil, &current)
			if err != nil && !client.IsNotFound(err) {
				return nil, err
			}
		}

		payload := reconciler.CommandSchema.BuildPayload(cmd, current)
		key := fmt.Sprintf("commandIndex_%03d", i)

		if len(current) > 0 {
			diff := reconciler.CommandSchema.Diff(payload, current)
			if diff.IsEmpty() {
				continue
			}
			changes[key] = diff
			if r.opts.Check {
				continue
			}
			if err := r.api.Do(ctx, http.MethodPut, client.Path("systems", systemID, "commands", live[i]["id"]), payload, nil); err != nil {
				return nil, err
			}
			logging.Info("CommandSet", "Updated command %v at index %d in system %v", payload["name"], i, systemID)
			continue
		}

		changes[key] = Record{"new_command_payload": payload}
		if r.opts.Check {
			continue
		}
		if err := r.api.Do(ctx, http.MethodPost, client.Path("systems", systemID, "commands"), payload, nil); err != nil {
			return nil, err
		}
		logging.Info("CommandSet", "Created command %v at index %d in system %v", payload["name"], i, systemID)
	}

	if len(changes) == 0 && len(removed) == 0 {
		return unchanged("Command state processed"), nil
	}

	msg := fmt.Sprintf("One or multiple commands have been created, updated or deleted in system %v", systemID)
	if r.opts.Check {
		msg = fmt.Sprintf("One or multiple commands would be created, updated or deleted in system %v", systemID)
	}
	res := changed(msg)
	if len(changes) > 0 {
		res.withChanges(changes)
	}
	if len(removed) > 0 {
		res.with("removed_commands", removed)
	}
	return res, nil
}

func tail(items []Record, from int) []Record {
	if from >= len(items) {
		return nil
	}
	return items[from:]
}

// sortByID orders commands by numeric id. Ids that are not numbers sort
// after numeric ones, by their string form.
func sortByID(items []Record) {
	sort.SliceStable(items, func(i, j int) bool {
		a, errA := strconv.ParseFloat(str(items[i]["id"]), 64)
		b, errB := strconv.ParseFloat(str(items[j]["id"]), 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return str(items[i]["id"]) < str(items[j]["id"])
		}
	})
}
