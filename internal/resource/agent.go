package resource

import (
	"context"
	"net/http"

	"alpaca/internal/client"
	"alpaca/internal/reconciler"
	"alpaca/pkg/logging"
)

type agentReconciler struct {
	api  API
	opts Options
}

func (r *agentReconciler) Kind() Kind { return KindAgent }

// Reconcile matches agents by hostname, falling back to new_name so that a
// rename that already happened is recognised.
func (r *agentReconciler) Reconcile(ctx context.Context, params Record) (*Result, error) {
	state, err := stateOf(params)
	if err != nil {
		return nil, err
	}
	name := str(params["name"])
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}

	existing, err := r.find(ctx, name, params["new_name"])
	if err != nil {
		return nil, err
	}

	var current Record
	if existing != nil {
		if err := r.api.Do(ctx, http.MethodGet, client.Path("agents", existing["id"]), nil, &current); err != nil {
			return nil, err
		}
	}

	if state == stateAbsent {
		return r.remove(ctx, existing, current)
	}

	payload := reconciler.AgentSchema.BuildPayload(params, current)
	if existing == nil {
		if r.opts.Check {
			return changed("Agent would be created").with("agent_config", payload), nil
		}
		var created Record
		if err := r.api.Do(ctx, http.MethodPost, "/agents", payload, &created); err != nil {
			return nil, err
		}
		logging.Info("Agent", "Created agent %s", payload["hostname"])
		return changed("Agent created").with("agent_config", orElse(created, payload)), nil
	}

	diff := reconciler.AgentSchema.Diff(payload, current)
	if diff.IsEmpty() {
		return unchanged("Agent already exists with the desired configuration").with("agent_config", current), nil
	}
	if r.opts.Check {
		return changed("Agent would be updated").withChanges(diff), nil
	}
	var updated Record
	if err := r.api.Do(ctx, http.MethodPut, client.Path("agents", existing["id"]), payload, &updated); err != nil {
		return nil, err
	}
	logging.Info("Agent", "Updated agent %s (%d fields)", payload["hostname"], len(diff.Flatten()))
	return changed("Agent updated").withChanges(diff).with("agent_config", orElse(updated, payload)), nil
}

func (r *agentReconciler) find(ctx context.Context, name string, newName any) (Record, error) {
	agent, err := r.api.Lookup(ctx, "agents", "hostname", name)
	if err != nil || agent != nil || !truthy(newName) {
		return agent, err
	}
	return r.api.Lookup(ctx, "agents", "hostname", newName)
}

func (r *agentReconciler) remove(ctx context.Context, existing, current Record) (*Result, error) {
	if existing == nil {
		return unchanged("Agent already absent"), nil
	}
	if r.opts.Check {
		return changed("Agent would be deleted").with("agent_config", current), nil
	}
	if err := r.api.Do(ctx, http.MethodDelete, client.Path("agents", existing["id"]), nil, nil); err != nil {
		return nil, err
	}
	logging.Info("Agent", "Deleted agent %s", existing["hostname"])
	return changed("Agent deleted").with("agent_config", current), nil
}

// orElse returns the server's response, or fallback when the server sent
// no body.
func orElse(response, fallback Record) Record {
	if len(response) == 0 {
		return fallback
	}
	return response
}
