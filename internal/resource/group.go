package resource

import (
	"context"
	"net/http"

	"alpaca/internal/client"
	"alpaca/pkg/logging"
)

type groupReconciler struct {
	api  API
	opts Options
}

func (r *groupReconciler) Kind() Kind { return KindGroup }

// Reconcile creates, renames or deletes a group. Groups only carry a name,
// so there is nothing else to compare.
func (r *groupReconciler) Reconcile(ctx context.Context, params Record) (*Result, error) {
	state, err := stateOf(params)
	if err != nil {
		return nil, err
	}
	name := str(params["name"])
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "is required"}
	}
	newName := str(params["new_name"])

	group, err := r.api.Lookup(ctx, "groups", "name", name)
	if err != nil {
		return nil, err
	}

	if state == stateAbsent {
		if group == nil {
			return unchanged("Group does not exist").with("name", name), nil
		}
		if r.opts.Check {
			return changed("Group would be deleted").with("id", group["id"]).with("name", name), nil
		}
		if err := r.api.Do(ctx, http.MethodDelete, client.Path("groups", group["id"]), nil, nil); err != nil {
			return nil, err
		}
		logging.Info("Group", "Deleted group %s", name)
		return changed("Group deleted").with("id", group["id"]).with("name", name), nil
	}

	if group != nil {
		if newName == "" || newName == name {
			return unchanged("Group already exists").with("id", group["id"]).with("name", name), nil
		}
		taken, err := r.api.Lookup(ctx, "groups", "name", newName)
		if err != nil {
			return nil, err
		}
		if taken != nil {
			return unchanged("Group already exists").with("id", taken["id"]).with("name", newName), nil
		}
		if r.opts.Check {
			return changed("Group would be renamed").with("id", group["id"]).with("name", newName), nil
		}
		if err := r.api.Do(ctx, http.MethodPut, client.Path("groups", group["id"]), Record{"name": newName}, nil); err != nil {
			return nil, err
		}
		logging.Info("Group", "Renamed group %s to %s", name, newName)
		return changed("Group renamed").with("id", group["id"]).with("name", newName), nil
	}

	target := name
	if newName != "" {
		target = newName
		existing, err := r.api.Lookup(ctx, "groups", "name", newName)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return unchanged("Group already exists").with("id", existing["id"]).with("name", newName), nil
		}
	}
	if r.opts.Check {
		return changed("Group would be created").with("id", nil).with("name", target), nil
	}
	var created Record
	if err := r.api.Do(ctx, http.MethodPost, "/groups", Record{"name": target}, &created); err != nil {
		return nil, err
	}
	logging.Info("Group", "Created group %s", target)
	return changed("Group created").with("id", created["id"]).with("name", target), nil
}
