package resource

import "fmt"

// ValidationError reports manifest parameters that cannot be reconciled.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NotFoundError reports a referenced resource that does not exist.
type NotFoundError struct {
	Kind  string
	Key   string
	Value any
	Hint  string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s with %s '%v' not found", e.Kind, e.Key, e.Value)
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}
