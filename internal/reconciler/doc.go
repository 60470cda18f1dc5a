// Package reconciler computes desired-state payloads and structured diffs for
// ALPACA Operator resources.
//
// # Overview
//
// Every resource type follows the same pattern: the caller fetches the
// current remote state, asks a Schema to build the payload that should be
// written back, diffs that payload against the current state and only issues
// a mutating call when the diff is non-empty.
//
// The package performs no I/O. It is driven by Field tables that declare, per
// field, where the desired value comes from, which default applies when
// neither the desired nor the current state provides a value, and how the
// value is normalised before it is compared.
//
// # Resolution Order
//
// For each field of a schema the payload value is chosen as follows:
//
//   - the first non-null desired key listed in Field.From (Field.Name when
//     From is empty); empty strings are skipped for fields with SkipEmpty
//   - the current value under Field.Name, unless the field is DesiredOnly
//   - Field.Default
//
// Nested sections (Field.Fields) are resolved recursively against the
// matching desired and current sub-records. After resolution the schema's
// Rules run over the payload, for example to clear a cron expression when
// the schedule period does not use it.
//
// # Diffs
//
// Diff walks the same field table and produces a DiffTree holding a Change
// for every leaf whose payload value differs from the current value. Nested
// sections produce nested trees. Write-only fields never appear in a diff.
//
// Example usage:
//
//	payload := reconciler.AgentSchema.BuildPayload(desired, current)
//	changes := reconciler.AgentSchema.Diff(payload, current)
//	if changes.IsEmpty() {
//	    return nil // nothing to do
//	}
//
// Malformed current state (anything that is not a mapping) is treated as an
// empty record so a first-time reconciliation behaves like a create.
package reconciler
