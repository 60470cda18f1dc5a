// Package resource reconciles ALPACA Operator resources against a desired
// state.
//
// Each resource kind (agent, group, system, command, command set) has a
// Reconciler that takes the parsed manifest parameters, reads the current
// state through the API, builds the payload and diff with the reconciler
// package and issues the mutating calls when something differs. In check
// mode nothing is written; the Result describes what would happen.
//
// Results render as one flat JSON object:
//
//	{"changed": true, "msg": "Agent updated", "changes": {...}, "agent_config": {...}}
//
// Command sets are reconciled by position: the n-th desired command is
// compared with the n-th live command ordered by id, and live commands beyond
// the desired count are deleted. Reordering a command set therefore shows up
// as updates rather than as moves.
package resource
