package resource

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpaca/internal/reconciler"
	"alpaca/internal/testing/mock"
)

type commandEnv struct {
	srv       *mock.Server
	systemID  int
	agentID   int
	processID int
}

func newCommandEnv(t *testing.T) (*commandEnv, API) {
	t.Helper()
	srv, c := newEnv(t)
	env := &commandEnv{srv: srv}
	env.systemID = srv.AddSystem("SYS", nil)
	env.agentID = srv.AddAgent("agent01", nil)
	env.processID = srv.AddProcess(mock.Record{"globalId": 1001, "name": "backup"})
	return env, c
}

func backupCommand(overrides Record) Record {
	cmd := Record{
		"name":             "backup",
		"agentName":        "agent01",
		"processCentralId": 1001,
		"schedule":         map[string]any{"period": "every_day", "time": "02:00"},
	}
	for k, v := range overrides {
		cmd[k] = v
	}
	return Record{"system": map[string]any{"systemName": "SYS"}, "command": cmd}
}

func TestCommand_CreateThenIdempotent(t *testing.T) {
	env, api := newCommandEnv(t)

	res := apply(t, api, KindCommand, true, backupCommand(nil))
	assert.Equal(t, fmt.Sprintf("Command would be created in system %d.", env.systemID), res.Msg)
	assert.Empty(t, env.srv.Mutations())

	res = apply(t, api, KindCommand, false, backupCommand(nil))
	assert.True(t, res.Changed)
	assert.Equal(t, fmt.Sprintf("Command created in system %d.", env.systemID), res.Msg)

	cmds := env.srv.Commands(env.systemID)
	require.Len(t, cmds, 1)
	assert.Equal(t, "agent01", cmds[0]["agentHostname"])
	assert.Equal(t, env.processID, toInt(t, cmds[0]["processId"]))
	assert.Equal(t, "NONE", cmds[0]["timeout"].(map[string]any)["type"])

	res = apply(t, api, KindCommand, false, backupCommand(nil))
	assert.False(t, res.Changed)
	assert.Equal(t, fmt.Sprintf("Command already exists with the desired configuration in system %d.", env.systemID), res.Msg)
}

func TestCommand_Update(t *testing.T) {
	env, api := newCommandEnv(t)
	apply(t, api, KindCommand, false, backupCommand(nil))

	changedSchedule := backupCommand(Record{"schedule": map[string]any{"period": "every_day", "time": "03:30"}})
	res := apply(t, api, KindCommand, true, changedSchedule)
	assert.Equal(t, fmt.Sprintf("Command would be updated in system %d.", env.systemID), res.Msg)
	diff := res.Changes.(reconciler.DiffTree)
	assert.Equal(t, []reconciler.FlatChange{{Path: "schedule.time", Current: "02:00", Desired: "03:30"}}, diff.Flatten())

	res = apply(t, api, KindCommand, false, changedSchedule)
	assert.Equal(t, fmt.Sprintf("Command updated in system %d.", env.systemID), res.Msg)
	assert.Equal(t, "03:30", env.srv.Commands(env.systemID)[0]["schedule"].(map[string]any)["time"])
	assert.Len(t, env.srv.Commands(env.systemID), 1)
}

func TestCommand_Absent(t *testing.T) {
	env, api := newCommandEnv(t)
	apply(t, api, KindCommand, false, backupCommand(nil))
	absent := backupCommand(Record{"state": "absent"})

	res := apply(t, api, KindCommand, true, absent)
	assert.Equal(t, fmt.Sprintf("Command would be deleted from system %d.", env.systemID), res.Msg)
	assert.Len(t, env.srv.Commands(env.systemID), 1)

	res = apply(t, api, KindCommand, false, absent)
	assert.Equal(t, fmt.Sprintf("Command deleted from system %d.", env.systemID), res.Msg)
	assert.Empty(t, env.srv.Commands(env.systemID))

	res = apply(t, api, KindCommand, false, absent)
	assert.False(t, res.Changed)
	assert.Equal(t, "Command already absent.", res.Msg)
}

func TestCommand_AbsentWithMissingReferences(t *testing.T) {
	_, api := newCommandEnv(t)

	res := apply(t, api, KindCommand, false, Record{
		"system":  map[string]any{"systemName": "OTHER"},
		"command": map[string]any{"name": "backup", "agentName": "agent01", "state": "absent"},
	})
	assert.False(t, res.Changed)
	assert.Equal(t, "Command already absent because system was not found.", res.Msg)

	res = apply(t, api, KindCommand, false, Record{
		"system":  map[string]any{"systemName": "SYS"},
		"command": map[string]any{"name": "backup", "agentName": "ghost", "state": "absent"},
	})
	assert.False(t, res.Changed)
	assert.Equal(t, "Command already absent because agent was not found.", res.Msg)
}

func TestCommand_ExplicitIDs(t *testing.T) {
	env, api := newCommandEnv(t)

	res := apply(t, api, KindCommand, false, Record{
		"system": map[string]any{"systemId": env.systemID},
		"command": map[string]any{
			"name":      "backup",
			"agentId":   env.agentID,
			"processId": 4242,
		},
	})
	assert.True(t, res.Changed)
	cmds := env.srv.Commands(env.systemID)
	require.Len(t, cmds, 1)
	assert.Equal(t, 4242, toInt(t, cmds[0]["processId"]))
	assert.Equal(t, env.agentID, toInt(t, cmds[0]["agentId"]))
}

func TestCommand_Errors(t *testing.T) {
	_, api := newCommandEnv(t)

	tests := []struct {
		name     string
		params   Record
		contains string
	}{
		{
			name:     "no command",
			params:   Record{"system": map[string]any{"systemName": "SYS"}},
			contains: "invalid command: is required",
		},
		{
			name:     "no system reference",
			params:   Record{"command": map[string]any{"name": "backup"}},
			contains: "Either a systemName or systemId must be provided",
		},
		{
			name:     "unknown system",
			params:   Record{"system": map[string]any{"systemName": "OTHER"}, "command": backupCommand(nil)["command"]},
			contains: "System with name 'OTHER' not found",
		},
		{
			name:     "no agent reference",
			params:   Record{"system": map[string]any{"systemName": "SYS"}, "command": map[string]any{"name": "backup"}},
			contains: "Either agentName or agentId must be provided",
		},
		{
			name:     "unknown agent",
			params:   backupCommand(Record{"agentName": "ghost"}),
			contains: "Agent with hostname 'ghost' not found",
		},
		{
			name:     "no process reference",
			params:   backupCommand(Record{"processCentralId": nil}),
			contains: "Either processCentralId or processId must be provided",
		},
		{
			name:     "unknown central id",
			params:   backupCommand(Record{"processCentralId": 9999}),
			contains: "Process with central id '9999' not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := reconcile(api, KindCommand, false, tt.params)
			assert.ErrorContains(t, err, tt.contains)
		})
	}
}
