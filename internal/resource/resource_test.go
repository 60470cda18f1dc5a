package resource

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alpaca/internal/client"
	"alpaca/internal/testing/mock"
)

func newEnv(t *testing.T) (*mock.Server, *client.Client) {
	t.Helper()
	srv := mock.NewServer(t)
	c := client.New(client.Connection{Username: mock.Username, Password: mock.Password}, client.WithBaseURL(srv.APIURL()))
	return srv, c
}

func apply(t *testing.T, api API, kind Kind, check bool, params Record) *Result {
	t.Helper()
	res, err := reconcile(api, kind, check, params)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func reconcile(api API, kind Kind, check bool, params Record) (*Result, error) {
	rec, err := For(kind, api, Options{Check: check})
	if err != nil {
		return nil, err
	}
	return rec.Reconcile(context.Background(), params)
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input    string
		expected Kind
		wantErr  bool
	}{
		{input: "agent", expected: KindAgent},
		{input: "Agents", expected: KindAgent},
		{input: "group", expected: KindGroup},
		{input: "systems", expected: KindSystem},
		{input: "cmd", expected: KindCommand},
		{input: "command-set", expected: KindCommandSet},
		{input: " commandset ", expected: KindCommandSet},
		{input: "host", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKind(tt.input)
			if tt.wantErr {
				assert.ErrorContains(t, err, "valid: agent, group, system, command, commandset")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFor(t *testing.T) {
	for _, kind := range Kinds() {
		rec, err := For(kind, nil, Options{})
		require.NoError(t, err)
		assert.Equal(t, kind, rec.Kind())
	}
	_, err := For("host", nil, Options{})
	assert.Error(t, err)
}

func TestResult_MarshalJSON(t *testing.T) {
	res := changed("Agent updated").
		withChanges(map[string]any{"location": map[string]any{"current": "a", "desired": "b"}}).
		with("agent_config", Record{"hostname": "agent01"})

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"changed": true,
		"msg": "Agent updated",
		"changes": {"location": {"current": "a", "desired": "b"}},
		"agent_config": {"hostname": "agent01"}
	}`, string(b))

	b, err = json.Marshal(unchanged("Agent already absent"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"changed": false, "msg": "Agent already absent"}`, string(b))
	assert.Equal(t, []string{"agent_config"}, res.DetailKeys())
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected bool
	}{
		{name: "nil", value: nil},
		{name: "empty string", value: ""},
		{name: "string", value: "x", expected: true},
		{name: "zero", value: 0},
		{name: "zero number", value: json.Number("0")},
		{name: "number", value: json.Number("12"), expected: true},
		{name: "float", value: 1.5, expected: true},
		{name: "false", value: false},
		{name: "empty list", value: []any{}},
		{name: "list", value: []any{1}, expected: true},
		{name: "empty map", value: map[string]any{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, truthy(tt.value))
		})
	}
}

func TestStateOf(t *testing.T) {
	s, err := stateOf(Record{})
	require.NoError(t, err)
	assert.Equal(t, statePresent, s)

	s, err = stateOf(Record{"state": "absent"})
	require.NoError(t, err)
	assert.Equal(t, stateAbsent, s)

	_, err = stateOf(Record{"state": "gone"})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "state", vErr.Field)
}

func TestErrors(t *testing.T) {
	assert.Equal(t, "invalid sid: must be exactly 3 uppercase letters (A-Z)",
		(&ValidationError{Field: "sid", Message: "must be exactly 3 uppercase letters (A-Z)"}).Error())
	assert.Equal(t, "Either a systemName or systemId must be provided",
		(&ValidationError{Message: "Either a systemName or systemId must be provided"}).Error())
	assert.Equal(t, "Variable with name 'ENV' not found. Please ensure variable exists first.",
		(&NotFoundError{Kind: "Variable", Key: "name", Value: "ENV", Hint: "Please ensure variable exists first."}).Error())
	assert.Equal(t, "Group with name 'ops' not found", (&NotFoundError{Kind: "Group", Key: "name", Value: "ops"}).Error())
}

func toInt(t *testing.T, v any) int {
	t.Helper()
	switch n := v.(type) {
	case int:
		return n
	case json.Number:
		i, err := n.Int64()
		require.NoError(t, err)
		return int(i)
	}
	t.Fatalf("not a number: %#v", v)
	return 0
}
