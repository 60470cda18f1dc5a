package reconciler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentSchema_BuildPayload(t *testing.T) {
	tests := []struct {
		name     string
		desired  Record
		current  any
		expected Record
	}{
		{
			name:    "defaults when nothing is known",
			desired: Record{"name": "agent01"},
			current: nil,
			expected: Record{
				"description": "",
				"escalation": Record{
					"failuresBeforeReport": 0,
					"mailAddress":          "",
					"mailEnabled":          false,
					"smsAddress":           "",
					"smsEnabled":           false,
				},
				"hostname":      "agent01",
				"ipAddress":     "",
				"location":      "virtual",
				"scriptGroupId": -1,
			},
		},
		{
			name: "desired wins over current, current wins over default",
			desired: Record{
				"name":        "agent01",
				"description": "new description",
				"escalation":  Record{"mailEnabled": true, "mailAddress": nil},
			},
			current: Record{
				"hostname":      "agent01",
				"description":   "old description",
				"ipAddress":     "10.0.0.1",
				"scriptGroupId": json.Number("3"),
				"escalation":    Record{"mailAddress": "ops@example.com", "smsEnabled": true},
			},
			expected: Record{
				"description": "new description",
				"escalation": Record{
					"failuresBeforeReport": 0,
					"mailAddress":          "ops@example.com",
					"mailEnabled":          true,
					"smsAddress":           "",
					"smsEnabled":           true,
				},
				"hostname":      "agent01",
				"ipAddress":     "10.0.0.1",
				"location":      "virtual",
				"scriptGroupId": json.Number("3"),
			},
		},
		{
			name:    "rename takes priority over name",
			desired: Record{"name": "agent01", "new_name": "agent02"},
			current: Record{"hostname": "agent01"},
			expected: Record{
				"description": "",
				"escalation": Record{
					"failuresBeforeReport": 0,
					"mailAddress":          "",
					"mailEnabled":          false,
					"smsAddress":           "",
					"smsEnabled":           false,
				},
				"hostname":      "agent02",
				"ipAddress":     "",
				"location":      "virtual",
				"scriptGroupId": -1,
			},
		},
		{
			name:    "empty rename is ignored",
			desired: Record{"name": "agent01", "new_name": ""},
			current: "not a record",
			expected: Record{
				"description": "",
				"escalation": Record{
					"failuresBeforeReport": 0,
					"mailAddress":          "",
					"mailEnabled":          false,
					"smsAddress":           "",
					"smsEnabled":           false,
				},
				"hostname":      "agent01",
				"ipAddress":     "",
				"location":      "virtual",
				"scriptGroupId": -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AgentSchema.BuildPayload(tt.desired, tt.current)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCommandSchema_BuildPayload(t *testing.T) {
	t.Run("days of week are sorted", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{
			"schedule": Record{"daysOfWeek": []any{"sunday", "monday"}},
		}, nil)
		assert.Equal(t, []any{"monday", "sunday"}, got["schedule"].(Record)["daysOfWeek"])
	})

	t.Run("days of week sorting ignores case", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{
			"schedule": Record{"daysOfWeek": []any{"Friday", "TUESDAY", "monday"}},
		}, nil)
		assert.Equal(t, []any{"monday", "TUESDAY", "Friday"}, got["schedule"].(Record)["daysOfWeek"])
	})

	t.Run("timeout value nulled for NONE", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{
			"timeout": Record{"type": "none", "value": 30},
		}, nil)
		timeout := got["timeout"].(Record)
		assert.Equal(t, "NONE", timeout["type"])
		assert.Nil(t, timeout["value"])
	})

	t.Run("timeout value nulled for DEFAULT", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{
			"timeout": Record{"type": "Default", "value": 30},
		}, nil)
		assert.Nil(t, got["timeout"].(Record)["value"])
	})

	t.Run("timeout value kept for custom type", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{
			"timeout": Record{"type": "custom", "value": 30},
		}, nil)
		timeout := got["timeout"].(Record)
		assert.Equal(t, "CUSTOM", timeout["type"])
		assert.Equal(t, 30, timeout["value"])
	})

	t.Run("cron expression only with cron period", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{
			"schedule": Record{"period": "every_5min", "cronExpression": "0 * * * *"},
		}, nil)
		assert.Equal(t, "", got["schedule"].(Record)["cronExpression"])

		got = CommandSchema.BuildPayload(Record{
			"schedule": Record{"period": "cron_expression", "cronExpression": "0 * * * *"},
		}, nil)
		assert.Equal(t, "0 * * * *", got["schedule"].(Record)["cronExpression"])
	})

	t.Run("cron expression falls back to current when period stays cron", func(t *testing.T) {
		current := Record{"schedule": Record{"period": "cron_expression", "cronExpression": "5 4 * * *"}}
		got := CommandSchema.BuildPayload(Record{"name": "backup"}, current)
		assert.Equal(t, "5 4 * * *", got["schedule"].(Record)["cronExpression"])
	})

	t.Run("defaults", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{"name": "backup"}, nil)
		assert.Equal(t, "backup", got["name"])
		assert.Equal(t, 0, got["agentId"])
		assert.Equal(t, true, got["disabled"])
		assert.Equal(t, true, got["autoDeploy"])
		assert.Equal(t, PeriodUndefined, got["schedule"].(Record)["period"])
		assert.Equal(t, []any{}, got["schedule"].(Record)["daysOfWeek"])
		assert.Equal(t, Record{"documentAllRuns": true, "retention": 0}, got["history"])
		triggers := got["escalation"].(Record)["triggers"].(Record)
		assert.Equal(t, Record{"everyChange": true, "toRed": true, "toYellow": true, "toGreen": true}, triggers)
	})

	t.Run("false is an explicit value", func(t *testing.T) {
		got := CommandSchema.BuildPayload(Record{"disabled": false, "critical": false}, Record{"disabled": true})
		assert.Equal(t, false, got["disabled"])
		assert.Equal(t, false, got["critical"])
	})
}

func TestSystemSchema_BuildPayload(t *testing.T) {
	t.Run("password only sent when given", func(t *testing.T) {
		got := SystemSchema.BuildPayload(Record{"name": "HDB"}, Record{
			"rfcConnection": Record{"password": "from-server"},
		})
		_, ok := got["rfcConnection"].(Record)["password"]
		assert.False(t, ok)

		got = SystemSchema.BuildPayload(Record{
			"name":          "HDB",
			"rfcConnection": Record{"password": "secret"},
		}, nil)
		assert.Equal(t, "secret", got["rfcConnection"].(Record)["password"])
	})

	t.Run("name never falls back to current", func(t *testing.T) {
		got := SystemSchema.BuildPayload(Record{}, Record{"name": "HDB"})
		assert.Nil(t, got["name"])
	})

	t.Run("description whitespace collapsed", func(t *testing.T) {
		got := SystemSchema.BuildPayload(Record{"name": "HDB", "description": "  SAP\n  HANA  "}, nil)
		assert.Equal(t, "SAP HANA", got["description"])
	})
}

func TestBuildPayload_DoesNotMutateInputs(t *testing.T) {
	desired := Record{"schedule": Record{"daysOfWeek": []any{"sunday", "monday"}}}
	current := Record{"parameters": []any{"-v"}}

	payload := CommandSchema.BuildPayload(desired, current)
	payload["parameters"].([]any)[0] = "changed"

	assert.Equal(t, []any{"sunday", "monday"}, desired["schedule"].(Record)["daysOfWeek"])
	assert.Equal(t, []any{"-v"}, current["parameters"])
}

func TestResolve(t *testing.T) {
	desired := Record{"escalation": Record{"mailEnabled": true, "mailAddress": nil}}
	current := Record{"escalation": Record{"mailAddress": "ops@example.com"}}

	assert.Equal(t, true, Resolve(desired, current, []string{"escalation", "mailEnabled"}, false))
	assert.Equal(t, "ops@example.com", Resolve(desired, current, []string{"escalation", "mailAddress"}, ""))
	assert.Equal(t, 0, Resolve(desired, current, []string{"escalation", "minFailureCount"}, 0))
	assert.Equal(t, "x", Resolve(nil, "garbage", []string{"a"}, "x"))
	assert.Equal(t, "x", Resolve(desired, current, nil, "x"))
}

func TestAsRecord(t *testing.T) {
	require.Equal(t, Record{}, AsRecord(nil))
	require.Equal(t, Record{}, AsRecord([]any{1, 2}))
	require.Equal(t, Record{}, AsRecord("x"))
	require.Equal(t, Record{"a": "b"}, AsRecord(map[string]string{"a": "b"}))
	require.Equal(t, Record{"a": 1}, AsRecord(map[string]any{"a": 1}))
}
