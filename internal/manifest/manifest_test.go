package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		values   map[string]any
		expected map[string]any
		wantErr  string
	}{
		{
			name: "yaml",
			data: "name: agent01\nscriptGroupId: 4\nescalation:\n  mailEnabled: true\n",
			expected: map[string]any{
				"name":          "agent01",
				"scriptGroupId": json.Number("4"),
				"escalation":    map[string]any{"mailEnabled": true},
			},
		},
		{
			name:     "json",
			data:     `{"name": "ops", "state": "absent"}`,
			expected: map[string]any{"name": "ops", "state": "absent"},
		},
		{
			name:     "templated",
			data:     "name: {{ .Values.name }}\ndays: [{{ .Values.day | quote }}]\n",
			values:   map[string]any{"name": "SYS", "day": "monday"},
			expected: map[string]any{"name": "SYS", "days": []any{"monday"}},
		},
		{name: "list", data: "- a\n- b\n", wantErr: "must be a mapping, got a list"},
		{name: "empty", data: "", wantErr: "must be a mapping, got an empty document"},
		{name: "scalar", data: "hello", wantErr: "must be a mapping, got a string"},
		{name: "bad yaml", data: "name: [a", wantErr: "failed to parse manifest test.yaml"},
		{name: "missing value", data: "name: {{ .Values.name }}", wantErr: "failed to render template test.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse("test.yaml", []byte(tt.data), tt.values)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, map[string]any(m.Params))
			assert.Nil(t, m.Connection)
		})
	}
}

func TestParse_Connection(t *testing.T) {
	data := `
name: agent01
apiConnection:
  host: alpaca.example.com
  port: 9443
  username: admin
  password: secret
  tls_verify: false
`
	m, err := Parse("agent.yaml", []byte(data), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "agent01"}, map[string]any(m.Params))
	require.NotNil(t, m.Connection)
	assert.Equal(t, "alpaca.example.com", m.Connection.Host)
	assert.Equal(t, 9443, m.Connection.Port)
	assert.Equal(t, "secret", m.Connection.Password)
	assert.False(t, m.Connection.VerifyTLS())

	_, err = Parse("agent.yaml", []byte("name: a\napiConnection: [1]\n"), nil)
	assert.ErrorContains(t, err, "invalid apiConnection: expected a mapping, got a list")

	m, err = Parse("agent.yaml", []byte("name: a\napiConnection: null\n"), nil)
	require.NoError(t, err)
	assert.Nil(t, m.Connection)
	assert.NotContains(t, m.Params, ConnectionKey)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "group.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: {{ .Values.group | default \"ops\" }}\n"), 0o600))

	m, err := Load(path, map[string]any{"group": ""})
	require.NoError(t, err)
	assert.Equal(t, path, m.Path)
	assert.Equal(t, "ops", m.Params["name"])

	_, err = Load(filepath.Join(dir, "missing.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read manifest")
}
