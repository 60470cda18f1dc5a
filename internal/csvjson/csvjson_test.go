package csvjson

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []map[string]string
	}{
		{
			name:  "rows in order",
			input: "hostname;sid;client\nsap01;HDB;100\nsap02;ERP;200\n",
			expected: []map[string]string{
				{"hostname": "sap01", "sid": "HDB", "client": "100"},
				{"hostname": "sap02", "sid": "ERP", "client": "200"},
			},
		},
		{
			name:     "header only",
			input:    "hostname;sid\n",
			expected: []map[string]string{},
		},
		{
			name:     "empty input",
			input:    "",
			expected: []map[string]string{},
		},
		{
			name:  "byte order mark stripped",
			input: "\ufeffhostname;sid\nsap01;HDB\n",
			expected: []map[string]string{
				{"hostname": "sap01", "sid": "HDB"},
			},
		},
		{
			name:  "short rows padded, long rows cut",
			input: "a;b;c\n1\n1;2;3;4\n",
			expected: []map[string]string{
				{"a": "1", "b": "", "c": ""},
				{"a": "1", "b": "2", "c": "3"},
			},
		},
		{
			name:  "quoted fields may contain the delimiter",
			input: "name;parameters\nbackup;\"-t full;-c 3\"\n",
			expected: []map[string]string{
				{"name": "backup", "parameters": "-t full;-c 3"},
			},
		},
		{
			name:  "blank lines skipped",
			input: "a;b\n\n1;2\n\n",
			expected: []map[string]string{
				{"a": "1", "b": "2"},
			},
		},
		{
			name:  "commas are data",
			input: "a;b\n1,5;2\n",
			expected: []map[string]string{
				{"a": "1,5", "b": "2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "systems.csv")
	require.NoError(t, os.WriteFile(path, []byte("name;sid\nHANA;HDB\n"), 0o600))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []map[string]string{{"name": "HANA", "sid": "HDB"}}, got)

	_, err = ReadFile(filepath.Join(dir, "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open CSV file")
}
