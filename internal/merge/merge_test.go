package merge

import (
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     any
		override any
		expected any
	}{
		{
			name:     "null override is skipped",
			base:     map[string]any{"a": 1},
			override: map[string]any{"a": nil},
			expected: map[string]any{"a": 1},
		},
		{
			name:     "scalar replaced",
			base:     map[string]any{"a": 1, "b": 2},
			override: map[string]any{"a": 3},
			expected: map[string]any{"a": 3, "b": 2},
		},
		{
			name:     "new key added",
			base:     map[string]any{"a": 1},
			override: map[string]any{"b": "x"},
			expected: map[string]any{"a": 1, "b": "x"},
		},
		{
			name:     "nested maps merge",
			base:     map[string]any{"job": map[string]any{"retention": 7, "mode": "full"}},
			override: map[string]any{"job": map[string]any{"retention": 30}},
			expected: map[string]any{"job": map[string]any{"retention": 30, "mode": "full"}},
		},
		{
			name: "named lists merge by name",
			base: map[string]any{"items": []any{
				map[string]any{"name": "x", "v": 1},
				map[string]any{"name": "y", "v": 2},
			}},
			override: map[string]any{"items": []any{
				map[string]any{"name": "x", "v": 9},
			}},
			expected: map[string]any{"items": []any{
				map[string]any{"name": "x", "v": 9},
				map[string]any{"name": "y", "v": 2},
			}},
		},
		{
			name: "new named items appended in override order",
			base: map[string]any{"items": []any{
				map[string]any{"name": "x", "v": 1},
			}},
			override: map[string]any{"items": []any{
				map[string]any{"name": "z", "v": 3},
				map[string]any{"name": "x", "v": nil, "w": true},
				map[string]any{"name": "a", "v": 4},
			}},
			expected: map[string]any{"items": []any{
				map[string]any{"name": "x", "v": 1, "w": true},
				map[string]any{"name": "z", "v": 3},
				map[string]any{"name": "a", "v": 4},
			}},
		},
		{
			name:     "scalar lists replaced",
			base:     map[string]any{"tags": []any{"a", "b"}},
			override: map[string]any{"tags": []any{"c"}},
			expected: map[string]any{"tags": []any{"c"}},
		},
		{
			name:     "empty override list keeps base",
			base:     map[string]any{"tags": []any{"a"}},
			override: map[string]any{"tags": []any{}},
			expected: map[string]any{"tags": []any{"a"}},
		},
		{
			name:     "empty base list takes override",
			base:     map[string]any{"tags": []any{}},
			override: map[string]any{"tags": []any{"c"}},
			expected: map[string]any{"tags": []any{"c"}},
		},
		{
			name:     "type mismatch replaces",
			base:     map[string]any{"a": map[string]any{"b": 1}},
			override: map[string]any{"a": "flat"},
			expected: map[string]any{"a": "flat"},
		},
		{
			name:     "non-mapping override returned as is",
			base:     map[string]any{"a": 1},
			override: []any{1, 2},
			expected: []any{1, 2},
		},
		{
			name:     "non-mapping base yields override",
			base:     "x",
			override: map[string]any{"a": 1},
			expected: map[string]any{"a": 1},
		},
		{
			name:     "nil override keeps base",
			base:     map[string]any{"a": 1},
			override: nil,
			expected: map[string]any{"a": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Merge(tt.base, tt.override)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	base := map[string]any{
		"job":   map[string]any{"retention": 7},
		"items": []any{map[string]any{"name": "x", "v": 1}},
	}
	override := map[string]any{
		"job":   map[string]any{"retention": 30},
		"items": []any{map[string]any{"name": "x", "v": 2}},
	}

	_, err := Merge(base, override)
	require.NoError(t, err)

	assert.Equal(t, 7, base["job"].(map[string]any)["retention"])
	assert.Equal(t, 1, base["items"].([]any)[0].(map[string]any)["v"])
}

func TestMergeLists_MissingName(t *testing.T) {
	t.Run("override item without name", func(t *testing.T) {
		_, err := Merge(
			map[string]any{"jobs": []any{map[string]any{"name": "a"}}},
			map[string]any{"jobs": []any{map[string]any{"name": "a"}, map[string]any{"v": 1}}},
		)
		var missing *MissingNameError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "override", missing.Side)
		assert.Equal(t, 1, missing.Index)
		assert.Equal(t, "jobs", missing.Path)
		assert.Contains(t, err.Error(), "item 1")
	})

	t.Run("base item with null name", func(t *testing.T) {
		_, err := MergeLists(
			[]any{map[string]any{"name": "a"}, map[string]any{"name": nil}},
			[]any{map[string]any{"name": "a"}},
		)
		var missing *MissingNameError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "base", missing.Side)
		assert.Contains(t, err.Error(), "<root>")
	})

	t.Run("nested named list path", func(t *testing.T) {
		_, err := Merge(
			map[string]any{"jobs": []any{map[string]any{"name": "a", "steps": []any{map[string]any{"name": "s"}}}}},
			map[string]any{"jobs": []any{map[string]any{"name": "a", "steps": []any{map[string]any{"name": "s"}, map[string]any{}}}}},
		)
		var missing *MissingNameError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, `jobs["a"].steps`, missing.Path)
	})
}

func TestMergeLists_NonStringNames(t *testing.T) {
	got, err := MergeLists(
		[]any{map[string]any{"name": json.Number("3"), "v": 1}, map[string]any{"name": "3", "v": 2}},
		[]any{map[string]any{"name": json.Number("3"), "v": 9}},
	)
	require.NoError(t, err)
	assert.Equal(t, []any{
		map[string]any{"name": json.Number("3"), "v": 9},
		map[string]any{"name": "3", "v": 2},
	}, got)
}

func TestMergeLists_DuplicateNamesFirstMatchWins(t *testing.T) {
	got, err := MergeLists(
		[]any{map[string]any{"name": "x", "v": 1}, map[string]any{"name": "x", "v": 2}},
		[]any{map[string]any{"name": "x", "v": 9}},
	)
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "x", "v": 9}, map[string]any{"name": "x", "v": 2}}, got)
}

func TestMergeJSON(t *testing.T) {
	t.Run("keeps shell redirects verbatim", func(t *testing.T) {
		out, err := MergeJSON(`{"cmd": "a"}`, `{"cmd": "dump > /tmp/out 2>&1 < in"}`)
		require.NoError(t, err)
		assert.Equal(t, `{"cmd":"dump > /tmp/out 2>&1 < in"}`, string(out))
	})

	t.Run("merges documents", func(t *testing.T) {
		out, err := MergeJSON(
			`{"retention": 7, "jobs": [{"name": "log", "interval": 15}, {"name": "data", "interval": 1440}]}`,
			`{"retention": null, "jobs": [{"name": "log", "interval": 5}]}`,
		)
		require.NoError(t, err)
		assert.JSONEq(t,
			`{"retention": 7, "jobs": [{"name": "log", "interval": 5}, {"name": "data", "interval": 1440}]}`,
			string(out))
	})

	t.Run("numbers kept verbatim", func(t *testing.T) {
		out, err := MergeJSON(`{"id": 12345678901234567890}`, `{}`)
		require.NoError(t, err)
		assert.Equal(t, `{"id":12345678901234567890}`, string(out))
	})

	t.Run("malformed default", func(t *testing.T) {
		_, err := MergeJSON(`{"a":`, `{}`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid default JSON")
	})

	t.Run("malformed override", func(t *testing.T) {
		_, err := MergeJSON(`{}`, `not json`)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid override JSON")
	})

	t.Run("trailing data rejected", func(t *testing.T) {
		_, err := MergeJSON(`{} {}`, `{}`)
		require.Error(t, err)
	})
}

func TestProperty_NullOverrideNeverChangesBase(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{1,6}`), func(s string) string { return s }).Draw(t, "keys")
		base := map[string]any{}
		override := map[string]any{}
		for _, k := range keys {
			base[k] = rapid.IntRange(-100, 100).Draw(t, "value_"+k)
			override[k] = nil
		}

		got, err := Merge(base, override)
		require.NoError(t, err)
		require.Equal(t, base, got)
	})
}

func TestProperty_MergeWithSelfIsIdentity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfDistinct(rapid.StringMatching(`[a-z]{1,4}`), func(s string) string { return s }).Draw(t, "names")
		items := make([]any, 0, len(names))
		for _, n := range names {
			items = append(items, map[string]any{"name": n, "v": rapid.IntRange(0, 9).Draw(t, "v_"+n)})
		}
		doc := map[string]any{"items": items, "flag": rapid.Bool().Draw(t, "flag")}

		got, err := Merge(doc, doc)
		require.NoError(t, err)
		require.Equal(t, doc, got)
	})
}

func TestProperty_MergeJSONOutputIsValidJSON(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		a := rapid.IntRange(0, 1000).Draw(t, "a")
		b := rapid.SampledFrom([]string{"null", "1", `"s"`, "[1,2]", `{"x":1}`}).Draw(t, "b")
		out, err := MergeJSON(`{"a":`+strconv.Itoa(a)+`,"b":{"x":0}}`, `{"b":`+b+`}`)
		require.NoError(t, err)
		require.True(t, json.Valid(out))
	})
}
