// Package manifest loads desired-state files for apply.
//
// A manifest is a YAML or JSON mapping holding the parameters of one
// resource. It is rendered as a template first (see package template), then
// converted to JSON so that numbers and booleans follow JSON rules. The
// optional apiConnection key is split off and returned separately.
package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"sigs.k8s.io/yaml"

	"alpaca/internal/client"
	"alpaca/internal/reconciler"
	"alpaca/internal/template"
)

// ConnectionKey holds connection overrides inside a manifest.
const ConnectionKey = "apiConnection"

// Manifest is a parsed desired-state file.
type Manifest struct {
	Path       string
	Params     reconciler.Record
	Connection *client.Connection
}

// Load reads, renders and parses the manifest at path.
func Load(path string, values map[string]any) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	m, err := Parse(filepath.Base(path), data, values)
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// Parse renders and parses manifest content. name is used in error
// messages.
func Parse(name string, data []byte, values map[string]any) (*Manifest, error) {
	rendered, err := template.New().Render(name, string(data), template.Context{Values: values})
	if err != nil {
		return nil, err
	}

	raw, err := yaml.YAMLToJSON(rendered)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", name, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", name, err)
	}
	params, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("manifest %s must be a mapping, got %s", name, kindOf(doc))
	}

	m := &Manifest{Path: name, Params: params}
	if rawConn, ok := params[ConnectionKey]; ok {
		delete(params, ConnectionKey)
		conn, err := decodeConnection(rawConn)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: invalid %s: %w", name, ConnectionKey, err)
		}
		m.Connection = conn
	}
	return m, nil
}

func decodeConnection(v any) (*client.Connection, error) {
	if v == nil {
		return nil, nil
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, fmt.Errorf("expected a mapping, got %s", kindOf(v))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var conn client.Connection
	if err := json.Unmarshal(b, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "an empty document"
	case []any:
		return "a list"
	case string:
		return "a string"
	case json.Number:
		return "a number"
	case bool:
		return "a boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
