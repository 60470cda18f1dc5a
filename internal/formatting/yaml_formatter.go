package formatting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"alpaca/internal/reconciler"
	"alpaca/internal/resource"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

func (f *YAMLFormatter) FormatResult(res *resource.Result) error {
	return f.FormatData(res)
}

func (f *YAMLFormatter) FormatList(_ string, items []reconciler.Record) error {
	if items == nil {
		items = []reconciler.Record{}
	}
	return f.FormatData(items)
}

// FormatData round-trips data through JSON first so that custom
// marshalers and json.Number values come out as plain YAML scalars.
func (f *YAMLFormatter) FormatData(data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	var plain any
	if err := json.Unmarshal(raw, &plain); err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	out, err := yaml.Marshal(plain)
	if err != nil {
		return fmt.Errorf("failed to encode YAML output: %w", err)
	}
	_, err = f.options.writer().Write(out)
	return err
}
