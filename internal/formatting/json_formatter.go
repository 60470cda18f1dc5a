package formatting

import (
	"encoding/json"
	"fmt"

	"alpaca/internal/reconciler"
	"alpaca/internal/resource"
)

// JSONFormatter writes every document as a single line of JSON, the shape
// scripts consume.
type JSONFormatter struct {
	options Options
}

func (f *JSONFormatter) FormatResult(res *resource.Result) error {
	return f.FormatData(res)
}

func (f *JSONFormatter) FormatList(_ string, items []reconciler.Record) error {
	if items == nil {
		items = []reconciler.Record{}
	}
	return f.FormatData(items)
}

func (f *JSONFormatter) FormatData(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	_, err = fmt.Fprintln(f.options.writer(), string(b))
	return err
}
