// Package formatting renders reconcile results and resource listings.
//
// Every command that prints a document goes through a Formatter so that the
// four output formats (console, json, yaml, table) behave the same across
// apply, get and context. Formatters only ever write the document itself;
// progress and diagnostics belong on stderr.
package formatting

import (
	"fmt"
	"io"
	"os"

	"alpaca/internal/reconciler"
	"alpaca/internal/resource"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatConsole OutputFormat = "console" // Human readable summary
	FormatJSON    OutputFormat = "json"    // Single-line JSON document
	FormatYAML    OutputFormat = "yaml"    // YAML document
	FormatTable   OutputFormat = "table"   // go-pretty tables
)

// ParseFormat validates s as an output format.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatConsole, FormatJSON, FormatYAML, FormatTable:
		return f, nil
	case "":
		return FormatConsole, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q (valid: console, json, yaml, table)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format OutputFormat
	Quiet  bool      // Suppress decorative elements
	Color  bool      // Enable colored output
	Writer io.Writer // Defaults to os.Stdout
}

func (o Options) writer() io.Writer {
	if o.Writer == nil {
		return os.Stdout
	}
	return o.Writer
}

// Formatter writes one document per call.
type Formatter interface {
	// FormatResult renders the outcome of one reconciliation.
	FormatResult(res *resource.Result) error
	// FormatList renders resources returned by the API. kind selects the
	// preferred table columns.
	FormatList(kind string, items []reconciler.Record) error
	// FormatData renders any JSON-compatible value.
	FormatData(data any) error
}

// New returns the formatter for options.Format.
func New(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return &JSONFormatter{options: options}
	case FormatYAML:
		return &YAMLFormatter{options: options}
	case FormatTable:
		return &TableFormatter{options: options}
	default:
		return &ConsoleFormatter{options: options}
	}
}
