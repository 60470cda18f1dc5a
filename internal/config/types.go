package config

import "alpaca/internal/client"

// AlpacaConfig is the top-level configuration structure for alpaca.
type AlpacaConfig struct {
	Output            string            `yaml:"output,omitempty"`            // Default output format (console, json, yaml, table)
	LogLevel          string            `yaml:"logLevel,omitempty"`          // Default log level (debug, info, warn, error)
	DefaultConnection client.Connection `yaml:"defaultConnection,omitempty"` // Used when no context applies
}

// Output formats accepted by -o/--output and the output setting.
const (
	OutputConsole = "console"
	OutputJSON    = "json"
	OutputYAML    = "yaml"
	OutputTable   = "table"
)

// OutputFormats lists the valid output formats.
func OutputFormats() []string {
	return []string{OutputConsole, OutputJSON, OutputYAML, OutputTable}
}
