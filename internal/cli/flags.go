package cli

import (
	"github.com/spf13/cobra"

	"alpaca/internal/formatting"
)

// CommandFlags holds the global flag values shared by every command.
type CommandFlags struct {
	// OutputFormat is the -o value; empty means "use the configured default"
	OutputFormat string
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug enables debug logging on stderr
	Debug bool
	// ConfigPath overrides the configuration directory
	ConfigPath string
	// Context selects a named connection profile
	Context string
}

// RegisterCommonFlags registers the global flags as persistent flags of cmd.
//
// The registered flags are:
//   - --output/-o: Output format (console, json, yaml, table)
//   - --quiet/-q: Suppress non-essential output
//   - --debug: Enable debug logging
//   - --config-path: Configuration directory (default ~/.config/alpaca)
//   - --context: Use a specific context (env: ALPACA_CONTEXT)
func RegisterCommonFlags(cmd *cobra.Command, flags *CommandFlags) {
	cmd.PersistentFlags().StringVarP(&flags.OutputFormat, "output", "o", "", "Output format (console, json, yaml, table)")
	cmd.PersistentFlags().BoolVarP(&flags.Quiet, "quiet", "q", false, "Suppress non-essential output")
	cmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.ConfigPath, "config-path", "", "Configuration directory (default ~/.config/alpaca)")
	cmd.PersistentFlags().StringVar(&flags.Context, "context", "", "Use a specific context (env: ALPACA_CONTEXT)")
}

// ToExecutorOptions validates the flags and converts them to ExecutorOptions.
func (f *CommandFlags) ToExecutorOptions() (ExecutorOptions, error) {
	var format formatting.OutputFormat
	if f.OutputFormat != "" {
		parsed, err := formatting.ParseFormat(f.OutputFormat)
		if err != nil {
			return ExecutorOptions{}, &UsageError{Message: err.Error()}
		}
		format = parsed
	}

	return ExecutorOptions{
		Format:     format,
		Quiet:      f.Quiet,
		Debug:      f.Debug,
		ConfigPath: f.ConfigPath,
		Context:    f.Context,
	}, nil
}
