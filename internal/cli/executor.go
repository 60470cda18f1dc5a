package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"

	"alpaca/internal/client"
	"alpaca/internal/config"
	alpacactx "alpaca/internal/context"
	"alpaca/internal/formatting"
	"alpaca/pkg/logging"
)

// ExecutorOptions configures an Executor.
type ExecutorOptions struct {
	// Format is the requested output format; empty falls back to the
	// context setting, then config.yaml, then console
	Format formatting.OutputFormat
	// Quiet suppresses progress indicators and non-essential output
	Quiet bool
	// Debug disables the spinner so it does not interleave with log lines
	Debug bool
	// ConfigPath overrides ~/.config/alpaca
	ConfigPath string
	// Context selects a named connection profile
	Context string

	Stdout io.Writer
	Stderr io.Writer
}

// Executor bundles what a command needs to talk to the API and print the
// outcome: configuration, contexts, the chosen formatter and a spinner.
type Executor struct {
	options ExecutorOptions
	config  config.AlpacaConfig
	storage *alpacactx.Storage
	format  formatting.OutputFormat
	getenv  func(string) string
}

// NewExecutor loads the configuration from options.ConfigPath and settles
// the output format.
func NewExecutor(options ExecutorOptions) (*Executor, error) {
	if options.Stdout == nil {
		options.Stdout = os.Stdout
	}
	if options.Stderr == nil {
		options.Stderr = os.Stderr
	}
	if options.ConfigPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		options.ConfigPath = path
	}

	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return nil, err
	}

	e := &Executor{
		options: options,
		config:  cfg,
		storage: alpacactx.NewStorageWithPath(options.ConfigPath),
		getenv:  os.Getenv,
	}
	e.format = e.resolveFormat()
	return e, nil
}

func (e *Executor) resolveFormat() formatting.OutputFormat {
	if e.options.Format != "" {
		return e.options.Format
	}
	// A broken context selection surfaces when the connection is resolved.
	if selected, err := e.storage.Select(e.options.Context); err == nil && selected != nil && selected.Settings != nil {
		if f, err := formatting.ParseFormat(selected.Settings.Output); err == nil && selected.Settings.Output != "" {
			return f
		}
	}
	if f, err := formatting.ParseFormat(e.config.Output); err == nil {
		return f
	}
	return formatting.FormatConsole
}

// Config returns the loaded configuration.
func (e *Executor) Config() config.AlpacaConfig {
	return e.config
}

// Storage returns the context storage under the configuration directory.
func (e *Executor) Storage() *alpacactx.Storage {
	return e.storage
}

// Format returns the effective output format.
func (e *Executor) Format() formatting.OutputFormat {
	return e.format
}

// Formatter returns a formatter writing to stdout.
func (e *Executor) Formatter() formatting.Formatter {
	return formatting.New(formatting.Options{
		Format: e.format,
		Quiet:  e.options.Quiet,
		Color:  isTerminal(e.options.Stdout),
		Writer: e.options.Stdout,
	})
}

// Stderr returns the diagnostics writer.
func (e *Executor) Stderr() io.Writer {
	return e.options.Stderr
}

// Client resolves the connection and returns a client for it.
func (e *Executor) Client(override *client.Connection) (*client.Client, client.Connection, error) {
	conn, err := e.ResolveConnection(override)
	if err != nil {
		return nil, client.Connection{}, err
	}
	logging.Debug("CLI", "Using connection %s", conn)
	return client.New(conn), conn, nil
}

// Spin runs fn while a spinner with suffix is shown on stderr. The spinner
// is skipped for quiet, debug and machine-readable output.
func (e *Executor) Spin(suffix string, fn func() error) error {
	if e.options.Quiet || e.options.Debug || e.format == formatting.FormatJSON || e.format == formatting.FormatYAML {
		return fn()
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(e.options.Stderr))
	s.Suffix = " " + suffix
	s.Start()
	err := fn()
	if err != nil {
		s.FinalMSG = text.FgRed.Sprint("❌ "+suffix+" failed") + "\n"
	}
	s.Stop()
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Errorf writes a formatted diagnostic to stderr.
func (e *Executor) Errorf(format string, args ...any) {
	fmt.Fprintf(e.options.Stderr, format, args...)
}
