package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"alpaca/internal/cli"
	"alpaca/internal/client"
	alpacactx "alpaca/internal/context"
	"alpaca/internal/formatting"
	"alpaca/internal/reconciler"
)

const redacted = "********"

type contextAddOptions struct {
	host       string
	port       int
	protocol   string
	username   string
	password   string
	insecure   bool
	output     string
	setCurrent bool
}

func newContextCmd(flags *cli.CommandFlags) *cobra.Command {
	contextCmd := &cobra.Command{
		Use:   "context",
		Short: "Manage ALPACA Operator connection contexts",
		Long: `Manage named connection profiles for different ALPACA Operator servers.

Contexts are stored in contexts.yaml next to config.yaml
(~/.config/alpaca by default). The file is only readable by its owner
because contexts may hold passwords.

Precedence (highest to lowest):
  1. apiConnection in the manifest
  2. --context flag
  3. ALPACA_CONTEXT environment variable
  4. current-context from contexts.yaml
  5. defaultConnection from config.yaml
  6. https://localhost:8443

Examples:
  alpaca context                                  # List all contexts
  alpaca context add prod --host alpaca.example.com --username admin --use
  alpaca context use prod                         # Switch context
  alpaca context show prod --check                # Show details and test login
  alpaca context delete lab --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContextList(cmd, flags)
		},
	}

	listCmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all contexts",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContextList(cmd, flags)
		},
	}

	currentCmd := &cobra.Command{
		Use:   "current",
		Short: "Show current context name",
		Long: `Display the name of the currently active context.

Prints nothing if no context is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := contextStorage(flags)
			if err != nil {
				return err
			}
			name, err := storage.GetCurrentContextName()
			if err != nil {
				return fmt.Errorf("failed to get current context: %w", err)
			}
			if name != "" {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	useCmd := &cobra.Command{
		Use:               "use <name>",
		Aliases:           []string{"switch"},
		Short:             "Switch to a different context",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeContextNames(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			storage, err := contextStorage(flags)
			if err != nil {
				return err
			}
			if err := storage.SetCurrentContext(args[0]); err != nil {
				return err
			}
			if !flags.Quiet {
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to context %q\n", args[0])
			}
			return nil
		},
	}

	addOpts := &contextAddOptions{}
	addCmd := &cobra.Command{
		Use:   "add <name> --host <host>",
		Short: "Add a new context",
		Long: `Add a new named context pointing to an ALPACA Operator server.

Context names must:
  - Be between 1 and 63 characters
  - Contain only lowercase letters, numbers, and hyphens
  - Start and end with an alphanumeric character

Unset fields fall back to defaultConnection in config.yaml. Leave the
password out to read it from ALPACA_PASSWORD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContextAdd(cmd, flags, args[0], addOpts)
		},
	}
	addCmd.Flags().StringVar(&addOpts.host, "host", "", "Server host name (required)")
	addCmd.Flags().IntVar(&addOpts.port, "port", 0, "Server port (default 8443)")
	addCmd.Flags().StringVar(&addOpts.protocol, "protocol", "", "http or https (default https)")
	addCmd.Flags().StringVar(&addOpts.username, "username", "", "Login user")
	addCmd.Flags().StringVar(&addOpts.password, "password", "", "Login password, stored in contexts.yaml")
	addCmd.Flags().BoolVar(&addOpts.insecure, "insecure", false, "Skip TLS certificate verification")
	addCmd.Flags().StringVar(&addOpts.output, "output-default", "", "Output format used with this context")
	addCmd.Flags().BoolVar(&addOpts.setCurrent, "use", false, "Set as current context after adding")
	_ = addCmd.MarkFlagRequired("host")

	var force bool
	deleteCmd := &cobra.Command{
		Use:     "delete <name>",
		Aliases: []string{"rm", "remove"},
		Short:   "Delete a context",
		Long: `Remove a context by name.

If the deleted context was the current context, the current context is
cleared. Asks for confirmation unless --force is given.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeContextNames(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContextDelete(cmd, flags, args[0], force)
		},
	}
	deleteCmd.Flags().BoolVarP(&force, "force", "f", false, "Skip confirmation prompt")

	var check bool
	showCmd := &cobra.Command{
		Use:               "show <name>",
		Aliases:           []string{"describe"},
		Short:             "Show context details",
		Long:              `Display a context. The password is never shown. With --check a login is attempted.`,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeContextNames(flags),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runContextShow(cmd, flags, args[0], check)
		},
	}
	showCmd.Flags().BoolVar(&check, "check", false, "Log in to verify the connection")

	contextCmd.AddCommand(listCmd, currentCmd, useCmd, addCmd, deleteCmd, showCmd)
	return contextCmd
}

func contextStorage(flags *cli.CommandFlags) (*alpacactx.Storage, error) {
	if flags.ConfigPath != "" {
		return alpacactx.NewStorageWithPath(flags.ConfigPath), nil
	}
	storage, err := alpacactx.NewStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize context storage: %w", err)
	}
	return storage, nil
}

// completeContextNames provides shell completion for context names
func completeContextNames(flags *cli.CommandFlags) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		storage, err := contextStorage(flags)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names, err := storage.GetContextNames()
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

func runContextList(cmd *cobra.Command, flags *cli.CommandFlags) error {
	executor, err := newExecutor(cmd, flags)
	if err != nil {
		return err
	}
	storage := executor.Storage()

	config, err := storage.Load()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}
	contexts, err := storage.ListContexts()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}

	if len(contexts) == 0 && executor.Format() == formatting.FormatConsole {
		if !flags.Quiet {
			fmt.Fprintln(cmd.OutOrStdout(), `No contexts configured yet.

Get started by adding your first context:
  alpaca context add prod --host alpaca.example.com --username admin --use`)
		}
		return nil
	}

	rows := make([]reconciler.Record, 0, len(contexts))
	for _, ctx := range contexts {
		current := ""
		if ctx.Name == config.CurrentContext {
			current = "*"
		}
		rows = append(rows, reconciler.Record{
			"current":  current,
			"name":     ctx.Name,
			"url":      ctx.Connection.BaseURL(),
			"username": ctx.Connection.Username,
		})
	}
	return executor.Formatter().FormatList("contexts", rows)
}

func runContextAdd(cmd *cobra.Command, flags *cli.CommandFlags, name string, opts *contextAddOptions) error {
	storage, err := contextStorage(flags)
	if err != nil {
		return err
	}

	var settings *alpacactx.ContextSettings
	if opts.output != "" {
		if _, err := formatting.ParseFormat(opts.output); err != nil {
			return &cli.UsageError{Message: err.Error()}
		}
		settings = &alpacactx.ContextSettings{Output: opts.output}
	}
	if opts.protocol != "" && opts.protocol != "http" && opts.protocol != "https" {
		return &cli.UsageError{Message: fmt.Sprintf("invalid protocol %q (valid: http, https)", opts.protocol)}
	}

	conn := client.Connection{
		Host:     opts.host,
		Port:     opts.port,
		Protocol: opts.protocol,
		Username: opts.username,
		Password: opts.password,
	}
	if opts.insecure {
		verify := false
		conn.TLSVerify = &verify
	}

	if err := storage.AddContext(name, conn, settings); err != nil {
		return fmt.Errorf("failed to add context: %w", err)
	}

	out := cmd.OutOrStdout()
	if !flags.Quiet {
		fmt.Fprintf(out, "Context %q added.\n", name)
	}

	if opts.setCurrent {
		if err := storage.SetCurrentContext(name); err != nil {
			return fmt.Errorf("failed to set current context: %w", err)
		}
		if !flags.Quiet {
			fmt.Fprintf(out, "Switched to context %q\n", name)
		}
	} else if !flags.Quiet {
		if current, _ := storage.GetCurrentContextName(); current == "" {
			fmt.Fprintf(out, "\nTo use this context, run:\n  alpaca context use %s\n", name)
		}
	}
	return nil
}

func runContextDelete(cmd *cobra.Command, flags *cli.CommandFlags, name string, force bool) error {
	storage, err := contextStorage(flags)
	if err != nil {
		return err
	}

	ctx, err := storage.GetContext(name)
	if err != nil {
		return fmt.Errorf("failed to check context: %w", err)
	}
	if ctx == nil {
		return &alpacactx.ContextNotFoundError{Name: name}
	}

	currentName, _ := storage.GetCurrentContextName()
	wasCurrent := currentName == name

	out := cmd.OutOrStdout()
	if !force {
		prompt := fmt.Sprintf("Delete context %q?", name)
		if wasCurrent {
			prompt = fmt.Sprintf("Delete context %q (current context)?", name)
		}
		if !confirmAction(cmd.InOrStdin(), out, prompt) {
			if !flags.Quiet {
				fmt.Fprintln(out, "Aborted.")
			}
			return nil
		}
	}

	if err := storage.DeleteContext(name); err != nil {
		return err
	}

	if !flags.Quiet {
		fmt.Fprintf(out, "Context %q deleted.\n", name)
		if wasCurrent {
			fmt.Fprintln(out, "Note: This was the current context. Current context is now unset.")
		}
	}
	return nil
}

func runContextShow(cmd *cobra.Command, flags *cli.CommandFlags, name string, check bool) error {
	scoped := *flags
	scoped.Context = name
	executor, err := newExecutor(cmd, &scoped)
	if err != nil {
		return err
	}

	config, err := executor.Storage().Load()
	if err != nil {
		return fmt.Errorf("failed to load contexts: %w", err)
	}
	ctx := config.GetContext(name)
	if ctx == nil {
		return &alpacactx.ContextNotFoundError{Name: name}
	}

	details := map[string]any{
		"name":    ctx.Name,
		"current": config.CurrentContext == name,
	}
	conn := ctx.Connection
	if conn.Host != "" {
		details["host"] = conn.Host
	}
	if conn.Port != 0 {
		details["port"] = conn.Port
	}
	if conn.Protocol != "" {
		details["protocol"] = conn.Protocol
	}
	if conn.Username != "" {
		details["username"] = conn.Username
	}
	if conn.Password != "" {
		details["password"] = redacted
	}
	if conn.TLSVerify != nil {
		details["tls_verify"] = *conn.TLSVerify
	}
	if ctx.Settings != nil && ctx.Settings.Output != "" {
		details["output"] = ctx.Settings.Output
	}

	if check {
		c, resolved, err := executor.Client(nil)
		if err != nil {
			return err
		}
		details["url"] = resolved.BaseURL()
		err = executor.Spin("Logging in to "+resolved.BaseURL(), func() error {
			return cli.CheckConnection(cmd.Context(), c)
		})
		if err != nil {
			return err
		}
		details["reachable"] = true
	}

	return executor.Formatter().FormatData(details)
}

// confirmAction asks a yes/no question on in and returns true for yes.
func confirmAction(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(in)
	response, err := reader.ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
