package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"alpaca/internal/cli"
	"alpaca/pkg/logging"
)

var version = "dev"

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return version
}

// newRootCmd builds the command tree. Flags are bound to a fresh
// CommandFlags so that every invocation starts from defaults.
func newRootCmd() *cobra.Command {
	flags := &cli.CommandFlags{}

	rootCmd := &cobra.Command{
		Use:   "alpaca",
		Short: "Declarative configuration for ALPACA Operator",
		Long: `alpaca brings ALPACA Operator objects (agents, groups, systems and
commands) to a desired state described in YAML or JSON manifests.

Every apply compares the manifest with what the server currently holds,
reports the differences and only writes when something has to change.
Use --check to see what would change without touching the server.`,
		Version: version,
		// Errors are printed by Execute, which also picks the exit code.
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := logging.LevelInfo
			if flags.Debug {
				level = logging.LevelDebug
			}
			logging.InitForCLI(level, cmd.ErrOrStderr())
		},
	}
	rootCmd.SetVersionTemplate(`{{printf "alpaca version %s\n" .Version}}`)

	cli.RegisterCommonFlags(rootCmd, flags)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newApplyCmd(flags))
	rootCmd.AddCommand(newGetCmd(flags))
	rootCmd.AddCommand(newMergeCmd())
	rootCmd.AddCommand(newCSVCmd())
	rootCmd.AddCommand(newContextCmd(flags))
	return rootCmd
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd := newRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	// An ExitError without a cause has already reported itself on stdout.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) || exitErr.Err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
	}
	os.Exit(cli.ExitCode(err))
}

// newExecutor creates the executor for a command and switches logging to
// the level configured in config.yaml unless --debug is set.
func newExecutor(cmd *cobra.Command, flags *cli.CommandFlags) (*cli.Executor, error) {
	opts, err := flags.ToExecutorOptions()
	if err != nil {
		return nil, err
	}
	opts.Stdout = cmd.OutOrStdout()
	opts.Stderr = cmd.ErrOrStderr()

	executor, err := cli.NewExecutor(opts)
	if err != nil {
		return nil, err
	}

	if !flags.Debug {
		level, err := logging.ParseLevel(executor.Config().LogLevel)
		if err != nil {
			return nil, err
		}
		logging.InitForCLI(level, cmd.ErrOrStderr())
	}
	return executor, nil
}
