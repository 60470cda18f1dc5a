package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"alpaca/internal/cli"
	"alpaca/internal/merge"
)

func newMergeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <default_json> <override_json>",
		Short: "Merge two JSON documents",
		Long: `Merge an override document into a default document and print the
result as a single JSON line.

Objects are merged key by key. Lists of objects are matched by their "name"
key. Null values in the override keep the default. On failure a single
{"error": "..."} line is printed and the exit code is 1.

Examples:
  alpaca merge '{"a":1,"b":{"c":2}}' '{"b":{"d":3}}'`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 2 {
				return writeJSONError(cmd.OutOrStdout(), fmt.Errorf("usage: alpaca merge <default_json> <override_json>"))
			}
			out, err := merge.MergeJSON(args[0], args[1])
			if err != nil {
				return writeJSONError(cmd.OutOrStdout(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}

// writeJSONError prints {"error": msg} as the command's only output line
// and returns an ExitError without a cause, so nothing else is printed.
func writeJSONError(w io.Writer, err error) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if encErr := enc.Encode(map[string]string{"error": err.Error()}); encErr != nil {
		return &cli.ExitError{Code: cli.ExitGeneral, Err: err}
	}
	return &cli.ExitError{Code: cli.ExitGeneral}
}
