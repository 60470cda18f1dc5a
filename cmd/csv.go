package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"alpaca/internal/csvjson"
)

func newCSVCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "csv <file>",
		Short: "Convert a semicolon separated export to JSON",
		Long: `Read a semicolon separated file whose first row is the header and
print its rows as a JSON list of objects on a single line.

Examples:
  alpaca csv systems.csv`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := csvjson.ReadFile(args[0])
			if err != nil {
				return writeJSONError(cmd.OutOrStdout(), err)
			}
			if records == nil {
				records = []map[string]string{}
			}
			data, err := json.Marshal(records)
			if err != nil {
				return writeJSONError(cmd.OutOrStdout(), err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
