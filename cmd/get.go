package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"alpaca/internal/cli"
	"alpaca/internal/client"
	"alpaca/internal/reconciler"
	"alpaca/internal/resource"
)

// Collections that get can list. Commands belong to a system.
var getResourceTypes = []string{
	"agents",
	"groups",
	"systems",
	"commands",
}

func newGetCmd(flags *cli.CommandFlags) *cobra.Command {
	var systemName string

	cmd := &cobra.Command{
		Use:   "get <" + strings.Join(getResourceTypes, "|") + ">",
		Short: "List resources on the ALPACA Operator server",
		Long: `List agents, groups, systems or the commands of one system.

Examples:
  alpaca get agents
  alpaca get systems -o table
  alpaca get commands --system prod-db -o json`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: getResourceTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, err := parseCollection(args[0])
			if err != nil {
				return err
			}
			if collection == "commands" && systemName == "" {
				return &cli.UsageError{Message: "listing commands requires --system"}
			}

			executor, err := newExecutor(cmd, flags)
			if err != nil {
				return err
			}
			c, conn, err := executor.Client(nil)
			if err != nil {
				return err
			}

			var items []reconciler.Record
			err = executor.Spin("Fetching "+collection, func() error {
				var err error
				items, err = listCollection(cmd.Context(), c, collection, systemName)
				return err
			})
			if err != nil {
				return cli.DescribeError(err, conn.BaseURL())
			}
			return executor.Formatter().FormatList(collection, items)
		},
	}

	cmd.Flags().StringVar(&systemName, "system", "", "System whose commands are listed")
	return cmd
}

func parseCollection(s string) (string, error) {
	kind, err := resource.ParseKind(s)
	if err != nil || kind == resource.KindCommandSet {
		return "", &cli.UsageError{Message: fmt.Sprintf("unknown resource type %q (valid: %s)", s, strings.Join(getResourceTypes, ", "))}
	}
	return string(kind) + "s", nil
}

func listCollection(ctx context.Context, c *client.Client, collection, systemName string) ([]reconciler.Record, error) {
	if collection != "commands" {
		return c.List(ctx, collection)
	}

	system, err := c.Lookup(ctx, "systems", "name", systemName)
	if err != nil {
		return nil, err
	}
	if system == nil {
		return nil, &resource.NotFoundError{Kind: "system", Key: "name", Value: systemName}
	}
	var items []reconciler.Record
	if err := c.Get(ctx, client.Path("systems", system["id"], "commands"), &items); err != nil {
		return nil, err
	}
	return items, nil
}
