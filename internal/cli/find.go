package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/geograph/pkg/geograph"
)

// NewFindCommand creates the find command.
func NewFindCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "find <query-file>",
		Short: "Find objects matching a query",
		Long: `Find the roots matching a query and expand their relation paths.
A query with a "spatial" section runs the geometry search first and only
returns roots among the nodes it matched.

Example query file:
  label: Person
  filter: "[age > 18]{limit=10}"
  relations: [friends, "?livesIn"]`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd.Context(), rootOpts, args[0], cmd)
		},
	}
}

func runFind(ctx context.Context, opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	qf, err := LoadQuery(path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("loading query", err)
	}

	return withClient(ctx, opts, formatter, func(client *geograph.Client) error {
		var (
			found []map[string]any
			err   error
		)
		if qf.Spatial != nil {
			found, err = client.FindBySpatialQuery(ctx, qf.Query, *qf.Spatial)
		} else {
			found, err = client.Find(ctx, qf.Query)
		}
		if err != nil {
			return formatter.Fail("finding", err)
		}
		formatter.VerboseLog("Found %d object(s)", len(found))
		if found == nil {
			found = []map[string]any{}
		}
		return formatter.Success(found)
	})
}

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <label> <uuid>",
		Short:         "Get one object and everything reachable from it",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), rootOpts, args[0], args[1], cmd)
		},
	}
}

func runGet(ctx context.Context, opts *RootOptions, label, uuid string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	return withClient(ctx, opts, formatter, func(client *geograph.Client) error {
		found, err := client.FindByID(ctx, label, uuid)
		if err != nil {
			return formatter.Fail("finding by id", err)
		}
		if found == nil {
			_ = formatter.Error("E_NOT_FOUND", "no "+label+" with uuid "+uuid, nil)
			return NewExitError(ExitFailure, "not found")
		}
		return formatter.Success(found)
	})
}
