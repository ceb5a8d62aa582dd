package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/geograph/pkg/geograph"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Query         string // query file; deletes every node it binds
	Relationships string // graph file; deletes the relationships it names
}

// DeleteResult lists the uuids of deleted nodes.
type DeleteResult struct {
	Deleted []string `json:"deleted"`
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete [<label> <uuid>...]",
		Short: "Delete nodes or relationships",
		Long: `Detach-delete nodes and their geometry rows.

Examples:
  geograph delete Person 3f0c...          delete by label and uuid
  geograph delete --query adults.yaml     delete every node the query binds
  geograph delete --relationships rel.yaml  delete relationships, keep nodes`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.Query != "" || opts.Relationships != "" {
				if len(args) > 0 {
					return fmt.Errorf("positional arguments cannot be combined with --query or --relationships")
				}
				if opts.Query != "" && opts.Relationships != "" {
					return fmt.Errorf("--query and --relationships are mutually exclusive")
				}
				return nil
			}
			if len(args) < 2 {
				return fmt.Errorf("requires a label and at least one uuid")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Query, "query", "", "query file selecting nodes to delete")
	cmd.Flags().StringVar(&opts.Relationships, "relationships", "", "graph file naming relationships to delete")

	return cmd
}

func runDelete(ctx context.Context, opts *DeleteOptions, args []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	switch {
	case opts.Relationships != "":
		graphs, err := LoadGraphs(opts.Relationships, cmd.InOrStdin())
		if err != nil {
			return formatter.Fail("loading graph", err)
		}
		return withClient(ctx, opts.RootOptions, formatter, func(client *geograph.Client) error {
			for i, g := range graphs {
				if err := client.DeleteRelationships(ctx, g); err != nil {
					return formatter.Fail(fmt.Sprintf("deleting relationships of graph %d", i), err)
				}
			}
			if formatter.Format == "json" {
				return formatter.Success(map[string]int{"graphs": len(graphs)})
			}
			fmt.Fprintf(formatter.Writer, "✓ Deleted relationships of %d graph(s)\n", len(graphs))
			return nil
		})

	case opts.Query != "":
		qf, err := LoadQuery(opts.Query, cmd.InOrStdin())
		if err != nil {
			return formatter.Fail("loading query", err)
		}
		return withClient(ctx, opts.RootOptions, formatter, func(client *geograph.Client) error {
			deleted, err := client.DeleteNodesByQuery(ctx, qf.Query)
			if err != nil {
				return formatter.Fail("deleting by query", err)
			}
			return outputDeleted(formatter, deleted)
		})

	default:
		return withClient(ctx, opts.RootOptions, formatter, func(client *geograph.Client) error {
			deleted, err := client.DeleteNodesByID(ctx, args[0], args[1:])
			if err != nil {
				return formatter.Fail("deleting by id", err)
			}
			return outputDeleted(formatter, deleted)
		})
	}
}

func outputDeleted(formatter *OutputFormatter, deleted []string) error {
	if formatter.Format == "json" {
		return formatter.Success(DeleteResult{Deleted: deleted})
	}
	for _, id := range deleted {
		fmt.Fprintf(formatter.Writer, "✓ %s\n", id)
	}
	fmt.Fprintf(formatter.Writer, "Deleted %d node(s)\n", len(deleted))
	return nil
}
