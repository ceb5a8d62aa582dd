package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/geograph/pkg/geograph"
)

// SaveOptions holds flags for the save command.
type SaveOptions struct {
	*RootOptions
	NoUpdate     bool
	IgnoreErrors bool
}

// SaveResult lists the root uuids of saved graphs, in input order.
type SaveResult struct {
	UUIDs []string `json:"uuids"`
}

// NewSaveCommand creates the save command.
func NewSaveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SaveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "save <graph-file>...",
		Short: "Save graphs to the stores",
		Long: `Save every graph in the given files. Each file holds one graph object
or a list of them. Every graph is its own unit of work.

Examples:
  geograph save person.yaml
  geograph save --ignore-errors people.json places.json`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoUpdate, "no-update", false, "link existing nodes without writing their properties")
	cmd.Flags().BoolVar(&opts.IgnoreErrors, "ignore-errors", false, "skip failing graphs instead of stopping")

	return cmd
}

func runSave(ctx context.Context, opts *SaveOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	var graphs []map[string]any
	for _, path := range paths {
		g, err := LoadGraphs(path, cmd.InOrStdin())
		if err != nil {
			return formatter.Fail("loading graphs", err)
		}
		formatter.VerboseLog("Loaded %d graph(s) from %s", len(g), path)
		graphs = append(graphs, g...)
	}

	var saveOpts []geograph.SaveOption
	if opts.NoUpdate {
		saveOpts = append(saveOpts, geograph.WithoutUpdate())
	}
	if opts.IgnoreErrors {
		saveOpts = append(saveOpts, geograph.WithIgnoreErrors())
	}

	return withClient(ctx, opts.RootOptions, formatter, func(client *geograph.Client) error {
		ids, err := client.SaveAll(ctx, graphs, saveOpts...)
		if err != nil {
			return formatter.Fail("saving graphs", err)
		}
		if formatter.Format == "json" {
			return formatter.Success(SaveResult{UUIDs: ids})
		}
		for i, id := range ids {
			if id == "" {
				fmt.Fprintf(formatter.Writer, "✗ graph %d skipped\n", i)
				continue
			}
			fmt.Fprintf(formatter.Writer, "✓ %s\n", id)
		}
		return nil
	})
}

// withClient connects, runs fn and closes the stores.
func withClient(ctx context.Context, opts *RootOptions, formatter *OutputFormatter, fn func(*geograph.Client) error) error {
	client, closeFn, err := opts.Connect(ctx, opts)
	if err != nil {
		return formatter.Fail("connecting to stores", err)
	}
	defer closeFn()
	return fn(client)
}
