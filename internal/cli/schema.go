package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/geograph/internal/store"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Create the PostGIS geometries table if it does not exist",
		Long: `Create the postgis extension, the geometries table, its unique
(node_uuid, node_key) constraint and its indexes. Safe to run repeatedly.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchema(cmd.Context(), rootOpts, cmd)
		},
	}
}

func runSchema(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return formatter.Fail("loading configuration", err)
	}
	if !cfg.Postgres.Enabled() {
		_ = formatter.Error(ErrCodeGeneric, "POSTGRES_HOST is not set", nil)
		return NewExitError(ExitCommandError, "relational store not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.RelationalTimeout)
	defer cancel()
	st, err := store.Open(ctx, cfg.Postgres.DSN(), store.WithLogger(logger))
	if err != nil {
		return formatter.Fail("connecting to relational store", err)
	}
	defer st.Close()

	if err := st.EnsureSchema(ctx); err != nil {
		return formatter.Fail("creating schema", err)
	}
	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"table": "geometries"})
	}
	fmt.Fprintln(formatter.Writer, "✓ Schema ready")
	return nil
}
