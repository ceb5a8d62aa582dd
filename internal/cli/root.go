package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/geograph/internal/config"
	"github.com/roach88/geograph/pkg/geograph"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	EnvFile string

	// Connect opens a Client over the configured stores. Tests replace it
	// with in-memory stores.
	Connect func(ctx context.Context, opts *RootOptions) (*geograph.Client, func(), error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the geograph CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Connect: connectFromConfig}

	cmd := &cobra.Command{
		Use:   "geograph",
		Short: "geograph - JSON graphs over Neo4j and PostGIS",
		Long: `Save, find and delete JSON object graphs. Nodes and relationships
go to Neo4j; GeoJSON features go to a PostGIS geometries table.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with store settings")

	// Add subcommands
	cmd.AddCommand(NewCompileCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewGetCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig reads the dotenv file and environment. Verbose forces debug
// logging.
func loadConfig(opts *RootOptions) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "loading configuration", err)
	}
	level := cfg.Level()
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return cfg, logger, nil
}

func connectFromConfig(ctx context.Context, opts *RootOptions) (*geograph.Client, func(), error) {
	cfg, logger, err := loadConfig(opts)
	if err != nil {
		return nil, nil, err
	}
	client, closeFn, err := geograph.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "connecting to stores", err)
	}
	return client, closeFn, nil
}
