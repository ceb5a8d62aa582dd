package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querycypher"
	"github.com/roach88/geograph/internal/querysql"
)

// CompileOptions holds flags for the compile commands.
type CompileOptions struct {
	*RootOptions
	NoUpdate bool
	SRID     int
}

// CompiledSQL is one compiled relational statement.
type CompiledSQL struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// Compiled is the output of one compile: a graph statement and the
// geometry statements that go with it.
type Compiled struct {
	Cypher string        `json:"cypher,omitempty"`
	Params ir.Params     `json:"params,omitempty"`
	SQL    []CompiledSQL `json:"sql,omitempty"`
}

// NewCompileCommand creates the compile command and its subcommands.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Print the statements an operation would run",
		Long: `Compile a save, find or delete to Cypher and SQL without touching
any store. Input files are YAML or JSON; "-" reads stdin.

New nodes get random uuids, so compiled parameters differ between runs.`,
	}
	cmd.PersistentFlags().IntVar(&opts.SRID, "srid", querysql.DefaultSRID, "spatial reference id of stored geometries")

	save := &cobra.Command{
		Use:           "save <graph-file>",
		Short:         "Compile a save of one graph or a list of graphs",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileSave(opts, args[0], cmd)
		},
	}
	save.Flags().BoolVar(&opts.NoUpdate, "no-update", false, "link existing nodes without writing their properties")

	find := &cobra.Command{
		Use:           "find <query-file>",
		Short:         "Compile a find, and its spatial search if the query has one",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileFind(opts, args[0], cmd)
		},
	}

	del := &cobra.Command{
		Use:           "delete <query-file>",
		Short:         "Compile a delete of every node a query binds",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompileDelete(opts, args[0], cmd)
		},
	}

	cmd.AddCommand(save, find, del)
	return cmd
}

func runCompileSave(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	graphs, err := LoadGraphs(path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("loading graphs", err)
	}
	formatter.VerboseLog("Loaded %d graph(s) from %s", len(graphs), path)

	cypher := querycypher.New()
	sql := querysql.NewSQLCompiler(querysql.WithSRID(opts.SRID))

	out := make([]Compiled, len(graphs))
	for i, g := range graphs {
		st, err := cypher.CompileSave(g, querycypher.SaveOptions{Update: !opts.NoUpdate})
		if err != nil {
			return formatter.Fail(fmt.Sprintf("compiling graph %d", i), err)
		}
		upsert, err := sql.CompileUpsert(g)
		if err != nil {
			return formatter.Fail(fmt.Sprintf("compiling graph %d", i), err)
		}
		out[i] = Compiled{Cypher: st.Text, Params: st.Params, SQL: compiledSQL(upsert.Statements()...)}
	}
	return outputCompiled(formatter, out)
}

func runCompileFind(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	qf, err := LoadQuery(path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("loading query", err)
	}

	var out Compiled
	if qf.Spatial != nil {
		sqlst, err := querysql.NewSQLCompiler(querysql.WithSRID(opts.SRID)).CompileSpatial(*qf.Spatial)
		if err != nil {
			return formatter.Fail("compiling spatial search", err)
		}
		out.SQL = compiledSQL(sqlst)
		formatter.VerboseLog("Roots are restricted to the nodes the spatial search returns")
	}
	st, err := querycypher.New().CompileFind(qf.Query)
	if err != nil {
		return formatter.Fail("compiling find", err)
	}
	out.Cypher, out.Params = st.Text, st.Params
	return outputCompiled(formatter, []Compiled{out})
}

func runCompileDelete(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	qf, err := LoadQuery(path, cmd.InOrStdin())
	if err != nil {
		return formatter.Fail("loading query", err)
	}
	st, err := querycypher.New().CompileDeleteByQuery(qf.Query)
	if err != nil {
		return formatter.Fail("compiling delete", err)
	}
	formatter.VerboseLog("Geometry rows of the deleted nodes are removed after the graph delete")
	return outputCompiled(formatter, []Compiled{{Cypher: st.Text, Params: st.Params}})
}

func compiledSQL(statements ...ir.SQLStatement) []CompiledSQL {
	out := make([]CompiledSQL, len(statements))
	for i, st := range statements {
		out[i] = CompiledSQL{SQL: st.SQL, Args: st.Args}
	}
	return out
}

// outputCompiled prints compiled statements. Text output separates
// statements with blank lines.
func outputCompiled(formatter *OutputFormatter, compiled []Compiled) error {
	if formatter.Format == "json" {
		return formatter.Success(compiled)
	}

	w := formatter.Writer
	for i, c := range compiled {
		if i > 0 {
			fmt.Fprintln(w)
		}
		if c.Cypher != "" {
			fmt.Fprintln(w, c.Cypher)
			if err := writeJSONLine(w, "params: ", c.Params); err != nil {
				return err
			}
		}
		for _, s := range c.SQL {
			fmt.Fprintln(w)
			fmt.Fprintln(w, s.SQL)
			if err := writeJSONLine(w, "args: ", s.Args); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSONLine(w io.Writer, prefix string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s%s\n", prefix, data)
	return nil
}
