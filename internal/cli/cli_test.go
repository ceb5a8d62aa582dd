package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/testutil"
	"github.com/roach88/geograph/internal/testutil/fakestore"
	"github.com/roach88/geograph/pkg/geograph"
)

const personYAML = `_label: Person
name: Ada
location:
  type: Feature
  geometry:
    type: Point
    coordinates: [1, 2]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// fakeOptions returns options whose Connect builds a client over the given
// fakes.
func fakeOptions(format string, graph *fakestore.GraphStore, relational *fakestore.RelationalStore) *RootOptions {
	return &RootOptions{
		Format: format,
		Connect: func(context.Context, *RootOptions) (*geograph.Client, func(), error) {
			client := geograph.New(graph,
				geograph.WithRelationalStore(relational),
				geograph.WithUUIDGenerator(testutil.NewSequenceUUIDGenerator()),
				geograph.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
			)
			return client, func() {}, nil
		},
	}
}

func TestRootCommand_InvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	path := writeFile(t, "person.yaml", personYAML)

	_, err := execute(cmd, "--format", "xml", "compile", "save", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid format "xml"`)
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := NewRootCommand()
	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"compile", "save", "find", "get", "delete", "schema", "test"} {
		assert.Contains(t, names, want)
	}
}

func TestCompileSave_Text(t *testing.T) {
	path := writeFile(t, "person.yaml", personYAML)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "save", path)
	require.NoError(t, err)
	assert.Contains(t, out, "CREATE (vaa:Person:Geograph $vaa)")
	assert.Contains(t, out, `params: {"vaa":{"name":"Ada","uuid":"`)
	assert.Contains(t, out, "INSERT INTO geometries (node_uuid, node_key, node_label, geometry, properties)")
	assert.Contains(t, out, `"location","Person","POINT(1 2)",null]`)
}

func TestCompileSave_JSONWithSRID(t *testing.T) {
	path := writeFile(t, "people.json", `[{"_label": "Person", "name": "Ada"}, {"_label": "Place", "area": {"type": "Feature", "geometry": {"type": "Point", "coordinates": [3, 4]}}}]`)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), "save", "--srid", "3857", path)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []Compiled `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 2)
	assert.Empty(t, resp.Data[0].SQL)
	require.Len(t, resp.Data[1].SQL, 1)
	assert.Contains(t, resp.Data[1].SQL[0].SQL, "ST_GeomFromText($4, 3857)")
}

func TestCompileSave_ValidationError(t *testing.T) {
	path := writeFile(t, "bad.yaml", "_label: 9lives\nname: Tom\n")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "save", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, ir.IsValidation(err))
	assert.Contains(t, out, "Error [INVALID_LABEL]")
}

func TestCompileSave_MissingFile(t *testing.T) {
	out, err := execute(NewCompileCommand(&RootOptions{Format: "json"}), "save", "/nonexistent/graph.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, ErrCodeGeneric, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "failed to read file")
}

func TestCompileFind_Spatial(t *testing.T) {
	path := writeFile(t, "query.yaml", `label: Place
filter: "[name = 'Park']"
relations: [owner]
spatial:
  nodes: [Place.area]
  op: intersects
  geometry: {type: Point, coordinates: [1, 2]}
`)

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "find", path)
	require.NoError(t, err)
	assert.Contains(t, out, "MATCH (vaa:Place:Geograph) WHERE")
	assert.Contains(t, out, "MATCH (vaa)-[vda:owner]->(vca)")
	assert.Contains(t, out, "ST_Intersects(geometry, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326))")
}

func TestCompileDelete(t *testing.T) {
	path := writeFile(t, "query.yaml", "labels: [Person]\n")

	out, err := execute(NewCompileCommand(&RootOptions{Format: "text"}), "delete", path)
	require.NoError(t, err)
	assert.Contains(t, out, "DETACH DELETE vca")
	assert.Contains(t, out, "RETURN uuid")
}

func TestSaveCommand(t *testing.T) {
	graph := fakestore.NewGraphStore()
	relational := fakestore.NewRelationalStore()
	path := writeFile(t, "person.yaml", personYAML)

	out, err := execute(NewSaveCommand(fakeOptions("json", graph, relational)), path)
	require.NoError(t, err)

	var resp struct {
		Data SaveResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, []string{testutil.SequenceUUID(1)}, resp.Data.UUIDs)
	assert.Len(t, graph.Statements(), 1)
	assert.Len(t, relational.Statements(), 1)
	assert.Equal(t, 1, relational.Counts().Committed)
}

func TestSaveCommand_IgnoreErrors(t *testing.T) {
	graph := fakestore.NewGraphStore()
	relational := fakestore.NewRelationalStore()
	path := writeFile(t, "people.yaml", "- {_label: Person, name: A}\n- {_label: 9bad, name: B}\n")

	out, err := execute(NewSaveCommand(fakeOptions("text", graph, relational)), "--ignore-errors", path)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ "+testutil.SequenceUUID(1))
	assert.Contains(t, out, "✗ graph 1 skipped")
}

func TestFindCommand_Empty(t *testing.T) {
	path := writeFile(t, "query.yaml", "label: Person\n")

	out, err := execute(NewFindCommand(fakeOptions("json", fakestore.NewGraphStore(), fakestore.NewRelationalStore())), path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","data":[]}`, out)
}

func TestGetCommand_NotFound(t *testing.T) {
	out, err := execute(NewGetCommand(fakeOptions("text", fakestore.NewGraphStore(), fakestore.NewRelationalStore())),
		"Person", testutil.SequenceUUID(7))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Error [E_NOT_FOUND]")
}

func TestGetCommand_InvalidUUID(t *testing.T) {
	out, err := execute(NewGetCommand(fakeOptions("text", fakestore.NewGraphStore(), fakestore.NewRelationalStore())),
		"Person", "nope")
	require.Error(t, err)
	assert.Contains(t, out, "Error [INVALID_UUID]")
}

func TestDeleteCommand_ByID(t *testing.T) {
	graph := fakestore.NewGraphStore()
	graph.Respond = func(string, ir.Params) ([]ir.Record, error) {
		return []ir.Record{{"uuid": testutil.SequenceUUID(1)}}, nil
	}
	relational := fakestore.NewRelationalStore()

	out, err := execute(NewDeleteCommand(fakeOptions("text", graph, relational)), "Person", testutil.SequenceUUID(1))
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 node(s)")
	require.Len(t, relational.Statements(), 1)
	assert.True(t, strings.HasPrefix(relational.Statements()[0].Text, "DELETE FROM geometries"))
}

func TestDeleteCommand_Args(t *testing.T) {
	opts := fakeOptions("text", fakestore.NewGraphStore(), fakestore.NewRelationalStore())

	_, err := execute(NewDeleteCommand(opts), "Person")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a label and at least one uuid")

	_, err = execute(NewDeleteCommand(opts), "--query", "q.yaml", "--relationships", "r.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestDeleteCommand_Relationships(t *testing.T) {
	graph := fakestore.NewGraphStore()
	path := writeFile(t, "rel.yaml", `_label: Person
uuid: "`+testutil.SequenceUUID(1)+`"
friends:
  - _label: Person
    uuid: "`+testutil.SequenceUUID(2)+`"
`)

	out, err := execute(NewDeleteCommand(fakeOptions("text", graph, fakestore.NewRelationalStore())), "--relationships", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted relationships of 1 graph(s)")
	require.Len(t, graph.Statements(), 1)
	assert.Contains(t, graph.Statements()[0].Text, "DELETE vca")
}

func TestLoadGraphs_Errors(t *testing.T) {
	_, err := LoadGraphs(writeFile(t, "list.yaml", "- {_label: A}\n- 3\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "element 1 is not an object")

	_, err = LoadGraphs(writeFile(t, "scalar.yaml", "42\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected an object or a list of objects")

	_, err = LoadGraphs(writeFile(t, "empty.yaml", ""), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file is empty")
}

func TestLoadGraphs_Stdin(t *testing.T) {
	graphs, err := LoadGraphs("-", strings.NewReader(`{"_label": "Person", "age": 30}`))
	require.NoError(t, err)
	require.Len(t, graphs, 1)
	assert.Equal(t, "Person", graphs[0]["_label"])
}

func TestLoadQuery_Spatial(t *testing.T) {
	qf, err := LoadQuery(writeFile(t, "q.yaml", `labels: [Place]
spatial:
  op: dwithin
  distance: 250
  geometry: {type: Point, coordinates: [1, 2]}
`), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"Place"}, qf.Query.Labels)
	require.NotNil(t, qf.Spatial)
	assert.Equal(t, geograph.DWithin, qf.Spatial.Op)
	assert.Equal(t, 250.0, qf.Spatial.Distance)
	assert.JSONEq(t, `{"type":"Point","coordinates":[1,2]}`, string(qf.Spatial.Geometry))
}

func TestTestCommand(t *testing.T) {
	dir := t.TempDir()
	scenario, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", "save_person_with_home.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "save.yaml"), scenario, 0644))

	out, err := execute(NewTestCommand(&RootOptions{Format: "text"}), dir, "--update")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ save_person_with_home (golden updated)")

	golden, err := os.ReadFile(filepath.Join(dir, "golden", "save_person_with_home.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "golden", "save_person_with_home.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(golden))

	out, err = execute(NewTestCommand(&RootOptions{Format: "text"}), dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Test Summary: 1 passed, 0 failed, 1 total")
}

func TestTestCommand_GoldenMismatch(t *testing.T) {
	dir := t.TempDir()
	scenario, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", "invalid_label.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "invalid.yaml"), scenario, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "invalid_label.golden"), []byte("{}"), 0644))

	out, err := execute(NewTestCommand(&RootOptions{Format: "json"}), dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTestCommand_MissingDir(t *testing.T) {
	_, err := execute(NewTestCommand(&RootOptions{Format: "text"}), "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}
