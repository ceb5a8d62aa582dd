package querycypher

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geograph/internal/ident"
	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
	"github.com/roach88/geograph/internal/testutil"
)

const (
	existingA = "5f0c2a8e-1d3b-4c6a-9e7f-0a1b2c3d4e5f"
	existingB = "6a1d3b9f-2e4c-4d7b-8f80-1b2c3d4e5f60"
	existingC = "7b2e4c0a-3f5d-4e8c-a091-2c3d4e5f6071"
)

func newTestCompiler() *Compiler {
	return New(WithUUIDGenerator(testutil.NewSequenceUUIDGenerator()))
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

func TestCompileSave_NewRootWithNewFriend(t *testing.T) {
	friend := map[string]any{"_label": "Person", "name": "B"}
	root := map[string]any{
		"_label":  "Person",
		"name":    "A",
		"friends": []any{friend},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{Update: true})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"CREATE (vaa:Person:Geograph $vaa)",
		"CREATE (vaa)-[:friends {isArray: true}]->(vba:Person:Geograph $vba)",
	), st.Text)
	assert.Equal(t, ir.Params{
		"vaa": {"name": "A", "uuid": testutil.SequenceUUID(1)},
		"vba": {"name": "B", "uuid": testutil.SequenceUUID(2)},
	}, st.Params)
	assert.Equal(t, "vaa", st.ID)
	assert.Equal(t, testutil.SequenceUUID(1), st.Start)
	assert.Equal(t, st.Start, root["uuid"], "uuid written back onto the root")
	assert.Equal(t, testutil.SequenceUUID(2), friend["uuid"], "uuid written back onto the child")
}

func TestCompileSave_RandomUUIDByDefault(t *testing.T) {
	root := map[string]any{"_label": "Person", "name": "A"}

	st, err := New().CompileSave(root, SaveOptions{})
	require.NoError(t, err)

	assert.True(t, node.IsUUID(st.Start))
	assert.Equal(t, st.Start, root["uuid"])
}

func TestCompileSave_ExistingRootWithoutProperties(t *testing.T) {
	st, err := newTestCompiler().CompileSave(map[string]any{
		"_label": "Person",
		"uuid":   existingA,
	}, SaveOptions{Update: true})
	require.NoError(t, err)

	assert.Equal(t, "MATCH (vaa:Person:Geograph {uuid: $vaa.uuid})", st.Text)
	assert.NotContains(t, st.Text, "SET")
	assert.Equal(t, ir.Params{"vaa": {"uuid": existingA}}, st.Params)
	assert.Equal(t, existingA, st.Start)
}

func TestCompileSave_ExistingRootUpdate(t *testing.T) {
	n := map[string]any{"_label": "Person", "uuid": existingA, "name": "A", "age": 3}

	st, err := newTestCompiler().CompileSave(n, SaveOptions{Update: true})
	require.NoError(t, err)
	assert.Equal(t,
		"MATCH (vaa:Person:Geograph {uuid: $vaa.uuid}) SET vaa.age = $vaa.age, vaa.name = $vaa.name",
		st.Text)
	assert.Equal(t, map[string]any{"uuid": existingA, "name": "A", "age": int64(3)}, st.Params["vaa"])

	st, err = newTestCompiler().CompileSave(n, SaveOptions{Update: false})
	require.NoError(t, err)
	assert.Equal(t, "MATCH (vaa:Person:Geograph {uuid: $vaa.uuid})", st.Text)
}

func TestCompileSave_ExistingChildIsMergedNotCreated(t *testing.T) {
	root := map[string]any{
		"_label": "Person",
		"name":   "A",
		"best":   map[string]any{"uuid": existingB, "name": "B"},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{Update: true})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"CREATE (vaa:Person:Geograph $vaa)",
		"WITH vaa",
		"MATCH (vba:Geograph {uuid: $vba.uuid}) SET vba.name = $vba.name",
		"MERGE (vaa)-[vca:best]->(vba) SET vca.isArray = false",
	), st.Text)
	assert.Equal(t, map[string]any{"uuid": existingB, "name": "B"}, st.Params["vba"])
	assert.Equal(t, 1, strings.Count(st.Text, "CREATE"), "existing child must not be re-created")
}

func TestCompileSave_ArrayHintOnSingleChild(t *testing.T) {
	root := map[string]any{
		"_label": "Person",
		"name":   "A",
		"home":   map[string]any{"_label": "Place", "_array": true, "city": "Oslo"},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{})
	require.NoError(t, err)

	assert.Contains(t, st.Text, "CREATE (vaa)-[:home {isArray: true}]->(vba:Place:Geograph $vba)")
	assert.NotContains(t, st.Params["vba"], "_array", "bookkeeping keys are never stored")
}

func TestCompileSave_DepthFirstThroughMatchedChild(t *testing.T) {
	root := map[string]any{
		"_label": "Person",
		"uuid":   existingA,
		"friends": []any{
			map[string]any{
				"uuid":    existingB,
				"livesIn": map[string]any{"_label": "City", "name": "Oslo"},
			},
		},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Person:Geograph {uuid: $vaa.uuid})",
		"WITH vaa",
		"MATCH (vba:Geograph {uuid: $vba.uuid})",
		"MERGE (vaa)-[vca:friends]->(vba) SET vca.isArray = true",
		"CREATE (vba)-[:livesIn {isArray: false}]->(vda:City:Geograph $vda)",
	), st.Text)
	assert.Equal(t, testutil.SequenceUUID(1), st.Params["vda"]["uuid"])
}

func TestCompileSave_DuplicateEdgesCompiledOnce(t *testing.T) {
	root := map[string]any{
		"_label": "Person",
		"name":   "A",
		"friends": []any{
			map[string]any{"uuid": existingB},
			map[string]any{"uuid": existingB},
		},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(st.Text, "MERGE"))
	assert.Equal(t, 1, strings.Count(st.Text, "MATCH"))
}

func TestCompileSave_SharedNodeLinkedTwice(t *testing.T) {
	shared := map[string]any{"_label": "Person", "name": "B"}
	root := map[string]any{
		"_label":  "Person",
		"name":    "A",
		"best":    shared,
		"friends": []any{shared},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"CREATE (vaa:Person:Geograph $vaa)",
		"CREATE (vaa)-[:best {isArray: false}]->(vba:Person:Geograph $vba)",
		"MERGE (vaa)-[vca:friends]->(vba) SET vca.isArray = true",
	), st.Text)
	assert.Equal(t, testutil.SequenceUUID(2), shared["uuid"])
}

func TestCompileSave_GeoFeaturesStayOutOfGraphBag(t *testing.T) {
	root := map[string]any{
		"_label": "Place",
		"name":   "Park",
		"area": map[string]any{
			"type":       "Feature",
			"geometry":   map[string]any{"type": "Point", "coordinates": []any{1.0, 2.0}},
			"properties": map[string]any{},
		},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, "CREATE (vaa:Place:Geograph $vaa)", st.Text)
	assert.NotContains(t, st.Params["vaa"], "area")
}

func TestCompileSave_NullsDroppedOnCreate(t *testing.T) {
	st, err := newTestCompiler().CompileSave(map[string]any{
		"_label": "Person", "name": "A", "nickname": nil,
	}, SaveOptions{})
	require.NoError(t, err)

	assert.NotContains(t, st.Params["vaa"], "nickname")
}

func TestCompileSave_NullsClearedOnUpdate(t *testing.T) {
	st, err := newTestCompiler().CompileSave(map[string]any{
		"_label": "Person", "uuid": existingA, "nickname": nil,
	}, SaveOptions{Update: true})
	require.NoError(t, err)

	assert.Contains(t, st.Text, "SET vaa.nickname = $vaa.nickname")
	assert.Contains(t, st.Params["vaa"], "nickname")
}

func TestCompileSave_MalformedUUIDsAreReplaced(t *testing.T) {
	friend := map[string]any{"_label": "Person", "uuid": "123", "name": "B"}
	root := map[string]any{
		"_label":  "Person",
		"uuid":    "not-a-uuid",
		"name":    "A",
		"friends": []any{friend},
	}

	st, err := newTestCompiler().CompileSave(root, SaveOptions{Update: true})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"CREATE (vaa:Person:Geograph $vaa)",
		"CREATE (vaa)-[:friends {isArray: true}]->(vba:Person:Geograph $vba)",
	), st.Text)
	assert.Equal(t, ir.Params{
		"vaa": {"name": "A", "uuid": testutil.SequenceUUID(1)},
		"vba": {"name": "B", "uuid": testutil.SequenceUUID(2)},
	}, st.Params)
	assert.Equal(t, testutil.SequenceUUID(1), root["uuid"])
	assert.Equal(t, testutil.SequenceUUID(2), friend["uuid"])
}

func TestCompileSave_Errors(t *testing.T) {
	cyclicA := map[string]any{"_label": "Person", "name": "A"}
	cyclicB := map[string]any{"_label": "Person", "name": "B", "back": cyclicA}
	cyclicA["next"] = cyclicB

	self := map[string]any{"_label": "Person", "name": "S"}
	self["me"] = []any{self}

	tests := []struct {
		name string
		node map[string]any
		want error
	}{
		{"no label", map[string]any{"property": "value"}, ir.ErrInvalidLabel},
		{"bad label", map[string]any{"_label": "Per son", "name": "A"}, ir.ErrInvalidLabel},
		{"empty node", map[string]any{"_label": "Person"}, ir.ErrEmptyNode},
		{"nil node", nil, ir.ErrEmptyNode},
		{"malformed root uuid without properties", map[string]any{"_label": "Person", "uuid": "nope"}, ir.ErrEmptyNode},
		{"malformed child uuid without label", map[string]any{
			"_label": "Person", "name": "A",
			"best": map[string]any{"uuid": "nope"},
		}, ir.ErrInvalidLabel},
		{"new child without label", map[string]any{
			"_label": "Person", "name": "A",
			"friends": []any{map[string]any{"name": "B"}},
		}, ir.ErrInvalidLabel},
		{"invalid key", map[string]any{"_label": "Person", "bad key": 1}, ir.ErrInvalidPropertyKey},
		{"invalid nested key", map[string]any{
			"_label": "Person", "name": "A",
			"best": map[string]any{"_label": "Person", "x}) DETACH DELETE (y": 1},
		}, ir.ErrInvalidPropertyKey},
		{"mixed array", map[string]any{"_label": "Person", "tags": []any{"a", map[string]any{}}}, ir.ErrInvalidProperty},
		{"cycle", cyclicA, ir.ErrCyclicGraph},
		{"self reference", self, ir.ErrCyclicGraph},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestCompiler().CompileSave(tt.node, SaveOptions{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCompileSave_ErrorPath(t *testing.T) {
	_, err := newTestCompiler().CompileSave(map[string]any{
		"_label": "Person", "name": "A",
		"friends": []any{
			map[string]any{"_label": "Person", "name": "B"},
			map[string]any{"name": "C"},
		},
	}, SaveOptions{})
	require.Error(t, err)

	var ve *ir.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "root.friends[1]", ve.Details["path"])
}

func TestCompileSave_TooManyIdentifiers(t *testing.T) {
	children := make([]any, ident.Capacity)
	for i := range children {
		children[i] = map[string]any{"_label": "Leaf", "n": i}
	}

	_, err := newTestCompiler().CompileSave(map[string]any{
		"_label": "Root", "name": "big", "leaves": children,
	}, SaveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ir.ErrTooManyIdentifiers))
}

func TestCompileSave_IdentifiersUniqueAcrossCompiles(t *testing.T) {
	c := newTestCompiler()

	first, err := c.CompileSave(map[string]any{"_label": "A", "x": 1}, SaveOptions{})
	require.NoError(t, err)
	second, err := c.CompileSave(map[string]any{"_label": "B", "x": 2}, SaveOptions{})
	require.NoError(t, err)

	assert.Equal(t, "vaa", first.ID)
	assert.Equal(t, "vaa", second.ID, "each compile starts a fresh allocator")
	assert.NotEqual(t, first.Start, second.Start)
}
