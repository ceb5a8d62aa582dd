package graphdb

import (
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
	"github.com/stretchr/testify/assert"

	"github.com/roach88/geograph/internal/ir"
)

func TestConvertRecord(t *testing.T) {
	a := dbtype.Node{ElementId: "4:x:1", Labels: []string{"Person", "Geograph"}, Props: map[string]any{"name": "A"}}
	b := dbtype.Node{ElementId: "4:x:2", Labels: []string{"Place", "Geograph"}, Props: map[string]any{"tags": []any{"x", "y"}}}
	r := dbtype.Relationship{
		ElementId: "5:x:1", StartElementId: "4:x:1", EndElementId: "4:x:2",
		Type: "home", Props: map[string]any{"isArray": false},
	}

	rec := &neo4j.Record{
		Keys:   []string{"root", "nodes", "rels", "uuid"},
		Values: []any{a, []any{b}, []any{[]any{r}}, "u1"},
	}

	got := convertRecord(rec)

	wantA := ir.NodeRecord{ID: "4:x:1", Labels: []string{"Person", "Geograph"}, Props: map[string]any{"name": "A"}}
	wantB := ir.NodeRecord{ID: "4:x:2", Labels: []string{"Place", "Geograph"}, Props: map[string]any{"tags": []any{"x", "y"}}}
	wantR := ir.RelationshipRecord{
		ID: "5:x:1", StartID: "4:x:1", EndID: "4:x:2",
		Type: "home", Props: map[string]any{"isArray": false},
	}

	assert.Equal(t, wantA, got["root"])
	assert.Equal(t, []any{wantB}, got["nodes"])
	assert.Equal(t, []any{[]any{wantR}}, got["rels"], "nesting is preserved for the reconstructor to flatten")
	assert.Equal(t, "u1", got["uuid"])
}

func TestConvertValue_Path(t *testing.T) {
	a := dbtype.Node{ElementId: "n1"}
	b := dbtype.Node{ElementId: "n2"}
	r := dbtype.Relationship{ElementId: "r1", StartElementId: "n1", EndElementId: "n2", Type: "t"}

	got := convertValue(dbtype.Path{Nodes: []dbtype.Node{a, b}, Relationships: []dbtype.Relationship{r}})

	items, ok := got.([]any)
	assert.True(t, ok)
	assert.Len(t, items, 3)
	assert.Equal(t, "r1", items[2].(ir.RelationshipRecord).ID)
}

func TestConvertValue_ScalarsPassThrough(t *testing.T) {
	for _, v := range []any{nil, int64(3), 1.5, "s", true} {
		assert.Equal(t, v, convertValue(v))
	}
}
