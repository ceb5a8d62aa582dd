package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geograph/internal/ir"
)

func TestGraphFromRecords_FlattensAndDedupes(t *testing.T) {
	a, b := person("n1", uuidA, "A"), person("n2", uuidB, "B")
	r := rel("r1", "n1", "n2", "best", false)

	records := []ir.Record{{
		"nodes": []any{a, b, a},
		// Variable-length matches collect lists of relationship lists.
		"rels": []any{[]any{}, []any{r}, []any{r}},
	}}

	g, err := GraphFromRecords(records, "nodes", "rels")
	require.NoError(t, err)

	assert.Equal(t, []ir.NodeRecord{a, b}, g.Nodes)
	assert.Equal(t, []ir.RelationshipRecord{r}, g.Rels)
}

func TestGraphFromRecords_RejectsScalars(t *testing.T) {
	_, err := GraphFromRecords([]ir.Record{{"nodes": []any{"oops"}}}, "nodes", "rels")
	assert.Error(t, err)
}

func TestRowsFromRecords(t *testing.T) {
	a, b := person("n1", uuidA, "A"), person("n2", uuidB, "B")
	r := rel("r1", "n1", "n2", "friends", true)

	rows, err := RowsFromRecords([]ir.Record{
		{"root": a, "vca": []any{b}, "vda": []any{r}},
		{"root": b, "vca": []any{}, "vda": []any{}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, a, rows[0].Root)
	assert.Equal(t, []ir.NodeRecord{b}, rows[0].Nodes)
	assert.Equal(t, []ir.RelationshipRecord{r}, rows[0].Rels)
	assert.Empty(t, rows[1].Nodes)
}

func TestRowsFromRecords_MissingRoot(t *testing.T) {
	_, err := RowsFromRecords([]ir.Record{{"vca": []any{}}})
	assert.Error(t, err)
}
