package querycypher

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geograph/internal/ir"
)

func TestCompileFindByID(t *testing.T) {
	st, err := newTestCompiler().CompileFindByID("Person", existingA)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Person:Geograph {uuid: $vaa.uuid})",
		"WITH vaa MATCH (vaa)-[vba*0..]->(vca)",
		"RETURN collect(DISTINCT vca) AS nodes, collect(DISTINCT vba) AS rels",
	), st.Text)
	assert.Equal(t, ir.Params{"vaa": {"uuid": existingA}}, st.Params)
	assert.Equal(t, existingA, st.Start)
}

func TestCompileFindByID_Errors(t *testing.T) {
	_, err := newTestCompiler().CompileFindByID("Per:son", existingA)
	assert.True(t, errors.Is(err, ir.ErrInvalidLabel))

	_, err = newTestCompiler().CompileFindByID("Person", "not-a-uuid")
	assert.True(t, errors.Is(err, ir.ErrInvalidUUID))
}

func TestCompileFind_FilterOnly(t *testing.T) {
	st, err := newTestCompiler().CompileFind(Query{Labels: []string{"Person"}, Filter: "[age > 18]"})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Person:Geograph) WHERE vaa.age > $vba.p0",
		"WITH vaa",
		"RETURN vaa AS root",
	), st.Text)
	assert.Equal(t, ir.Params{"vba": {"p0": int64(18)}}, st.Params)
	assert.NotContains(t, st.Text, "OPTIONAL")
	assert.NotContains(t, st.Text, "]->(")
}

func TestCompileFind_MultipleLabelsNoFilter(t *testing.T) {
	st, err := newTestCompiler().CompileFind(Query{Labels: []string{"Person", "Admin"}})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Person:Admin:Geograph)",
		"WITH vaa",
		"RETURN vaa AS root",
	), st.Text)
	assert.Empty(t, st.Params)
}

func TestCompileFind_RelationsAndPagination(t *testing.T) {
	st, err := newTestCompiler().CompileFind(Query{
		Labels:    []string{"Person"},
		Filter:    `[age > 18 AND name <> "Bob"]{skip=1 limit=2}`,
		Relations: []string{"friends@f[age < 30].?livesIn-worksIn{limit=1}"},
	})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Person:Geograph) WHERE (vaa.age > $vba.p0 AND vaa.name <> $vba.p1)",
		"WITH vaa SKIP 1 LIMIT 2",
		"MATCH (vaa)-[f:friends]->(vca) WHERE vca.age < $vda.p0",
		"WITH vaa, vca, f",
		"OPTIONAL MATCH (vca)-[vfa:livesIn|worksIn]->(vea)",
		"WITH vaa, vca, vea, f, vfa LIMIT 1",
		"RETURN vaa AS root, collect(DISTINCT vca) AS vca, collect(DISTINCT vea) AS vea, "+
			"collect(DISTINCT f) AS f, collect(DISTINCT vfa) AS vfa",
	), st.Text)
	assert.Equal(t, ir.Params{
		"vba": {"p0": int64(18), "p1": "Bob"},
		"vda": {"p0": int64(30)},
	}, st.Params)
}

func TestCompileFind_TwoPathsBothProjected(t *testing.T) {
	st, err := newTestCompiler().CompileFind(Query{
		Labels:    []string{"Person"},
		Relations: []string{"?friends", "?owns"},
	})
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Person:Geograph)",
		"WITH vaa",
		"OPTIONAL MATCH (vaa)-[vca:friends]->(vba)",
		"WITH vaa, vba, vca",
		"OPTIONAL MATCH (vaa)-[vea:owns]->(vda)",
		"WITH vaa, vba, vda, vca, vea",
		"RETURN vaa AS root, collect(DISTINCT vba) AS vba, collect(DISTINCT vda) AS vda, "+
			"collect(DISTINCT vca) AS vca, collect(DISTINCT vea) AS vea",
	), st.Text)
}

func TestCompileFind_LeftToRightBooleans(t *testing.T) {
	st, err := newTestCompiler().CompileFind(Query{
		Labels: []string{"Person"},
		Filter: "[a = 1 OR b = 2 AND c IS NULL]",
	})
	require.NoError(t, err)

	assert.Contains(t, st.Text,
		"WHERE ((vaa.a = $vba.p0 OR vaa.b = $vba.p1) AND vaa.c IS NULL)")
}

func TestCompileFind_ValuesNeverInterpolated(t *testing.T) {
	payload := `x" OR 1=1 //`
	st, err := newTestCompiler().CompileFind(Query{
		Labels: []string{"Person"},
		Filter: `[name = 'x" OR 1=1 //']`,
	})
	require.NoError(t, err)

	assert.NotContains(t, st.Text, "1=1")
	assert.Equal(t, payload, st.Params["vba"]["p0"])
}

func TestCompileFindRestricted(t *testing.T) {
	st, err := newTestCompiler().CompileFindRestricted(
		Query{Labels: []string{"Place"}, Filter: "[open = true]"},
		[]string{existingA, existingB},
	)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (vaa:Place:Geograph) WHERE vaa.uuid IN $vba.uuids AND vaa.open = $vca.p0",
		"WITH vaa",
		"RETURN vaa AS root",
	), st.Text)
	assert.Equal(t, []string{existingA, existingB}, st.Params["vba"]["uuids"])
	assert.Equal(t, true, st.Params["vca"]["p0"])
}

func TestCompileFindRestricted_EmptyMatchesNothing(t *testing.T) {
	st, err := newTestCompiler().CompileFindRestricted(Query{Labels: []string{"Place"}}, nil)
	require.NoError(t, err)

	assert.Contains(t, st.Text, "WHERE vaa.uuid IN $vba.uuids")
	assert.Equal(t, []string{}, st.Params["vba"]["uuids"])
}

func TestCompileFind_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query Query
		want  error
	}{
		{"missing label", Query{}, ir.ErrMissingLabel},
		{"invalid label", Query{Labels: []string{"Person)"}}, ir.ErrInvalidLabel},
		{"bad filter", Query{Labels: []string{"P"}, Filter: "[x >]"}, ir.ErrInvalidFilter},
		{"trailing text", Query{Labels: []string{"P"}, Filter: "[a = 1] RETURN 1"}, ir.ErrInvalidFilter},
		{"missing type", Query{Labels: []string{"P"}, Relations: []string{"friends..owns"}}, ir.ErrMissingRelationType},
		{"reserved variable", Query{Labels: []string{"P"}, Relations: []string{"friends@vaa"}}, ir.ErrInvalidVariable},
		{"duplicate variable", Query{Labels: []string{"P"}, Relations: []string{"a@x", "b@x"}}, ir.ErrInvalidVariable},
		{"bad restrict uuid", Query{Labels: []string{"P"}}, ir.ErrInvalidUUID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.name == "bad restrict uuid" {
				_, err = newTestCompiler().CompileFindRestricted(tt.query, []string{"nope"})
			} else {
				_, err = newTestCompiler().CompileFind(tt.query)
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestQueryFromMap(t *testing.T) {
	q, err := QueryFromMap(map[string]any{
		"label":     "Person",
		"labels":    []any{"Admin"},
		"filter":    "[age > 1]",
		"relations": []any{"friends", "owns"},
	})
	require.NoError(t, err)

	assert.Equal(t, Query{
		Labels:    []string{"Person", "Admin"},
		Filter:    "[age > 1]",
		Relations: []string{"friends", "owns"},
	}, q)
}

func TestQueryFromMap_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want error
	}{
		{"nil", nil, ir.ErrMissingQuery},
		{"relations not a list", map[string]any{"label": "P", "relations": "friends"}, ir.ErrInvalidRelationsType},
		{"relation not a string", map[string]any{"label": "P", "relations": []any{1}}, ir.ErrInvalidRelationsType},
		{"label not a string", map[string]any{"label": 7}, ir.ErrInvalidLabel},
		{"labels not a list", map[string]any{"labels": "P"}, ir.ErrMissingLabel},
		{"filter not a string", map[string]any{"label": "P", "filter": 3}, ir.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := QueryFromMap(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestQueryFromMap_MissingLabelSurfacesAtCompile(t *testing.T) {
	q, err := QueryFromMap(map[string]any{"filter": "[a = 1]"})
	require.NoError(t, err)

	_, err = newTestCompiler().CompileFind(q)
	assert.True(t, errors.Is(err, ir.ErrMissingLabel))
}
