package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/geograph/internal/ir"
)

func intp(n int) *int { return &n }

func TestParseFilter_Empty(t *testing.T) {
	for _, text := range []string{"", "   "} {
		f, err := ParseFilter(text)
		require.NoError(t, err)
		assert.Nil(t, f.Where)
		assert.Nil(t, f.Pagination)
	}
}

func TestParseFilter_Comparisons(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Predicate
	}{
		{"int", "[age > 18]", Comparison{Property: "age", Op: OpGt, Value: int64(18)}},
		{"no spaces", `[name<>"WoW "]`, Comparison{Property: "name", Op: OpNe, Value: "WoW "}},
		{"gte glued", "[quantity >=50]", Comparison{Property: "quantity", Op: OpGte, Value: int64(50)}},
		{"lte", "[score <= 1.5]", Comparison{Property: "score", Op: OpLte, Value: 1.5}},
		{"single quotes", `[name = 'O\'Neil']`, Comparison{Property: "name", Op: OpEq, Value: "O'Neil"}},
		{"bool", "[active = TRUE]", Comparison{Property: "active", Op: OpEq, Value: true}},
		{"bare string", "[city = Paris]", Comparison{Property: "city", Op: OpEq, Value: "Paris"}},
		{"is null", "[email IS NULL]", NullCheck{Property: "email"}},
		{"is not null", "[email is not null]", NullCheck{Property: "email", Negated: true}},
		{"eq null", "[email = null]", NullCheck{Property: "email"}},
		{"ne null", "[email <> NULL]", NullCheck{Property: "email", Negated: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFilter(tt.text)
			require.NoError(t, err)
			require.NotNil(t, f.Where)
			require.Len(t, f.Where.Terms, 1)
			assert.Equal(t, tt.want, f.Where.Terms[0])
			assert.Empty(t, f.Where.Joins)
		})
	}
}

func TestParseFilter_BooleanChain(t *testing.T) {
	f, err := ParseFilter(`[age > 18 and name = "A" OR city IS NULL]`)
	require.NoError(t, err)

	require.Len(t, f.Where.Terms, 3)
	assert.Equal(t, []BoolOp{And, Or}, f.Where.Joins)
	assert.Equal(t, "city", f.Where.Terms[2].PropertyName())
}

func TestParseFilter_Pagination(t *testing.T) {
	tests := []struct {
		text string
		want Pagination
	}{
		{"{skip=10 limit=15}", Pagination{Skip: intp(10), Limit: intp(15)}},
		{"{limit=5, skip=1}", Pagination{Skip: intp(1), Limit: intp(5)}},
		{"{ LIMIT = 3 }", Pagination{Limit: intp(3)}},
		{"{skip=0}", Pagination{Skip: intp(0)}},
		{"{}", Pagination{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			f, err := ParseFilter(tt.text)
			require.NoError(t, err)
			require.NotNil(t, f.Pagination)
			assert.Equal(t, tt.want, *f.Pagination)
		})
	}
}

func TestParseFilter_WhereAndPaginationEitherOrder(t *testing.T) {
	a, err := ParseFilter("[age > 1]{limit=2}")
	require.NoError(t, err)
	b, err := ParseFilter("{limit=2} [age > 1]")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestParseFilter_NFCNormalizesStrings(t *testing.T) {
	f, err := ParseFilter("[name = \"Jose\u0301\"]")
	require.NoError(t, err)

	assert.Equal(t, "Jos\u00e9", f.Where.Terms[0].(Comparison).Value)
}

func TestParseFilter_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"unterminated where", "[age > 1"},
		{"missing operator", "[age 1]"},
		{"missing value", "[age >]"},
		{"empty where", "[]"},
		{"dangling bool", "[age > 1 AND]"},
		{"bad join", "[age > 1 XOR b = 2]"},
		{"unterminated string", `[name = "abc]`},
		{"null ordering", "[age > null]"},
		{"parens pagination", "(skip=1)"},
		{"negative bound", "{skip=-1}"},
		{"unknown bound", "{offset=1}"},
		{"duplicate bound", "{skip=1 skip=2}"},
		{"duplicate where", "[a = 1][b = 2]"},
		{"injection attempt", "[a = 1] RETURN 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFilter(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrInvalidFilter), "got %v", err)
		})
	}
}

func TestParseRelationPath_SingleHop(t *testing.T) {
	p, err := ParseRelationPath("friends")
	require.NoError(t, err)

	require.Len(t, p.Hops, 1)
	assert.Equal(t, Hop{Types: []string{"friends"}}, p.Hops[0])
}

func TestParseRelationPath_FullHop(t *testing.T) {
	p, err := ParseRelationPath(`?friends-colleagues@f[age > 30]{limit=2}.livesIn`)
	require.NoError(t, err)

	require.Len(t, p.Hops, 2)
	first := p.Hops[0]
	assert.True(t, first.Optional)
	assert.Equal(t, []string{"friends", "colleagues"}, first.Types)
	assert.Equal(t, "f", first.Variable)
	require.NotNil(t, first.Where)
	assert.Equal(t, Comparison{Property: "age", Op: OpGt, Value: int64(30)}, first.Where.Terms[0])
	assert.Equal(t, intp(2), first.Pagination.Limit)

	assert.Equal(t, Hop{Types: []string{"livesIn"}}, p.Hops[1])
}

func TestParseRelationPath_DotInsideFilterValue(t *testing.T) {
	p, err := ParseRelationPath(`places[name = "St. Louis" AND rating > 4.5].owner`)
	require.NoError(t, err)

	require.Len(t, p.Hops, 2)
	assert.Equal(t, "St. Louis", p.Hops[0].Where.Terms[0].(Comparison).Value)
	assert.Equal(t, 4.5, p.Hops[0].Where.Terms[1].(Comparison).Value)
}

func TestParseRelationPath_Errors(t *testing.T) {
	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", ir.ErrMissingRelationType},
		{"leading dot", ".friends", ir.ErrMissingRelationType},
		{"trailing dot", "friends.", ir.ErrMissingRelationType},
		{"dangling dash", "friends-", ir.ErrMissingRelationType},
		{"only optional", "?", ir.ErrMissingRelationType},
		{"empty variable", "friends@", ir.ErrInvalidVariable},
		{"arrow hops", "friends->livesIn", ir.ErrMissingRelationType},
		{"pipe alternation", "friends|colleagues", ir.ErrInvalidFilter},
		{"bad filter", "friends[age >]", ir.ErrInvalidFilter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRelationPath(tt.text)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestIsIdentifier(t *testing.T) {
	assert.True(t, IsIdentifier("name"))
	assert.True(t, IsIdentifier("_private1"))
	assert.False(t, IsIdentifier(""))
	assert.False(t, IsIdentifier("1abc"))
	assert.False(t, IsIdentifier("a-b"))
	assert.False(t, IsIdentifier("a b"))
}
