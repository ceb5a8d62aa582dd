package querycypher

import (
	"fmt"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
	"github.com/roach88/geograph/internal/queryir"
)

// Query selects root nodes by label and filter and expands relation paths
// from each root.
type Query struct {
	// Labels the root must carry; at least one.
	Labels []string `json:"labels,omitempty" yaml:"labels,omitempty"`

	// Filter is "<where><pagination>", e.g. "[age > 18]{limit=10}".
	Filter string `json:"filter,omitempty" yaml:"filter,omitempty"`

	// Relations are relation paths, e.g. "friends.?livesIn".
	Relations []string `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// QueryFromMap builds a Query from its loosely typed JSON form:
//
//	{"label": "Person", "filter": "[age > 18]", "relations": ["friends"]}
//
// "labels" (a list) may be used instead of "label".
func QueryFromMap(m map[string]any) (Query, error) {
	if m == nil {
		return Query{}, ir.Invalid(ir.CodeMissingQuery, "query object is nil")
	}
	var q Query

	switch v := m["labels"].(type) {
	case nil:
	case []string:
		q.Labels = append(q.Labels, v...)
	case []any:
		for _, l := range v {
			s, ok := l.(string)
			if !ok {
				return Query{}, ir.Invalid(ir.CodeInvalidLabel, "label %v is not a string", l)
			}
			q.Labels = append(q.Labels, s)
		}
	default:
		return Query{}, ir.Invalid(ir.CodeMissingLabel, "labels must be a list of strings")
	}
	if l, ok := m["label"]; ok && l != nil {
		s, ok := l.(string)
		if !ok {
			return Query{}, ir.Invalid(ir.CodeInvalidLabel, "label %v is not a string", l)
		}
		q.Labels = append([]string{s}, q.Labels...)
	}

	switch f := m["filter"].(type) {
	case nil:
	case string:
		q.Filter = f
	default:
		return Query{}, ir.Invalid(ir.CodeInvalidFilter, "filter must be a string")
	}

	switch r := m["relations"].(type) {
	case nil:
	case []string:
		q.Relations = r
	case []any:
		for _, rel := range r {
			s, ok := rel.(string)
			if !ok {
				return Query{}, ir.Invalid(ir.CodeInvalidRelationsType, "relation %v is not a string", rel)
			}
			q.Relations = append(q.Relations, s)
		}
	default:
		return Query{}, ir.Invalid(ir.CodeInvalidRelationsType, "relations must be a list of strings, got %T", r)
	}

	return q, nil
}

// parsed is a validated Query.
type parsed struct {
	labels []string
	filter queryir.Filter
	paths  []queryir.Path
}

func (q Query) parse() (parsed, error) {
	if len(q.Labels) == 0 {
		return parsed{}, ir.Invalid(ir.CodeMissingLabel, "query needs at least one label")
	}
	for _, l := range q.Labels {
		if !node.ValidLabel(l) {
			return parsed{}, ir.Invalid(ir.CodeInvalidLabel, "label %q does not match [A-Za-z][A-Za-z0-9]*", l)
		}
	}

	f, err := queryir.ParseFilter(q.Filter)
	if err != nil {
		return parsed{}, err
	}
	paths := make([]queryir.Path, len(q.Relations))
	for i, rel := range q.Relations {
		p, err := queryir.ParseRelationPath(rel)
		if err != nil {
			return parsed{}, fmt.Errorf("relation %d: %w", i, err)
		}
		paths[i] = p
	}
	if err := queryir.ValidatePaths(paths); err != nil {
		return parsed{}, err
	}
	return parsed{labels: q.Labels, filter: f, paths: paths}, nil
}
