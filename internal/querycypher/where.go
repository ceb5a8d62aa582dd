package querycypher

import (
	"fmt"
	"strconv"

	"github.com/roach88/geograph/internal/queryir"
)

// compileWhere renders a where expression qualified by target. Literal
// values go into a fresh parameter bag and are referenced as $bag.pN.
//
// Terms combine strictly left to right, so "a OR b AND c" renders as
// ((a OR b) AND c) regardless of the query language's own precedence.
func (s *session) compileWhere(target string, w *queryir.Where) (string, error) {
	if w == nil || len(w.Terms) == 0 {
		return "", nil
	}

	var bagID string
	bag := make(map[string]any)

	expr := ""
	for i, term := range w.Terms {
		var rendered string
		switch p := term.(type) {
		case queryir.Comparison:
			if bagID == "" {
				id, err := s.next()
				if err != nil {
					return "", err
				}
				bagID = id
			}
			key := "p" + strconv.Itoa(len(bag))
			bag[key] = p.Value
			rendered = fmt.Sprintf("%s.%s %s $%s.%s", target, p.Property, p.Op, bagID, key)
		case queryir.NullCheck:
			if p.Negated {
				rendered = fmt.Sprintf("%s.%s IS NOT NULL", target, p.Property)
			} else {
				rendered = fmt.Sprintf("%s.%s IS NULL", target, p.Property)
			}
		default:
			return "", fmt.Errorf("unsupported predicate type: %T", term)
		}

		if i == 0 {
			expr = rendered
		} else {
			expr = fmt.Sprintf("(%s %s %s)", expr, w.Joins[i-1], rendered)
		}
	}

	if bagID != "" {
		s.params[bagID] = bag
	}
	return expr, nil
}

// pagination renders " SKIP n LIMIT m" for the bounds that are set.
// Bounds are parsed integers, never caller text.
func pagination(p *queryir.Pagination) string {
	if p.Empty() {
		return ""
	}
	out := ""
	if p.Skip != nil {
		out += " SKIP " + strconv.Itoa(*p.Skip)
	}
	if p.Limit != nil {
		out += " LIMIT " + strconv.Itoa(*p.Limit)
	}
	return out
}
