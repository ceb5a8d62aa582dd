package queryir

import (
	"fmt"
	"strconv"
	"strings"
)

// Predicate is one property test inside a where expression.
//
// This is a sealed interface - only types in this package implement it.
//
// Predicate types:
//   - Comparison: property <op> value
//   - NullCheck: property IS [NOT] NULL
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package

	// PropertyName returns the property the predicate tests.
	PropertyName() string
}

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "="
	OpNe  Op = "<>"
	OpGt  Op = ">"
	OpLt  Op = "<"
	OpGte Op = ">="
	OpLte Op = "<="
)

// BoolOp joins two predicates.
type BoolOp string

const (
	And BoolOp = "AND"
	Or  BoolOp = "OR"
)

// Comparison compares a property against a literal.
//
// Value is string, int64, float64 or bool. Backends bind it as a
// parameter; it never appears in query text.
type Comparison struct {
	Property string
	Op       Op
	Value    any
}

func (Comparison) predicateNode() {}

// PropertyName implements Predicate.
func (c Comparison) PropertyName() string { return c.Property }

// NullCheck tests a property for absence (IS NULL) or presence (IS NOT NULL).
type NullCheck struct {
	Property string
	Negated  bool // true for IS NOT NULL
}

func (NullCheck) predicateNode() {}

// PropertyName implements Predicate.
func (n NullCheck) PropertyName() string { return n.Property }

// Where is a flat boolean expression: Terms joined left to right by Joins.
// len(Joins) is always len(Terms)-1.
type Where struct {
	Terms []Predicate
	Joins []BoolOp
}

// Pagination bounds a result set. Nil fields are unspecified.
type Pagination struct {
	Skip  *int
	Limit *int
}

// Empty reports whether neither bound is set.
func (p *Pagination) Empty() bool {
	return p == nil || (p.Skip == nil && p.Limit == nil)
}

// Filter is a parsed top-level filter: an optional where expression and
// optional pagination.
type Filter struct {
	Where      *Where
	Pagination *Pagination
}

// Hop is one step of a relation path.
type Hop struct {
	// Optional hops match zero or more related nodes without dropping the
	// row when nothing matches.
	Optional bool

	// Types are alternative relationship types; at least one.
	Types []string

	// Variable is the caller-chosen name for the hop's end node ("" when
	// not bound).
	Variable string

	Where      *Where
	Pagination *Pagination
}

// Path is a parsed relation path.
type Path struct {
	Hops []Hop
}

// String renders the where expression in canonical syntax.
func (w *Where) String() string {
	if w == nil || len(w.Terms) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, term := range w.Terms {
		if i > 0 {
			b.WriteString(" " + string(w.Joins[i-1]) + " ")
		}
		switch p := term.(type) {
		case Comparison:
			fmt.Fprintf(&b, "%s %s %s", p.Property, p.Op, formatValue(p.Value))
		case NullCheck:
			if p.Negated {
				fmt.Fprintf(&b, "%s IS NOT NULL", p.Property)
			} else {
				fmt.Fprintf(&b, "%s IS NULL", p.Property)
			}
		}
	}
	b.WriteByte(']')
	return b.String()
}

// String renders the pagination in canonical syntax.
func (p *Pagination) String() string {
	if p.Empty() {
		return ""
	}
	var parts []string
	if p.Skip != nil {
		parts = append(parts, "skip="+strconv.Itoa(*p.Skip))
	}
	if p.Limit != nil {
		parts = append(parts, "limit="+strconv.Itoa(*p.Limit))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// String renders the filter in canonical syntax.
func (f Filter) String() string {
	return f.Where.String() + f.Pagination.String()
}

// String renders the hop in canonical syntax.
func (h Hop) String() string {
	var b strings.Builder
	if h.Optional {
		b.WriteByte('?')
	}
	b.WriteString(strings.Join(h.Types, "-"))
	if h.Variable != "" {
		b.WriteString("@" + h.Variable)
	}
	b.WriteString(h.Where.String())
	b.WriteString(h.Pagination.String())
	return b.String()
}

// String renders the path in canonical syntax.
func (p Path) String() string {
	hops := make([]string, len(p.Hops))
	for i, h := range p.Hops {
		hops[i] = h.String()
	}
	return strings.Join(hops, ".")
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return strconv.Quote(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprintf("%v", val)
	}
}
