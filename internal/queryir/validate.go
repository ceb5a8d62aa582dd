package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/geograph/internal/ident"
	"github.com/roach88/geograph/internal/ir"
)

// ResultAlias is the column name compilers give the root node.
const ResultAlias = "root"

// reservedWords are query keywords that cannot be used as variables.
var reservedWords = map[string]bool{
	"match": true, "optional": true, "where": true, "with": true,
	"return": true, "create": true, "merge": true, "delete": true,
	"detach": true, "set": true, "unwind": true, "skip": true,
	"limit": true, "and": true, "or": true, "not": true, "null": true,
	"as": true, "distinct": true, "collect": true, "in": true, "is": true,
}

// ValidatePaths checks the caller-chosen variables across a set of
// relation paths that will be compiled into one statement.
//
// Rules:
//  1. A variable must not have the shape of an allocated identifier
//  2. A variable must not be a query keyword or the root alias
//  3. A variable may be bound at most once per statement
//
// All violations are collected and reported in one error.
//
// ValidatePaths is a pure function with no side effects.
func ValidatePaths(paths []Path) error {
	v := &validator{seen: make(map[string]bool)}
	for _, p := range paths {
		v.validatePath(p)
	}
	if len(v.issues) == 0 {
		return nil
	}
	return ir.Invalid(ir.CodeInvalidVariable, "%s", strings.Join(v.issues, "; "))
}

// validator accumulates issues during traversal.
type validator struct {
	seen   map[string]bool
	issues []string
}

func (v *validator) addIssue(format string, args ...any) {
	v.issues = append(v.issues, fmt.Sprintf(format, args...))
}

func (v *validator) validatePath(p Path) {
	for _, hop := range p.Hops {
		if hop.Variable == "" {
			continue
		}
		name := hop.Variable
		switch {
		case ident.Reserved(name):
			v.addIssue("variable %q collides with generated identifiers", name)
		case reservedWords[strings.ToLower(name)] || name == ResultAlias:
			v.addIssue("variable %q is a reserved word", name)
		case v.seen[name]:
			v.addIssue("variable %q is bound more than once", name)
		}
		v.seen[name] = true
	}
}
