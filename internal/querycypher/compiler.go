// Package querycypher compiles JSON graphs and query objects to
// parameterized Cypher.
//
// CRITICAL: Caller values are NEVER interpolated into query text. Labels,
// property keys and relationship types are validated against identifier
// grammars before they reach the text; every other value is bound as a
// parameter in the statement's Params.
//
// Each Compile call uses its own identifier allocator, so a Compiler can be
// shared by concurrent callers as long as its UUIDGenerator is safe for
// concurrent use.
package querycypher

import (
	"reflect"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/geograph/internal/ident"
	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
)

// UUIDGenerator produces uuids for nodes created by a save.
type UUIDGenerator interface {
	Generate() string
}

// UUIDv4Generator generates random v4 uuids.
//
// Thread-safety: UUIDv4Generator is stateless and safe for concurrent use.
type UUIDv4Generator struct{}

// Generate returns a new random v4 uuid.
func (UUIDv4Generator) Generate() string {
	return uuid.NewString()
}

// Compiler compiles graph statements.
type Compiler struct {
	uuids UUIDGenerator
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithUUIDGenerator replaces the random uuid source.
// Tests use it to produce byte-identical statements.
func WithUUIDGenerator(g UUIDGenerator) Option {
	return func(c *Compiler) {
		c.uuids = g
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{uuids: UUIDv4Generator{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// session is the mutable state of one compile call.
type session struct {
	alloc   *ident.Allocator
	params  ir.Params
	clauses []string
}

func newSession() *session {
	return &session{
		alloc:  ident.New(),
		params: ir.Params{},
	}
}

// next allocates an identifier, failing once the space is exhausted.
func (s *session) next() (string, error) {
	if s.alloc.Wrapped() {
		return "", ir.Invalid(ir.CodeTooManyIdentifiers,
			"statement needs more than %d identifiers", ident.Capacity)
	}
	return s.alloc.Next(), nil
}

func (s *session) emit(clause string) {
	s.clauses = append(s.clauses, clause)
}

func (s *session) text() string {
	return strings.Join(s.clauses, "\n")
}

// labels renders ":A:B:Geograph".
func labels(names ...string) string {
	all := append(append([]string{}, names...), node.BaseLabel)
	return ":" + strings.Join(all, ":")
}

// with renders a checkpoint clause carrying ids forward.
func with(ids []string) string {
	return "WITH " + strings.Join(ids, ", ")
}

// setClause renders " SET id.k = $id.k, ..." for the keys of bag, or "".
func setClause(id string, bag map[string]any) string {
	keys := make([]string, 0, len(bag))
	for k := range bag {
		if k != node.KeyUUID {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = id + "." + k + " = $" + id + "." + k
	}
	return " SET " + strings.Join(parts, ", ")
}

// identity keys a node map by its address so shared and cyclic
// references can be recognized.
func identity(m map[string]any) uintptr {
	return reflect.ValueOf(m).Pointer()
}

// nodeUUID returns the node's uuid, whether it is present, and an error
// when a present uuid is not a valid v4 uuid.
func nodeUUID(n map[string]any, path string) (string, bool, error) {
	if !node.HasUUID(n) {
		return "", false, nil
	}
	id, ok := node.UUID(n)
	if !ok {
		return "", false, ir.Invalid(ir.CodeInvalidUUID, "uuid %v is not a valid v4 uuid", n[node.KeyUUID]).
			With("path", path)
	}
	return id, true, nil
}
