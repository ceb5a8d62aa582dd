package querycypher

import (
	"fmt"
	"strings"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
	"github.com/roach88/geograph/internal/queryir"
)

// Result columns of CompileFindByID.
const (
	ColumnNodes = "nodes"
	ColumnRels  = "rels"
)

// CompileFindByID compiles a point lookup returning the node with the given
// label and uuid and everything reachable from it:
//
//	MATCH (vaa:Person:Geograph {uuid: $vaa.uuid})
//	WITH vaa MATCH (vaa)-[vba*0..]->(vca)
//	RETURN collect(DISTINCT vca) AS nodes, collect(DISTINCT vba) AS rels
func (c *Compiler) CompileFindByID(label, uuid string) (ir.Statement, error) {
	if !node.ValidLabel(label) {
		return ir.Statement{}, fmt.Errorf("compile find by id: %w",
			ir.Invalid(ir.CodeInvalidLabel, "label %q does not match [A-Za-z][A-Za-z0-9]*", label))
	}
	if !node.IsUUID(uuid) {
		return ir.Statement{}, fmt.Errorf("compile find by id: %w",
			ir.Invalid(ir.CodeInvalidUUID, "uuid %q is not a valid v4 uuid", uuid))
	}

	s := newSession()
	root, _ := s.next()
	rels, _ := s.next()
	reached, _ := s.next()

	s.params[root] = map[string]any{node.KeyUUID: uuid}
	s.emit(fmt.Sprintf("MATCH (%s%s {uuid: $%s.uuid})", root, labels(label), root))
	s.emit(fmt.Sprintf("WITH %s MATCH (%s)-[%s*0..]->(%s)", root, root, rels, reached))
	s.emit(fmt.Sprintf("RETURN collect(DISTINCT %s) AS %s, collect(DISTINCT %s) AS %s",
		reached, ColumnNodes, rels, ColumnRels))

	return ir.Statement{Text: s.text(), Params: s.params, Start: uuid, ID: root}, nil
}

// CompileFind compiles a filtered find. Each result row holds one root
// (column "root") plus one distinct-collected column per hop node and hop
// relationship, so fan-out across relation paths never multiplies rows:
//
//	MATCH (vaa:Person:Geograph) WHERE vaa.age > $vba.p0
//	WITH vaa LIMIT 10
//	OPTIONAL MATCH (vaa)-[vda:friends]->(vca)
//	WITH vaa, vca, vda
//	RETURN vaa AS root, collect(DISTINCT vca) AS vca, collect(DISTINCT vda) AS vda
func (c *Compiler) CompileFind(q Query) (ir.Statement, error) {
	return c.compileFind(q, nil)
}

// CompileFindRestricted compiles a filtered find whose roots must also have
// one of the given uuids. An empty uuid list matches nothing.
func (c *Compiler) CompileFindRestricted(q Query, uuids []string) (ir.Statement, error) {
	if uuids == nil {
		uuids = []string{}
	}
	return c.compileFind(q, uuids)
}

func (c *Compiler) compileFind(q Query, restrict []string) (ir.Statement, error) {
	s := newSession()
	ch, err := s.findChain(q, restrict)
	if err != nil {
		return ir.Statement{}, fmt.Errorf("compile find: %w", err)
	}

	cols := []string{ch.root + " AS " + queryir.ResultAlias}
	for _, id := range ch.scope()[1:] {
		cols = append(cols, fmt.Sprintf("collect(DISTINCT %s) AS %s", id, id))
	}
	s.emit("RETURN " + strings.Join(cols, ", "))

	return ir.Statement{Text: s.text(), Params: s.params, ID: ch.root}, nil
}

// chain is the identifier set bound by a find.
type chain struct {
	root  string
	nodes []string // hop end nodes, in binding order
	rels  []string // hop relationships, in binding order
}

// scope returns every bound identifier: root, nodes, then relationships.
func (ch *chain) scope() []string {
	out := append([]string{ch.root}, ch.nodes...)
	return append(out, ch.rels...)
}

// findChain emits the MATCH/WHERE/WITH clauses shared by find and
// delete-by-query.
func (s *session) findChain(q Query, restrict []string) (*chain, error) {
	pq, err := q.parse()
	if err != nil {
		return nil, err
	}
	for _, id := range restrict {
		if !node.IsUUID(id) {
			return nil, ir.Invalid(ir.CodeInvalidUUID, "uuid %q is not a valid v4 uuid", id)
		}
	}

	root, err := s.next()
	if err != nil {
		return nil, err
	}
	ch := &chain{root: root}

	var conds []string
	if restrict != nil {
		bagID, err := s.next()
		if err != nil {
			return nil, err
		}
		s.params[bagID] = map[string]any{"uuids": restrict}
		conds = append(conds, fmt.Sprintf("%s.uuid IN $%s.uuids", root, bagID))
	}
	where, err := s.compileWhere(root, pq.filter.Where)
	if err != nil {
		return nil, err
	}
	if where != "" {
		conds = append(conds, where)
	}

	clause := fmt.Sprintf("MATCH (%s%s)", root, labels(pq.labels...))
	if len(conds) > 0 {
		clause += " WHERE " + strings.Join(conds, " AND ")
	}
	s.emit(clause)
	s.emit(with(ch.scope()) + pagination(pq.filter.Pagination))

	for _, path := range pq.paths {
		if err := s.hops(ch, path); err != nil {
			return nil, err
		}
	}
	return ch, nil
}

// hops emits one match per hop of path, starting from the root.
func (s *session) hops(ch *chain, path queryir.Path) error {
	prev := ch.root
	for _, hop := range path.Hops {
		to, err := s.next()
		if err != nil {
			return err
		}
		rel := hop.Variable
		if rel == "" {
			if rel, err = s.next(); err != nil {
				return err
			}
		}

		clause := fmt.Sprintf("MATCH (%s)-[%s:%s]->(%s)", prev, rel, strings.Join(hop.Types, "|"), to)
		if hop.Optional {
			clause = "OPTIONAL " + clause
		}
		where, err := s.compileWhere(to, hop.Where)
		if err != nil {
			return err
		}
		if where != "" {
			clause += " WHERE " + where
		}
		s.emit(clause)

		ch.nodes = append(ch.nodes, to)
		ch.rels = append(ch.rels, rel)
		s.emit(with(ch.scope()) + pagination(hop.Pagination))
		prev = to
	}
	return nil
}
