package querycypher

import (
	"fmt"
	"strings"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
)

// ColumnUUID is the column holding deleted node uuids.
const ColumnUUID = "uuid"

// CompileDeleteByID compiles a detach-delete of the nodes with the given
// label and uuids. The statement returns one "uuid" row per deleted node so
// callers can cascade the delete to geometry rows.
func (c *Compiler) CompileDeleteByID(label string, uuids []string) (ir.Statement, error) {
	if !node.ValidLabel(label) {
		return ir.Statement{}, fmt.Errorf("compile delete by id: %w",
			ir.Invalid(ir.CodeInvalidLabel, "label %q does not match [A-Za-z][A-Za-z0-9]*", label))
	}
	if len(uuids) == 0 {
		return ir.Statement{}, fmt.Errorf("compile delete by id: %w",
			ir.Invalid(ir.CodeMissingUUID, "no uuids to delete"))
	}
	for _, id := range uuids {
		if !node.IsUUID(id) {
			return ir.Statement{}, fmt.Errorf("compile delete by id: %w",
				ir.Invalid(ir.CodeInvalidUUID, "uuid %q is not a valid v4 uuid", id))
		}
	}

	s := newSession()
	target, _ := s.next()
	bagID, _ := s.next()
	s.params[bagID] = map[string]any{"uuids": uuids}

	s.emit(fmt.Sprintf("MATCH (%s%s) WHERE %s.uuid IN $%s.uuids", target, labels(label), target, bagID))
	s.emit(fmt.Sprintf("WITH %s, %s.uuid AS %s", target, target, ColumnUUID))
	s.emit("DETACH DELETE " + target)
	s.emit("RETURN " + ColumnUUID)

	return ir.Statement{Text: s.text(), Params: s.params, ID: target}, nil
}

// CompileDeleteByQuery compiles a detach-delete of every node a find would
// bind: the roots and the end node of every hop.
func (c *Compiler) CompileDeleteByQuery(q Query) (ir.Statement, error) {
	s := newSession()
	ch, err := s.findChain(q, nil)
	if err != nil {
		return ir.Statement{}, fmt.Errorf("compile delete by query: %w", err)
	}

	all, err := s.next()
	if err != nil {
		return ir.Statement{}, fmt.Errorf("compile delete by query: %w", err)
	}
	target, err := s.next()
	if err != nil {
		return ir.Statement{}, fmt.Errorf("compile delete by query: %w", err)
	}

	nodes := append([]string{ch.root}, ch.nodes...)
	collected := make([]string, len(nodes))
	for i, id := range nodes {
		collected[i] = fmt.Sprintf("collect(DISTINCT %s)", id)
	}

	s.emit(fmt.Sprintf("WITH %s AS %s", strings.Join(collected, " + "), all))
	s.emit(fmt.Sprintf("UNWIND %s AS %s", all, target))
	s.emit(fmt.Sprintf("WITH DISTINCT %s, %s.uuid AS %s", target, target, ColumnUUID))
	s.emit("DETACH DELETE " + target)
	s.emit("RETURN " + ColumnUUID)

	return ir.Statement{Text: s.text(), Params: s.params, ID: ch.root}, nil
}

// CompileDeleteRelationships compiles a delete of the relationships
// described by a node and its nested references. Every nested node that
// carries a uuid names one relationship (typed by its property key) to
// remove; nested nodes without a uuid are ignored. Nodes are left intact.
//
//	MATCH (vaa:Person:Geograph {uuid: $vaa.uuid})
//	MATCH (vaa)-[vca:friends]->(vba:Geograph {uuid: $vba.uuid})
//	WITH vaa, vba, vca
//	DELETE vca
func (c *Compiler) CompileDeleteRelationships(root map[string]any) (ir.Statement, error) {
	st, err := compileDeleteRelationships(root)
	if err != nil {
		return ir.Statement{}, fmt.Errorf("compile delete relationships: %w", err)
	}
	return st, nil
}

func compileDeleteRelationships(root map[string]any) (ir.Statement, error) {
	if root == nil {
		return ir.Statement{}, ir.Invalid(ir.CodeEmptyNode, "node is nil")
	}
	label, err := node.Label(root)
	if err != nil {
		return ir.Statement{}, err
	}
	rootUUID, ok, err := nodeUUID(root, "root")
	if err != nil {
		return ir.Statement{}, err
	}
	if !ok {
		return ir.Statement{}, ir.Invalid(ir.CodeMissingUUID, "root node needs a uuid")
	}

	m := &relMatcher{session: newSession(), onPath: make(map[uintptr]bool)}
	id, err := m.next()
	if err != nil {
		return ir.Statement{}, err
	}
	m.params[id] = map[string]any{node.KeyUUID: rootUUID}
	m.nodes = []string{id}
	m.emit(fmt.Sprintf("MATCH (%s%s {uuid: $%s.uuid})", id, labels(label), id))

	if err := m.match(id, root, "root"); err != nil {
		return ir.Statement{}, err
	}
	if len(m.rels) == 0 {
		return ir.Statement{}, ir.Invalid(ir.CodeNoRelationshipsToDelete,
			"node has no nested references carrying a uuid")
	}

	m.emit("DELETE " + strings.Join(m.rels, ", "))
	return ir.Statement{Text: m.text(), Params: m.params, Start: rootUUID, ID: id}, nil
}

type relMatcher struct {
	*session
	onPath map[uintptr]bool
	nodes  []string
	rels   []string
}

func (m *relMatcher) match(parentID string, n map[string]any, path string) error {
	key := identity(n)
	m.onPath[key] = true
	defer delete(m.onPath, key)

	props, err := node.Properties(n)
	if err != nil {
		return wrapPath(err, path)
	}

	for _, p := range props {
		if p.Kind != node.Node && p.Kind != node.NodeArray {
			continue
		}
		for i, child := range p.Nodes {
			childPath := path + "." + p.Key
			if p.Kind == node.NodeArray {
				childPath = fmt.Sprintf("%s[%d]", childPath, i)
			}
			if child == nil {
				continue
			}
			if m.onPath[identity(child)] {
				return ir.Invalid(ir.CodeCyclicGraph, "node refers back to one of its ancestors").
					With("path", childPath)
			}

			childUUID, ok, err := nodeUUID(child, childPath)
			if err != nil {
				return err
			}
			if !ok {
				// Unmatched, but uuids below it must still be valid.
				if err := m.validate(child, childPath); err != nil {
					return err
				}
				continue
			}

			childID, err := m.next()
			if err != nil {
				return err
			}
			relID, err := m.next()
			if err != nil {
				return err
			}
			m.params[childID] = map[string]any{node.KeyUUID: childUUID}
			m.nodes = append(m.nodes, childID)
			m.rels = append(m.rels, relID)

			m.emit(fmt.Sprintf("MATCH (%s)-[%s:%s]->(%s:%s {uuid: $%s.uuid})",
				parentID, relID, p.Key, childID, node.BaseLabel, childID))
			m.emit(with(append(append([]string{}, m.nodes...), m.rels...)))

			if err := m.match(childID, child, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}

// validate checks every uuid below n without emitting clauses.
func (m *relMatcher) validate(n map[string]any, path string) error {
	key := identity(n)
	m.onPath[key] = true
	defer delete(m.onPath, key)

	props, err := node.Properties(n)
	if err != nil {
		return wrapPath(err, path)
	}
	for _, p := range props {
		if p.Kind != node.Node && p.Kind != node.NodeArray {
			continue
		}
		for i, child := range p.Nodes {
			childPath := path + "." + p.Key
			if p.Kind == node.NodeArray {
				childPath = fmt.Sprintf("%s[%d]", childPath, i)
			}
			if child == nil {
				continue
			}
			if m.onPath[identity(child)] {
				return ir.Invalid(ir.CodeCyclicGraph, "node refers back to one of its ancestors").
					With("path", childPath)
			}
			if _, _, err := nodeUUID(child, childPath); err != nil {
				return err
			}
			if err := m.validate(child, childPath); err != nil {
				return err
			}
		}
	}
	return nil
}
