package querycypher

import (
	"errors"
	"fmt"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
)

// SaveOptions controls CompileSave.
type SaveOptions struct {
	// Update writes the plain properties of nodes matched by uuid.
	// When false, matched nodes are only linked, never modified.
	Update bool
}

// CompileSave compiles a create-or-update statement for a JSON graph.
//
// Nodes without a valid v4 uuid are created and receive a fresh one,
// written back onto the input map over any malformed value. Nodes with a valid uuid are matched, never
// re-created. Every nested node or node array becomes a relationship typed
// by its property key and carrying isArray. Relationships to matched nodes
// use MERGE so an existing edge is never duplicated.
//
// Example (new root with one new friend):
//
//	CREATE (vaa:Person:Geograph $vaa)
//	CREATE (vaa)-[:friends {isArray: true}]->(vba:Person:Geograph $vba)
//
// The input must be acyclic; a node reachable from itself is rejected
// with CyclicGraph. A node map referenced from two parents is compiled
// once and linked twice.
func (c *Compiler) CompileSave(root map[string]any, opts SaveOptions) (ir.Statement, error) {
	sv := &saver{
		session:  newSession(),
		uuids:    c.uuids,
		opts:     opts,
		compiled: make(map[uintptr]string),
		matched:  make(map[string]string),
		onPath:   make(map[uintptr]bool),
		edges:    make(map[string]bool),
	}

	id, start, err := sv.saveRoot(root)
	if err != nil {
		return ir.Statement{}, fmt.Errorf("compile save: %w", err)
	}

	return ir.Statement{
		Text:   sv.text(),
		Params: sv.params,
		Start:  start,
		ID:     id,
	}, nil
}

type saver struct {
	*session
	uuids UUIDGenerator
	opts  SaveOptions

	// compiled maps a node map to the identifier it was bound to.
	compiled map[uintptr]string
	// matched maps the uuid of a matched node to its identifier.
	matched map[string]string
	// onPath holds the node maps between the root and the current node.
	onPath map[uintptr]bool
	// edges holds "parent|key|child" triples already emitted.
	edges map[string]bool
	// bound lists node identifiers in scope, in binding order.
	bound []string
}

func (sv *saver) saveRoot(root map[string]any) (string, string, error) {
	if root == nil {
		return "", "", ir.Invalid(ir.CodeEmptyNode, "node is nil")
	}
	label, err := node.Label(root)
	if err != nil {
		return "", "", err
	}
	props, err := node.Properties(root)
	if err != nil {
		return "", "", err
	}
	existing, hasUUID := node.UUID(root)
	if !hasUUID && len(props) == 0 {
		return "", "", ir.Invalid(ir.CodeEmptyNode, "node has neither a uuid nor properties")
	}

	id, err := sv.next()
	if err != nil {
		return "", "", err
	}
	bag := plainBag(props)

	if hasUUID {
		bag[node.KeyUUID] = existing
		clause := fmt.Sprintf("MATCH (%s%s {uuid: $%s.uuid})", id, labels(label), id)
		if sv.opts.Update {
			clause += setClause(id, bag)
		}
		sv.emit(clause)
	} else {
		existing = sv.uuids.Generate()
		root[node.KeyUUID] = existing
		bag = withoutNulls(bag)
		bag[node.KeyUUID] = existing
		sv.emit(fmt.Sprintf("CREATE (%s%s $%s)", id, labels(label), id))
	}
	sv.params[id] = bag
	sv.compiled[identity(root)] = id
	sv.matched[existing] = id
	sv.bound = append(sv.bound, id)

	if err := sv.relate(id, root, props, "root"); err != nil {
		return "", "", err
	}
	return id, existing, nil
}

// relate links every nested node of n to parentID, then recurses into the
// nodes it bound for the first time.
func (sv *saver) relate(parentID string, n map[string]any, props []node.Property, path string) error {
	key := identity(n)
	sv.onPath[key] = true
	defer delete(sv.onPath, key)

	type pending struct {
		id    string
		node  map[string]any
		props []node.Property
		path  string
	}
	var children []pending

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
				return ir.Invalid(ir.CodeInvalidProperty, "nested node is nil").With("path", childPath)
			}
			if sv.onPath[identity(child)] {
				return ir.Invalid(ir.CodeCyclicGraph, "node refers back to one of its ancestors").
					With("path", childPath)
			}

			isArray := p.Kind == node.NodeArray || node.ArrayHint(child)
			childID, childProps, fresh, err := sv.link(parentID, p.Key, child, isArray, childPath)
			if err != nil {
				return err
			}
			if fresh {
				children = append(children, pending{childID, child, childProps, childPath})
			}
		}
	}

	for _, ch := range children {
		if err := sv.relate(ch.id, ch.node, ch.props, ch.path); err != nil {
			return err
		}
	}
	return nil
}

// link emits the clauses binding child and relating it to parentID. fresh
// reports whether child was bound here for the first time.
func (sv *saver) link(parentID, relType string, child map[string]any, isArray bool, path string) (string, []node.Property, bool, error) {
	if id, ok := sv.compiled[identity(child)]; ok {
		return id, nil, false, sv.mergeEdge(parentID, relType, id, isArray)
	}

	props, err := node.Properties(child)
	if err != nil {
		return "", nil, false, wrapPath(err, path)
	}
	existing, hasUUID := node.UUID(child)
	if id, ok := sv.matched[existing]; ok && hasUUID {
		// Another map with the same uuid is already bound.
		sv.compiled[identity(child)] = id
		return id, nil, false, sv.mergeEdge(parentID, relType, id, isArray)
	}

	id, err := sv.next()
	if err != nil {
		return "", nil, false, err
	}
	bag := plainBag(props)

	if hasUUID {
		bag[node.KeyUUID] = existing
		clause := fmt.Sprintf("MATCH (%s:%s {uuid: $%s.uuid})", id, node.BaseLabel, id)
		if sv.opts.Update {
			clause += setClause(id, bag)
		}
		sv.emit(with(sv.bound))
		sv.emit(clause)
		sv.params[id] = bag
		if err := sv.mergeEdge(parentID, relType, id, isArray); err != nil {
			return "", nil, false, err
		}
	} else {
		label, err := node.Label(child)
		if err != nil {
			return "", nil, false, wrapPath(err, path)
		}
		created := sv.uuids.Generate()
		child[node.KeyUUID] = created
		bag = withoutNulls(bag)
		bag[node.KeyUUID] = created
		sv.emit(fmt.Sprintf("CREATE (%s)-[:%s {isArray: %t}]->(%s%s $%s)",
			parentID, relType, isArray, id, labels(label), id))
		sv.params[id] = bag
		sv.edges[parentID+"|"+relType+"|"+id] = true
		existing = created
	}

	sv.compiled[identity(child)] = id
	sv.matched[existing] = id
	sv.bound = append(sv.bound, id)
	return id, props, true, nil
}

// mergeEdge relates two bound nodes unless the same edge was already
// emitted in this statement. MERGE keeps an edge that already exists in the
// store; isArray is overwritten so the latest save decides the cardinality.
func (sv *saver) mergeEdge(parentID, relType, childID string, isArray bool) error {
	edge := parentID + "|" + relType + "|" + childID
	if sv.edges[edge] {
		return nil
	}
	relID, err := sv.next()
	if err != nil {
		return err
	}
	sv.edges[edge] = true
	sv.emit(fmt.Sprintf("MERGE (%s)-[%s:%s]->(%s) SET %s.isArray = %t",
		parentID, relID, relType, childID, relID, isArray))
	return nil
}

// plainBag returns the scalar and null properties of props.
func plainBag(props []node.Property) map[string]any {
	bag := make(map[string]any)
	for _, p := range props {
		if p.Kind == node.Scalar || p.Kind == node.Null {
			bag[p.Key] = p.Value
		}
	}
	return bag
}

// withoutNulls drops null entries; a created node simply lacks them.
func withoutNulls(bag map[string]any) map[string]any {
	for k, v := range bag {
		if v == nil {
			delete(bag, k)
		}
	}
	return bag
}

func wrapPath(err error, path string) error {
	var ve *ir.ValidationError
	if errors.As(err, &ve) {
		return ve.With("path", path)
	}
	return err
}
