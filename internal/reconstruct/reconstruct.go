package reconstruct

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
)

// RelArrayProp is the relationship property marking array cardinality.
const RelArrayProp = "isArray"

// Graph is a flat set of records reachable from one or more roots.
type Graph struct {
	Nodes []ir.NodeRecord
	Rels  []ir.RelationshipRecord
}

// UUIDs returns the uuid of every node in the graph, in record order.
func (g Graph) UUIDs() []string {
	return collectUUIDs(g.Nodes)
}

// Row is one filtered-find result: a root and the records its relation
// paths matched.
type Row struct {
	Root  ir.NodeRecord
	Nodes []ir.NodeRecord
	Rels  []ir.RelationshipRecord
}

// UUIDs returns the distinct uuids of every node across rows, roots first
// within each row.
func UUIDs(rows []Row) []string {
	var all []ir.NodeRecord
	for _, r := range rows {
		all = append(all, r.Root)
		all = append(all, r.Nodes...)
	}
	return collectUUIDs(all)
}

func collectUUIDs(nodes []ir.NodeRecord) []string {
	seen := make(map[string]bool)
	var out []string
	for _, n := range nodes {
		id, ok := n.Props[node.KeyUUID].(string)
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

type options struct {
	includeLabel bool
}

// Option configures reconstruction.
type Option func(*options)

// IncludeLabel keeps the entity label on every object as "_label".
func IncludeLabel() Option {
	return func(o *options) {
		o.includeLabel = true
	}
}

// One reconstructs the node with the given uuid from a point-lookup graph.
// Returns nil when no node in the graph has that uuid.
func One(uuid string, g Graph, geometries []ir.GeometryRow, opts ...Option) (map[string]any, error) {
	b := newBuilder(g.Nodes, g.Rels, g.Nodes, geometries, opts)
	for _, n := range g.Nodes {
		if id, _ := n.Props[node.KeyUUID].(string); id == uuid {
			out, err := b.build(n, make(map[string]bool))
			if err != nil {
				return nil, fmt.Errorf("reconstruct %s: %w", uuid, err)
			}
			return out, nil
		}
	}
	return nil, nil
}

// Many reconstructs one object per row, preserving row order. Each row's
// root is built only from that row's relationships.
func Many(rows []Row, geometries []ir.GeometryRow, opts ...Option) ([]map[string]any, error) {
	// Every node of every row, for end nodes missing from their own row.
	var all []ir.NodeRecord
	for _, r := range rows {
		all = append(all, r.Root)
		all = append(all, r.Nodes...)
	}

	out := make([]map[string]any, 0, len(rows))
	for i, r := range rows {
		nodes := append([]ir.NodeRecord{r.Root}, r.Nodes...)
		b := newBuilder(nodes, r.Rels, all, geometries, opts)
		obj, err := b.build(r.Root, make(map[string]bool))
		if err != nil {
			return nil, fmt.Errorf("reconstruct row %d: %w", i, err)
		}
		out = append(out, obj)
	}
	return out, nil
}

type builder struct {
	opts options

	byID     map[string]ir.NodeRecord
	fallback []ir.NodeRecord

	// out holds relationships by start node id, deduplicated, in record order.
	out map[string][]ir.RelationshipRecord

	geometries map[string][]ir.GeometryRow
}

func newBuilder(nodes []ir.NodeRecord, rels []ir.RelationshipRecord, fallback []ir.NodeRecord,
	geometries []ir.GeometryRow, opts []Option) *builder {
	b := &builder{
		byID:       make(map[string]ir.NodeRecord, len(nodes)),
		fallback:   fallback,
		out:        make(map[string][]ir.RelationshipRecord),
		geometries: make(map[string][]ir.GeometryRow),
	}
	for _, opt := range opts {
		opt(&b.opts)
	}
	for _, n := range nodes {
		if _, ok := b.byID[n.ID]; !ok {
			b.byID[n.ID] = n
		}
	}
	seen := make(map[string]bool, len(rels))
	for _, r := range rels {
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		b.out[r.StartID] = append(b.out[r.StartID], r)
	}
	for _, g := range geometries {
		b.geometries[g.NodeUUID] = append(b.geometries[g.NodeUUID], g)
	}
	return b
}

// lookup finds a node by id, scanning the full record set when the row's
// own index does not hold it.
func (b *builder) lookup(id string) (ir.NodeRecord, bool) {
	if n, ok := b.byID[id]; ok {
		return n, true
	}
	for _, n := range b.fallback {
		if n.ID == id {
			return n, true
		}
	}
	return ir.NodeRecord{}, false
}

func (b *builder) build(n ir.NodeRecord, onPath map[string]bool) (map[string]any, error) {
	onPath[n.ID] = true
	defer delete(onPath, n.ID)

	obj := make(map[string]any, len(n.Props))
	for k, v := range n.Props {
		if strings.HasPrefix(k, "_") {
			continue
		}
		obj[k] = v
	}
	if b.opts.includeLabel {
		if label := entityLabel(n.Labels); label != "" {
			obj[node.KeyLabel] = label
		}
	}

	// Group by type, keeping first-seen order for deterministic recursion.
	var types []string
	groups := make(map[string][]ir.RelationshipRecord)
	for _, r := range b.out[n.ID] {
		if _, ok := groups[r.Type]; !ok {
			types = append(types, r.Type)
		}
		groups[r.Type] = append(groups[r.Type], r)
	}

	for _, typ := range types {
		var children []any
		seen := make(map[string]bool)
		array := false
		for _, r := range groups[typ] {
			end, ok := b.lookup(r.EndID)
			if !ok {
				continue
			}
			if id, ok := end.Props[node.KeyUUID].(string); ok {
				if seen[id] {
					continue
				}
				seen[id] = true
			}
			if isArray(r.Props) || isArray(end.Props) {
				array = true
			}

			if onPath[end.ID] {
				children = append(children, reference(end))
				continue
			}
			child, err := b.build(end, onPath)
			if err != nil {
				return nil, err
			}
			children = append(children, child)
		}

		switch {
		case len(children) == 0:
		case len(children) == 1 && !array:
			obj[typ] = children[0]
		default:
			obj[typ] = children
		}
	}

	if id, ok := n.Props[node.KeyUUID].(string); ok {
		for _, g := range b.geometries[id] {
			f, err := feature(g)
			if err != nil {
				return nil, err
			}
			obj[g.NodeKey] = f
		}
	}
	return obj, nil
}

// reference is the stub rendered for a relationship closing a cycle.
func reference(n ir.NodeRecord) map[string]any {
	ref := map[string]any{node.KeyUUID: n.Props[node.KeyUUID]}
	if label := entityLabel(n.Labels); label != "" {
		ref[node.KeyLabel] = label
	}
	return ref
}

// entityLabel returns the first label that is not the base label.
func entityLabel(labels []string) string {
	for _, l := range labels {
		if l != node.BaseLabel {
			return l
		}
	}
	return ""
}

func isArray(props map[string]any) bool {
	if v, ok := props[RelArrayProp].(bool); ok && v {
		return true
	}
	v, ok := props[node.KeyArray].(bool)
	return ok && v
}

// feature renders a geometry row as a decoded GeoJSON Feature.
func feature(row ir.GeometryRow) (map[string]any, error) {
	g, err := geojson.UnmarshalGeometry(row.Geometry)
	if err != nil {
		return nil, ir.Invalid(ir.CodeInvalidGeometry, "geometry of %s.%s: %v", row.NodeUUID, row.NodeKey, err)
	}
	f := geojson.NewFeature(g.Geometry())
	if len(row.Properties) > 0 {
		f.Properties = geojson.Properties(row.Properties)
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return nil, ir.Invalid(ir.CodeInvalidGeometry, "encode feature %s.%s: %v", row.NodeUUID, row.NodeKey, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, ir.Invalid(ir.CodeInvalidGeometry, "decode feature %s.%s: %v", row.NodeUUID, row.NodeKey, err)
	}
	return out, nil
}
