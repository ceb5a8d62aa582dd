// Package geograph maps nested JSON-shaped object graphs to a Neo4j graph
// store and a PostGIS geometry store, and back.
//
// A node is a map[string]any. Scalars are stored on the graph node, GeoJSON
// Features are routed to the geometry table keyed by (uuid, property key),
// and nested maps or arrays of maps become relationships typed by their
// property key.
//
//	client := geograph.New(graph, geograph.WithRelationalStore(geometries))
//	id, err := client.Save(ctx, map[string]any{
//		"_label": "Person",
//		"name":   "Ada",
//		"home":   map[string]any{"_label": "Place", "area": feature},
//	})
//
// # Consistency
//
// Each saved root runs as a saga: graph write, geometry write, graph
// commit, geometry commit. A failure rolls back whatever is still open, in
// reverse order. There is no two-phase commit: once the graph commit
// succeeds, a failing geometry commit cannot undo it.
//
// Batches run one saga per root concurrently. Roots never roll each other
// back.
package geograph
