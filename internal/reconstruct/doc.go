// Package reconstruct turns flat graph-store records back into nested
// JSON-shaped objects.
//
// Relationships become properties of their start node, keyed by type. A
// relationship group holding exactly one node collapses to a bare object
// unless the relationship was saved from an array (isArray: true).
// Geometry rows are attached as GeoJSON Features under their node_key.
//
// CRITICAL: Output is a tree. A relationship that leads back to a node
// already on the current path is rendered as a {uuid, _label} reference
// instead of recursing, so reconstructed values are always safe to marshal.
package reconstruct
