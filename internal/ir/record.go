package ir

import "encoding/json"

// Record is one row returned by the graph store, keyed by column name.
// Values are NodeRecord, RelationshipRecord, []any of those, or scalars.
type Record map[string]any

// NodeRecord is a node as returned by the graph store.
type NodeRecord struct {
	// ID is the store-internal identity (element id).
	ID     string
	Labels []string
	Props  map[string]any
}

// RelationshipRecord is a relationship as returned by the graph store.
type RelationshipRecord struct {
	ID      string
	StartID string
	EndID   string
	Type    string
	Props   map[string]any
}

// GeometryRow is one row of the geometries table.
type GeometryRow struct {
	NodeUUID  string
	NodeKey   string
	NodeLabel string

	// Geometry is the GeoJSON geometry object.
	Geometry json.RawMessage

	Properties map[string]any
}
