// Package store provides the PostGIS-backed geometry store.
//
// Geometry-valued node properties live in one table, keyed by the owning
// node's uuid and the property key:
//
//	geometries(node_uuid uuid, node_key text, node_label text,
//	           geometry geometry, properties json)
//	UNIQUE (node_uuid, node_key)
//
// # Critical Patterns
//
// CP-1: Parameterized Statements
//   - Statements arrive compiled from internal/querysql with $n placeholders
//   - The store never builds SQL from values
//
// CP-2: Deterministic Query Results
//   - All selects include ORDER BY node_uuid, node_key
//
// CP-3: Safe Transactions
//   - Rollback after Commit is a no-op, so it is always safe to defer
//
// Geometries are written as Well-Known Text and read back as GeoJSON.
package store
