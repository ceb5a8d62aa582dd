package querysql

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
)

// CompileFindByUUIDs compiles a select of every geometry row belonging to
// the given nodes.
func (c *SQLCompiler) CompileFindByUUIDs(uuids []string) (ir.SQLStatement, error) {
	if err := validateUUIDs(uuids); err != nil {
		return ir.SQLStatement{}, fmt.Errorf("compile geometry find: %w", err)
	}
	sql := "SELECT " + selectColumns + " FROM " + Table +
		" WHERE node_uuid = ANY($1::uuid[]) ORDER BY node_uuid, node_key"
	return ir.SQLStatement{SQL: sql, Args: []any{uuids}}, nil
}

// CompileDelete compiles a delete of every geometry row belonging to the
// given nodes.
func (c *SQLCompiler) CompileDelete(uuids []string) (ir.SQLStatement, error) {
	if err := validateUUIDs(uuids); err != nil {
		return ir.SQLStatement{}, fmt.Errorf("compile geometry delete: %w", err)
	}
	sql := "DELETE FROM " + Table + " WHERE node_uuid = ANY($1::uuid[])"
	return ir.SQLStatement{SQL: sql, Args: []any{uuids}}, nil
}

func validateUUIDs(uuids []string) error {
	for _, id := range uuids {
		if !node.IsUUID(id) {
			return ir.Invalid(ir.CodeInvalidUUID, "uuid %q is not a valid v4 uuid", id)
		}
	}
	return nil
}

// SpatialOp is a spatial relation between a stored geometry and the query
// geometry.
type SpatialOp string

const (
	Intersects SpatialOp = "intersects"
	Within     SpatialOp = "within"
	Contains   SpatialOp = "contains"
	DWithin    SpatialOp = "dwithin"
)

var spatialFuncs = map[SpatialOp]string{
	Intersects: "ST_Intersects",
	Within:     "ST_Within",
	Contains:   "ST_Contains",
}

// SpatialQuery selects geometry rows by label, key and a spatial relation.
type SpatialQuery struct {
	// Nodes restricts the search to "Label.key" pairs, e.g. "Place.area".
	// Empty searches every geometry.
	Nodes []string `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// Op relates each stored geometry to Geometry.
	Op SpatialOp `json:"op" yaml:"op"`

	// Geometry is a GeoJSON geometry object.
	Geometry json.RawMessage `json:"geometry" yaml:"-"`

	// Distance in meters, for DWithin only.
	Distance float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

// CompileSpatial compiles a spatial geometry search:
//
//	WITH filtered_geometries AS (
//	  SELECT node_uuid, node_key, node_label, properties, geometry FROM geometries
//	  WHERE (node_label = $1 AND node_key = $2)
//	)
//	SELECT ... FROM filtered_geometries
//	WHERE ST_Intersects(geometry, ST_SetSRID(ST_GeomFromGeoJSON($3), 4326))
//	ORDER BY node_uuid, node_key
func (c *SQLCompiler) CompileSpatial(q SpatialQuery) (ir.SQLStatement, error) {
	st, err := c.compileSpatial(q)
	if err != nil {
		return ir.SQLStatement{}, fmt.Errorf("compile spatial query: %w", err)
	}
	return st, nil
}

func (c *SQLCompiler) compileSpatial(q SpatialQuery) (ir.SQLStatement, error) {
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	var conds []string
	for _, target := range q.Nodes {
		label, key, ok := strings.Cut(target, ".")
		if !ok || !node.ValidLabel(label) || !node.ValidKey(key) {
			return ir.SQLStatement{}, ir.Invalid(ir.CodeInvalidFilter,
				"spatial target %q must look like Label.key", target)
		}
		conds = append(conds, fmt.Sprintf("(node_label = %s AND node_key = %s)", arg(label), arg(key)))
	}

	if len(q.Geometry) == 0 {
		return ir.SQLStatement{}, ir.Invalid(ir.CodeInvalidGeometry, "spatial query needs a geometry")
	}
	if _, err := decodeGeometry(q.Geometry); err != nil {
		return ir.SQLStatement{}, err
	}
	shape := fmt.Sprintf("ST_SetSRID(ST_GeomFromGeoJSON(%s), %d)", arg(string(q.Geometry)), c.srid)

	var predicate string
	switch q.Op {
	case Intersects, Within, Contains:
		predicate = fmt.Sprintf("%s(geometry, %s)", spatialFuncs[q.Op], shape)
	case DWithin:
		if q.Distance <= 0 {
			return ir.SQLStatement{}, ir.Invalid(ir.CodeInvalidFilter, "dwithin needs a positive distance")
		}
		predicate = fmt.Sprintf("ST_DWithin(geometry::geography, %s::geography, %s)", shape, arg(q.Distance))
	default:
		return ir.SQLStatement{}, ir.Invalid(ir.CodeInvalidFilter, "unknown spatial operator %q", q.Op)
	}

	var b strings.Builder
	b.WriteString("WITH filtered_geometries AS (\n")
	b.WriteString("  SELECT node_uuid, node_key, node_label, properties, geometry FROM " + Table + "\n")
	if len(conds) > 0 {
		b.WriteString("  WHERE " + strings.Join(conds, " OR ") + "\n")
	}
	b.WriteString(")\n")
	b.WriteString("SELECT " + selectColumns + " FROM filtered_geometries\n")
	b.WriteString("WHERE " + predicate + "\n")
	b.WriteString("ORDER BY node_uuid, node_key")

	return ir.SQLStatement{SQL: b.String(), Args: args}, nil
}
