package querysql

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/node"
)

// Table is the geometry table.
const Table = "geometries"

// DefaultSRID is WGS 84, the GeoJSON coordinate system.
const DefaultSRID = 4326

// columns read back by every select, in scan order.
const selectColumns = "node_uuid, node_key, node_label, properties, ST_AsGeoJSON(geometry)::json AS geojson"

// SQLCompiler compiles geometry statements for PostgreSQL with PostGIS.
//
// CRITICAL: All values are parameterized ($n), never interpolated. The only
// literal in generated SQL is the configured SRID.
// CRITICAL: All selects include ORDER BY node_uuid, node_key for
// deterministic results.
type SQLCompiler struct {
	srid int
}

// Option configures a SQLCompiler.
type Option func(*SQLCompiler)

// WithSRID sets the spatial reference id geometries are stored in.
func WithSRID(srid int) Option {
	return func(c *SQLCompiler) {
		c.srid = srid
	}
}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler(opts ...Option) *SQLCompiler {
	c := &SQLCompiler{srid: DefaultSRID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upsert is the geometry write for one saved graph.
type Upsert struct {
	// Insert writes every geometry feature in one multi-row statement.
	// Nil when the graph has no features.
	Insert *ir.SQLStatement

	// Deletes removes one geometry per null-valued property.
	Deletes []ir.SQLStatement

	// Rows is the number of value tuples in Insert.
	Rows int
}

// Statements returns the deletes followed by the insert.
func (u Upsert) Statements() []ir.SQLStatement {
	out := append([]ir.SQLStatement{}, u.Deletes...)
	if u.Insert != nil {
		out = append(out, *u.Insert)
	}
	return out
}

// Empty reports whether the upsert has nothing to write.
func (u Upsert) Empty() bool {
	return u.Insert == nil && len(u.Deletes) == 0
}

// CompileUpsert walks a saved graph and compiles its geometry writes.
//
// Every visited node must carry a valid uuid (CompileSave writes them back
// before this runs). For each property of each node:
//   - a GeoJSON Feature becomes one row (uuid, key, label, WKT, properties)
//   - a null becomes one DELETE for (uuid, key)
//   - a nested node or node array is walked; features are not descended into
//
// All rows are merged into a single INSERT ... ON CONFLICT statement:
//
//	INSERT INTO geometries (node_uuid, node_key, node_label, geometry, properties)
//	VALUES ($1, $2, $3, ST_GeomFromText($4, 4326), $5::json), (...)
//	ON CONFLICT (node_uuid, node_key)
//	DO UPDATE SET geometry = excluded.geometry, properties = excluded.properties
func (c *SQLCompiler) CompileUpsert(root map[string]any) (Upsert, error) {
	w := &walker{
		onPath:  make(map[uintptr]bool),
		visited: make(map[uintptr]bool),
		seen:    make(map[string]bool),
	}
	if err := w.walk(root, "root"); err != nil {
		return Upsert{}, fmt.Errorf("compile geometry upsert: %w", err)
	}

	u := Upsert{Deletes: w.deletes, Rows: len(w.rows)}
	if len(w.rows) == 0 {
		return u, nil
	}

	tuples := make([]string, len(w.rows))
	args := make([]any, 0, len(w.rows)*5)
	for i, row := range w.rows {
		n := i * 5
		tuples[i] = fmt.Sprintf("($%d, $%d, $%d, ST_GeomFromText($%d, %d), $%d::json)",
			n+1, n+2, n+3, n+4, c.srid, n+5)
		args = append(args, row...)
	}

	sql := "INSERT INTO " + Table + " (node_uuid, node_key, node_label, geometry, properties)\n" +
		"VALUES " + strings.Join(tuples, ", ") + "\n" +
		"ON CONFLICT (node_uuid, node_key)\n" +
		"DO UPDATE SET geometry = excluded.geometry, properties = excluded.properties"

	u.Insert = &ir.SQLStatement{SQL: sql, Args: args}
	return u, nil
}

type walker struct {
	onPath  map[uintptr]bool
	visited map[uintptr]bool
	// seen holds "uuid|key" pairs already written; the first occurrence wins.
	seen    map[string]bool
	rows    [][]any
	deletes []ir.SQLStatement
}

func (w *walker) walk(n map[string]any, path string) error {
	if n == nil {
		return nil
	}
	ptr := reflect.ValueOf(n).Pointer()
	if w.onPath[ptr] {
		return ir.Invalid(ir.CodeCyclicGraph, "node refers back to one of its ancestors").With("path", path)
	}
	if w.visited[ptr] {
		return nil
	}
	w.visited[ptr] = true
	w.onPath[ptr] = true
	defer delete(w.onPath, ptr)

	uuid, ok := node.UUID(n)
	if !ok {
		return ir.Invalid(ir.CodeMissingUUID, "node has no valid uuid").With("path", path)
	}
	props, err := node.Properties(n)
	if err != nil {
		return err
	}
	var label any
	if l, err := node.Label(n); err == nil {
		label = l
	}

	for _, p := range props {
		switch p.Kind {
		case node.GeoFeature:
			if w.seen[uuid+"|"+p.Key] {
				continue
			}
			w.seen[uuid+"|"+p.Key] = true
			row, err := featureRow(uuid, p.Key, label, p.Feature)
			if err != nil {
				var ve *ir.ValidationError
				if errors.As(err, &ve) {
					return ve.With("path", path+"."+p.Key)
				}
				return err
			}
			w.rows = append(w.rows, row)
		case node.Null:
			if w.seen[uuid+"|"+p.Key] {
				continue
			}
			w.seen[uuid+"|"+p.Key] = true
			w.deletes = append(w.deletes, ir.SQLStatement{
				SQL:  "DELETE FROM " + Table + " WHERE node_uuid = $1 AND node_key = $2",
				Args: []any{uuid, p.Key},
			})
		case node.Node, node.NodeArray:
			for i, child := range p.Nodes {
				childPath := path + "." + p.Key
				if p.Kind == node.NodeArray {
					childPath = fmt.Sprintf("%s[%d]", childPath, i)
				}
				if err := w.walk(child, childPath); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// featureRow converts a GeoJSON Feature to insert arguments.
func featureRow(uuid, key string, label any, feature map[string]any) ([]any, error) {
	text, err := ToWKT(feature["geometry"])
	if err != nil {
		return nil, err
	}

	// A typed nil map marshals to null; both store SQL NULL.
	var props any
	if p, ok := feature["properties"]; ok && p != nil {
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, ir.Invalid(ir.CodeInvalidGeometry, "feature properties: %v", err)
		}
		if string(raw) != "null" {
			props = string(raw)
		}
	}
	return []any{uuid, key, label, text, props}, nil
}

// ToWKT converts a GeoJSON geometry object (decoded or raw) to Well-Known
// Text.
func ToWKT(geometry any) (string, error) {
	raw, ok := geometry.(json.RawMessage)
	if !ok {
		var err error
		raw, err = json.Marshal(geometry)
		if err != nil {
			return "", ir.Invalid(ir.CodeInvalidGeometry, "encode geometry: %v", err)
		}
	}
	g, err := decodeGeometry(raw)
	if err != nil {
		return "", err
	}
	return wkt.MarshalString(g), nil
}

func decodeGeometry(raw json.RawMessage) (orb.Geometry, error) {
	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, ir.Invalid(ir.CodeInvalidGeometry, "decode geometry: %v", err)
	}
	if g.Geometry() == nil {
		return nil, ir.Invalid(ir.CodeInvalidGeometry, "geometry has no coordinates")
	}
	return g.Geometry(), nil
}
