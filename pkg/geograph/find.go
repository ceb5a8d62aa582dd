package geograph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querycypher"
	"github.com/roach88/geograph/internal/reconstruct"
)

// FindByID returns the node with the given label and uuid and everything
// reachable from it, or nil when no such node exists.
func (c *Client) FindByID(ctx context.Context, label, uuid string) (map[string]any, error) {
	st, err := c.cypher.CompileFindByID(label, uuid)
	if err != nil {
		return nil, err
	}
	records, err := c.read(ctx, "find by id", st)
	if err != nil {
		return nil, err
	}

	g, err := reconstruct.GraphFromRecords(records, querycypher.ColumnNodes, querycypher.ColumnRels)
	if err != nil {
		return nil, fmt.Errorf("find by id: %w", err)
	}
	geometries, err := c.geometriesFor(ctx, g.UUIDs())
	if err != nil {
		return nil, fmt.Errorf("find by id: %w", err)
	}
	return reconstruct.One(uuid, g, geometries, c.reconstructOptions()...)
}

// Find returns one object per root matching the query, in store order.
func (c *Client) Find(ctx context.Context, q Query) ([]map[string]any, error) {
	st, err := c.cypher.CompileFind(q)
	if err != nil {
		return nil, err
	}
	rows, err := c.findRows(ctx, "find", st)
	if err != nil {
		return nil, err
	}
	geometries, err := c.geometriesFor(ctx, reconstruct.UUIDs(rows))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	return reconstruct.Many(rows, geometries, c.reconstructOptions()...)
}

// FindBySpatialQuery runs the spatial search first, then finds the roots
// among the nodes it matched. Only the matching geometries are attached.
func (c *Client) FindBySpatialQuery(ctx context.Context, q Query, sq SpatialQuery) ([]map[string]any, error) {
	if c.relational == nil {
		return nil, ir.ErrRelationalStoreRequired
	}

	sqlst, err := c.sql.CompileSpatial(sq)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("relational statement", slog.String("op", "spatial find"), slog.String("sql", sqlst.SQL))

	qctx, cancel := c.relationalCtx(ctx)
	geometries, err := c.relational.Query(qctx, sqlst.SQL, sqlst.Args...)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("spatial find: %w", err)
	}

	st, err := c.cypher.CompileFindRestricted(q, geometryUUIDs(geometries))
	if err != nil {
		return nil, err
	}
	rows, err := c.findRows(ctx, "spatial find", st)
	if err != nil {
		return nil, err
	}
	return reconstruct.Many(rows, geometries, c.reconstructOptions()...)
}

func (c *Client) findRows(ctx context.Context, op string, st ir.Statement) ([]reconstruct.Row, error) {
	records, err := c.read(ctx, op, st)
	if err != nil {
		return nil, err
	}
	rows, err := reconstruct.RowsFromRecords(records)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return rows, nil
}

func (c *Client) read(ctx context.Context, op string, st ir.Statement) ([]ir.Record, error) {
	c.logger.Debug("graph statement", slog.String("op", op), slog.String("cypher", st.Text))

	ctx, cancel := c.graphCtx(ctx)
	defer cancel()
	records, err := c.graph.Run(ctx, st.Text, st.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return records, nil
}

// geometriesFor fetches the geometry rows of the given nodes. Returns nil
// without a relational store or when there are no uuids.
func (c *Client) geometriesFor(ctx context.Context, uuids []string) ([]ir.GeometryRow, error) {
	if c.relational == nil || len(uuids) == 0 {
		return nil, nil
	}
	st, err := c.sql.CompileFindByUUIDs(uuids)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("relational statement", slog.String("op", "geometry lookup"), slog.String("sql", st.SQL))

	ctx, cancel := c.relationalCtx(ctx)
	defer cancel()
	return c.relational.Query(ctx, st.SQL, st.Args...)
}

func geometryUUIDs(rows []ir.GeometryRow) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range rows {
		if !seen[r.NodeUUID] {
			seen[r.NodeUUID] = true
			out = append(out, r.NodeUUID)
		}
	}
	return out
}
