package geograph

import (
	"context"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querycypher"
)

// DeleteNodesByID detach-deletes the nodes with the given label and uuids
// and their geometry rows. Returns the uuids actually deleted.
func (c *Client) DeleteNodesByID(ctx context.Context, label string, uuids []string) ([]string, error) {
	st, err := c.cypher.CompileDeleteByID(label, uuids)
	if err != nil {
		return nil, err
	}
	return c.deleteNodes(ctx, "delete by id", st)
}

// DeleteNodesByQuery detach-deletes every node the query binds (roots and
// relation path ends) and their geometry rows. Returns the uuids deleted.
func (c *Client) DeleteNodesByQuery(ctx context.Context, q Query) ([]string, error) {
	st, err := c.cypher.CompileDeleteByQuery(q)
	if err != nil {
		return nil, err
	}
	return c.deleteNodes(ctx, "delete by query", st)
}

// DeleteRelationships removes the relationships from n to each nested node
// carrying a uuid. Nodes themselves are kept.
func (c *Client) DeleteRelationships(ctx context.Context, n map[string]any) error {
	st, err := c.cypher.CompileDeleteRelationships(n)
	if err != nil {
		return err
	}
	_, err = c.execute(ctx, unit{op: "delete relationships", graph: st})
	return err
}

func (c *Client) deleteNodes(ctx context.Context, op string, st ir.Statement) ([]string, error) {
	u := unit{
		op:    op,
		graph: st,
		geometry: func(records []ir.Record) ([]ir.SQLStatement, error) {
			deleted := deletedUUIDs(records)
			if len(deleted) == 0 {
				return nil, nil
			}
			sqlst, err := c.sql.CompileDelete(deleted)
			if err != nil {
				return nil, err
			}
			return []ir.SQLStatement{sqlst}, nil
		},
	}

	records, err := c.execute(ctx, u)
	if err != nil {
		return nil, err
	}
	return deletedUUIDs(records), nil
}

func deletedUUIDs(records []ir.Record) []string {
	out := []string{}
	for _, rec := range records {
		if id, ok := rec[querycypher.ColumnUUID].(string); ok {
			out = append(out, id)
		}
	}
	return out
}
