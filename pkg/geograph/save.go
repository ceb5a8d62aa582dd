package geograph

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querycypher"
)

type saveOptions struct {
	ignoreErrors bool
	update       bool
}

// SaveOption configures Save and SaveAll.
type SaveOption func(*saveOptions)

// WithIgnoreErrors lets a batch continue past failing roots. A failed
// root's slot holds "" and no error is returned for it.
func WithIgnoreErrors() SaveOption {
	return func(o *saveOptions) {
		o.ignoreErrors = true
	}
}

// WithoutUpdate links existing nodes (matched by uuid) without writing
// their properties.
func WithoutUpdate() SaveOption {
	return func(o *saveOptions) {
		o.update = false
	}
}

// Save persists one graph and returns its root uuid. New nodes receive
// uuids, written back onto the input maps.
func (c *Client) Save(ctx context.Context, n map[string]any, opts ...SaveOption) (string, error) {
	ids, err := c.SaveAll(ctx, []map[string]any{n}, opts...)
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// SaveAll persists each graph as an independent unit of work and returns
// the root uuids in input order.
//
// Every root is compiled before any I/O. Without WithIgnoreErrors a compile
// failure aborts the batch and the first store failure is returned once all
// units finish; units that already committed stay committed.
func (c *Client) SaveAll(ctx context.Context, nodes []map[string]any, opts ...SaveOption) ([]string, error) {
	o := saveOptions{update: true}
	for _, opt := range opts {
		opt(&o)
	}

	units := make([]*unit, len(nodes))
	for i, n := range nodes {
		u, err := c.compileSave(n, o)
		if err != nil {
			if !o.ignoreErrors {
				return nil, fmt.Errorf("save %d: %w", i, err)
			}
			c.logger.Warn("skipping invalid graph", slog.Int("index", i), slog.Any("error", err))
			continue
		}
		units[i] = u
	}

	ids := make([]string, len(nodes))
	var g errgroup.Group
	for i, u := range units {
		if u == nil {
			continue
		}
		g.Go(func() error {
			if _, err := c.execute(ctx, *u); err != nil {
				if o.ignoreErrors {
					c.logger.Warn("save failed", slog.Int("index", i), slog.Any("error", err))
					return nil
				}
				return err
			}
			ids[i] = u.graph.Start
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *Client) compileSave(n map[string]any, o saveOptions) (*unit, error) {
	st, err := c.cypher.CompileSave(n, querycypher.SaveOptions{Update: o.update})
	if err != nil {
		return nil, err
	}
	u := &unit{op: "save", graph: st}
	if c.relational == nil {
		return u, nil
	}

	upsert, err := c.sql.CompileUpsert(n)
	if err != nil {
		return nil, err
	}
	if !upsert.Empty() {
		sqls := upsert.Statements()
		u.geometry = func([]ir.Record) ([]ir.SQLStatement, error) {
			return sqls, nil
		}
	}
	return u, nil
}
