package geograph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/saga"
)

// unit is one cross-store write: a graph statement and the geometry
// statements that follow it.
type unit struct {
	op    string
	graph ir.Statement

	// geometry derives the relational statements from the graph records.
	// Nil when the write never touches geometries.
	geometry func(records []ir.Record) ([]ir.SQLStatement, error)
}

// execute runs the unit as a saga:
//
//	graph begin → graph write → relational begin → relational write →
//	graph commit → relational commit
//
// Each open transaction is rolled back, in reverse order, when a later step
// fails. Relational steps are skipped when no relational store is
// configured or there is nothing to write.
func (c *Client) execute(ctx context.Context, u unit) ([]ir.Record, error) {
	var (
		gtx     GraphTx
		rtx     RelationalTx
		records []ir.Record
		sqls    []ir.SQLStatement
	)

	c.logger.Debug("graph statement",
		slog.String("op", u.op),
		slog.String("cypher", u.graph.Text),
	)

	steps := []saga.Step{
		{
			Name: "graph begin",
			Action: func(ctx context.Context) error {
				ctx, cancel := c.graphCtx(ctx)
				defer cancel()
				tx, err := c.graph.BeginTx(ctx)
				if err != nil {
					return err
				}
				gtx = tx
				return nil
			},
			Compensate: func(ctx context.Context) error {
				ctx, cancel := c.graphCtx(ctx)
				defer cancel()
				return gtx.Rollback(ctx)
			},
		},
		{
			Name: "graph write",
			Action: func(ctx context.Context) error {
				ctx, cancel := c.graphCtx(ctx)
				defer cancel()
				var err error
				records, err = gtx.Run(ctx, u.graph.Text, u.graph.Params)
				if err != nil {
					return err
				}
				if c.relational != nil && u.geometry != nil {
					sqls, err = u.geometry(records)
				}
				return err
			},
		},
		{
			Name: "relational begin",
			Action: func(ctx context.Context) error {
				if len(sqls) == 0 {
					return nil
				}
				ctx, cancel := c.relationalCtx(ctx)
				defer cancel()
				tx, err := c.relational.BeginTx(ctx)
				if err != nil {
					return err
				}
				rtx = tx
				return nil
			},
			Compensate: func(ctx context.Context) error {
				if rtx == nil {
					return nil
				}
				ctx, cancel := c.relationalCtx(ctx)
				defer cancel()
				return rtx.Rollback(ctx)
			},
		},
		{
			Name: "relational write",
			Action: func(ctx context.Context) error {
				for _, st := range sqls {
					c.logger.Debug("relational statement", slog.String("op", u.op), slog.String("sql", st.SQL))
					if err := c.relationalExec(ctx, rtx, st); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Name: "graph commit",
			Action: func(ctx context.Context) error {
				ctx, cancel := c.graphCtx(ctx)
				defer cancel()
				return gtx.Commit(ctx)
			},
		},
		{
			Name: "relational commit",
			Action: func(ctx context.Context) error {
				if rtx == nil {
					return nil
				}
				ctx, cancel := c.relationalCtx(ctx)
				defer cancel()
				return rtx.Commit(ctx)
			},
		},
	}

	if err := saga.Run(ctx, steps...); err != nil {
		if saga.IsCompensationError(err) {
			c.logger.Error("compensation failed",
				slog.String("op", u.op),
				slog.String("start", u.graph.Start),
				slog.Any("error", err),
			)
		}
		return nil, fmt.Errorf("%s: %w", u.op, err)
	}

	c.logger.Info("unit committed",
		slog.String("op", u.op),
		slog.String("start", u.graph.Start),
		slog.Int("geometry_statements", len(sqls)),
	)
	return records, nil
}

func (c *Client) relationalExec(ctx context.Context, tx RelationalTx, st ir.SQLStatement) error {
	ctx, cancel := c.relationalCtx(ctx)
	defer cancel()
	_, err := tx.Exec(ctx, st.SQL, st.Args...)
	return err
}
