package geograph

import (
	"context"
	"log/slog"

	"github.com/roach88/geograph/internal/config"
	"github.com/roach88/geograph/internal/graphdb"
	"github.com/roach88/geograph/internal/store"
)

// Connect opens the stores named by cfg and returns a Client over them,
// plus a function that closes both. The relational store is only opened
// when cfg.Postgres is enabled.
func Connect(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Client, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	gctx, cancel := context.WithTimeout(ctx, cfg.GraphTimeout)
	defer cancel()
	graph, err := graphdb.Open(gctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password,
		graphdb.WithDatabase(cfg.Neo4j.Database),
		graphdb.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, err
	}
	closers := []func(){func() { _ = graph.Close(context.Background()) }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	all := []Option{
		WithLogger(logger),
		WithTimeouts(cfg.GraphTimeout, cfg.RelationalTimeout),
		WithSRID(cfg.SRID),
	}

	if cfg.Postgres.Enabled() {
		rctx, cancel := context.WithTimeout(ctx, cfg.RelationalTimeout)
		defer cancel()
		geometries, err := store.Open(rctx, cfg.Postgres.DSN(),
			store.WithMaxConns(cfg.Postgres.MaxConns),
			store.WithLogger(logger),
		)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		closers = append(closers, geometries.Close)
		all = append(all, WithRelationalStore(relationalAdapter{geometries}))
	}

	client := New(graphAdapter{graph}, append(all, opts...)...)
	return client, closeAll, nil
}

// graphAdapter exposes graphdb's concrete transaction as a GraphTx.
type graphAdapter struct {
	*graphdb.Store
}

func (a graphAdapter) BeginTx(ctx context.Context) (GraphTx, error) {
	tx, err := a.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// relationalAdapter exposes store's concrete transaction as a RelationalTx.
type relationalAdapter struct {
	*store.Store
}

func (a relationalAdapter) BeginTx(ctx context.Context) (RelationalTx, error) {
	tx, err := a.Store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
