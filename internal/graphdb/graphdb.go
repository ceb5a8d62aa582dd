// Package graphdb adapts the Neo4j driver to the graph store interface.
//
// CRITICAL: Every transaction runs on its own session, closed when the
// transaction commits or rolls back. Sessions are never reused after
// hosting a transaction.
package graphdb

import (
	"context"
	"errors"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/roach88/geograph/internal/ir"
)

// Store runs statements against Neo4j.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithDatabase selects a database other than the server default.
func WithDatabase(name string) Option {
	return func(s *Store) {
		s.database = name
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open connects to Neo4j with basic auth and verifies connectivity.
func Open(ctx context.Context, uri, user, password string, opts ...Option) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "connect", Err: err}
	}
	s := New(driver, opts...)

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "connect", Err: err}
	}

	s.logger.Info("graph store connected",
		slog.String("uri", uri),
		slog.String("database", s.database),
	)
	return s, nil
}

// New wraps an existing driver.
func New(driver neo4j.DriverWithContext, opts ...Option) *Store {
	s := &Store{driver: driver, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// Run executes a read statement in an auto-commit transaction on a fresh
// session and returns every record.
func (s *Store) Run(ctx context.Context, text string, params ir.Params) ([]ir.Record, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	s.logger.Debug("graph run", slog.String("cypher", text))

	result, err := session.Run(ctx, text, params.Driver())
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "run", Err: err}
	}
	records, err := collect(ctx, result)
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "run", Err: err}
	}
	return records, nil
}

// BeginTx opens a write transaction on a fresh session.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		_ = session.Close(ctx)
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "begin", Err: err}
	}
	return &Tx{session: session, tx: tx, logger: s.logger}, nil
}

// Tx is an open graph transaction bound to its own session.
type Tx struct {
	session neo4j.SessionWithContext
	tx      neo4j.ExplicitTransaction
	logger  *slog.Logger
	done    bool
}

// Run executes a statement inside the transaction.
func (t *Tx) Run(ctx context.Context, text string, params ir.Params) ([]ir.Record, error) {
	t.logger.Debug("graph tx run", slog.String("cypher", text))

	result, err := t.tx.Run(ctx, text, params.Driver())
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "run", Err: err}
	}
	records, err := collect(ctx, result)
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreGraph, Op: "run", Err: err}
	}
	return records, nil
}

// Commit commits the transaction and closes its session.
func (t *Tx) Commit(ctx context.Context) error {
	if t.done {
		return &ir.StoreError{Store: ir.StoreGraph, Op: "commit", Err: errFinished}
	}
	t.done = true
	defer t.session.Close(ctx)

	if err := t.tx.Commit(ctx); err != nil {
		return &ir.StoreError{Store: ir.StoreGraph, Op: "commit", Err: err}
	}
	return nil
}

// Rollback rolls the transaction back and closes its session. Rolling back
// a finished transaction is a no-op.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	defer t.session.Close(ctx)

	if err := t.tx.Rollback(ctx); err != nil {
		return &ir.StoreError{Store: ir.StoreGraph, Op: "rollback", Err: err}
	}
	return nil
}

var errFinished = errors.New("transaction already finished")

func collect(ctx context.Context, result neo4j.ResultWithContext) ([]ir.Record, error) {
	var records []ir.Record
	for result.Next(ctx) {
		records = append(records, convertRecord(result.Record()))
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
