package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roach88/geograph/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Store runs geometry statements against PostgreSQL with PostGIS.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Option configures Open.
type Option func(*options)

type options struct {
	maxConns int32
	logger   *slog.Logger
}

// WithMaxConns bounds the connection pool.
func WithMaxConns(n int) Option {
	return func(o *options) {
		o.maxConns = int32(n)
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Open creates a connection pool for the given DSN and verifies it with a
// ping.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	if o.maxConns > 0 {
		poolConfig.MaxConns = o.maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreRelational, Op: "connect", Err: err}
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &ir.StoreError{Store: ir.StoreRelational, Op: "connect", Err: err}
	}

	o.logger.Info("relational store connected",
		slog.String("host", poolConfig.ConnConfig.Host),
		slog.String("database", poolConfig.ConnConfig.Database),
		slog.Int("max_conns", int(poolConfig.MaxConns)),
	)
	return &Store{pool: pool, logger: o.logger}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// Close closes the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// EnsureSchema creates the postgis extension, the geometries table and its
// indexes when missing. It is idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements() {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return &ir.StoreError{Store: ir.StoreRelational, Op: "schema", Err: err}
		}
	}
	s.logger.Info("geometry schema ready")
	return nil
}

// schemaStatements splits the embedded schema into single statements.
func schemaStatements() []string {
	var out []string
	for _, part := range strings.Split(schemaSQL, ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// Query runs a geometry select and scans every row. The statement must
// select node_uuid, node_key, node_label, properties and geojson, in that
// order.
func (s *Store) Query(ctx context.Context, sql string, args ...any) ([]ir.GeometryRow, error) {
	s.logger.Debug("relational query", slog.String("sql", sql))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreRelational, Op: "query", Err: err}
	}
	out, err := scanGeometries(rows)
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreRelational, Op: "query", Err: err}
	}
	return out, nil
}

func scanGeometries(rows pgx.Rows) ([]ir.GeometryRow, error) {
	defer rows.Close()

	var out []ir.GeometryRow
	for rows.Next() {
		var (
			id    pgtype.UUID
			key   string
			label *string
			props map[string]any
			geo   []byte
		)
		if err := rows.Scan(&id, &key, &label, &props, &geo); err != nil {
			return nil, fmt.Errorf("scan geometry: %w", err)
		}
		row, err := geometryRow(id, key, label, props, geo)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func geometryRow(id pgtype.UUID, key string, label *string, props map[string]any, geo []byte) (ir.GeometryRow, error) {
	if !id.Valid {
		return ir.GeometryRow{}, errors.New("geometry row has null node_uuid")
	}
	row := ir.GeometryRow{
		NodeUUID:   uuid.UUID(id.Bytes).String(),
		NodeKey:    key,
		Geometry:   geo,
		Properties: props,
	}
	if label != nil {
		row.NodeLabel = *label
	}
	return row, nil
}

// BeginTx opens a transaction.
func (s *Store) BeginTx(ctx context.Context) (*Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, &ir.StoreError{Store: ir.StoreRelational, Op: "begin", Err: err}
	}
	return &Tx{tx: tx, logger: s.logger}, nil
}

// Tx is an open relational transaction.
type Tx struct {
	tx       pgx.Tx
	logger   *slog.Logger
	finished bool
}

// Exec runs a statement and returns the number of affected rows.
func (t *Tx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	t.logger.Debug("relational exec", slog.String("sql", sql))

	tag, err := t.tx.Exec(ctx, sql, args...)
	if err != nil {
		return 0, &ir.StoreError{Store: ir.StoreRelational, Op: "exec", Err: err}
	}
	return tag.RowsAffected(), nil
}

// Commit commits the transaction.
func (t *Tx) Commit(ctx context.Context) error {
	if t.finished {
		return nil
	}
	if err := t.tx.Commit(ctx); err != nil {
		return &ir.StoreError{Store: ir.StoreRelational, Op: "commit", Err: err}
	}
	t.finished = true
	return nil
}

// Rollback rolls back the transaction unless it was already committed.
// This is safe to call in a defer statement even after Commit.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.finished = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return &ir.StoreError{Store: ir.StoreRelational, Op: "rollback", Err: err}
	}
	return nil
}
