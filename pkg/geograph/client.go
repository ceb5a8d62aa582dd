package geograph

import (
	"context"
	"log/slog"
	"time"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/internal/querycypher"
	"github.com/roach88/geograph/internal/querysql"
	"github.com/roach88/geograph/internal/reconstruct"
)

// GraphStore runs compiled statements against the graph store.
type GraphStore interface {
	// Run executes a read statement outside any transaction.
	Run(ctx context.Context, text string, params ir.Params) ([]ir.Record, error)

	// BeginTx opens a write transaction. Implementations must use a fresh
	// session per transaction.
	BeginTx(ctx context.Context) (GraphTx, error)
}

// GraphTx is an open graph-store transaction.
type GraphTx interface {
	Run(ctx context.Context, text string, params ir.Params) ([]ir.Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// RelationalStore runs compiled statements against the geometry store.
type RelationalStore interface {
	// Query runs a geometry select.
	Query(ctx context.Context, sql string, args ...any) ([]ir.GeometryRow, error)

	// BeginTx opens a transaction.
	BeginTx(ctx context.Context) (RelationalTx, error)
}

// RelationalTx is an open geometry-store transaction.
type RelationalTx interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UUIDGenerator produces uuids for newly created nodes.
type UUIDGenerator interface {
	Generate() string
}

// Query selects root nodes by label and filter and expands relation paths.
type Query = querycypher.Query

// QueryFromMap builds a Query from its loosely typed JSON form
// ({"label": ..., "filter": ..., "relations": [...]}).
func QueryFromMap(m map[string]any) (Query, error) {
	return querycypher.QueryFromMap(m)
}

// SpatialQuery selects geometry rows by label, key and spatial relation.
type SpatialQuery = querysql.SpatialQuery

// SpatialOp relates stored geometries to a query geometry.
type SpatialOp = querysql.SpatialOp

// Spatial operators.
const (
	Intersects = querysql.Intersects
	Within     = querysql.Within
	Contains   = querysql.Contains
	DWithin    = querysql.DWithin
)

// Default round-trip bounds.
const (
	DefaultGraphTimeout      = 30 * time.Second
	DefaultRelationalTimeout = 30 * time.Second
)

// Client is the save/find/delete API over both stores.
//
// A Client is safe for concurrent use: all compile state is per call.
type Client struct {
	graph      GraphStore
	relational RelationalStore // nil when geometries are not persisted

	cypher *querycypher.Compiler
	sql    *querysql.SQLCompiler

	logger            *slog.Logger
	graphTimeout      time.Duration
	relationalTimeout time.Duration
	includeLabel      bool

	uuids UUIDGenerator
	srid  int
}

// Option configures a Client.
type Option func(*Client)

// WithRelationalStore enables geometry persistence.
func WithRelationalStore(r RelationalStore) Option {
	return func(c *Client) {
		c.relational = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// WithTimeouts bounds every graph and relational round trip. A
// non-positive value leaves that store unbounded.
func WithTimeouts(graph, relational time.Duration) Option {
	return func(c *Client) {
		c.graphTimeout = graph
		c.relationalTimeout = relational
	}
}

// WithUUIDGenerator replaces the random v4 generator used for new nodes.
func WithUUIDGenerator(g UUIDGenerator) Option {
	return func(c *Client) {
		c.uuids = g
	}
}

// WithSRID sets the spatial reference id geometries are stored in.
func WithSRID(srid int) Option {
	return func(c *Client) {
		c.srid = srid
	}
}

// WithLabels keeps each object's entity label as "_label" in find results.
func WithLabels() Option {
	return func(c *Client) {
		c.includeLabel = true
	}
}

// New creates a Client over a graph store.
func New(graph GraphStore, opts ...Option) *Client {
	c := &Client{
		graph:             graph,
		logger:            slog.Default(),
		graphTimeout:      DefaultGraphTimeout,
		relationalTimeout: DefaultRelationalTimeout,
		srid:              querysql.DefaultSRID,
	}
	for _, opt := range opts {
		opt(c)
	}

	var copts []querycypher.Option
	if c.uuids != nil {
		copts = append(copts, querycypher.WithUUIDGenerator(c.uuids))
	}
	c.cypher = querycypher.New(copts...)
	c.sql = querysql.NewSQLCompiler(querysql.WithSRID(c.srid))
	return c
}

func (c *Client) graphCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.graphTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.graphTimeout)
}

func (c *Client) relationalCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.relationalTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.relationalTimeout)
}

func (c *Client) reconstructOptions() []reconstruct.Option {
	if c.includeLabel {
		return []reconstruct.Option{reconstruct.IncludeLabel()}
	}
	return nil
}
