// Package fakestore provides in-memory graph and relational stores that
// record every statement and fail on demand.
package fakestore

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/geograph/internal/ir"
	"github.com/roach88/geograph/pkg/geograph"
)

// ErrTxFinished is returned when a fake transaction is used after Commit or
// Rollback.
var ErrTxFinished = errors.New("transaction already finished")

// Statement is one statement a fake store received.
type Statement struct {
	Text   string
	Params ir.Params // graph statements only
	Args   []any     // relational statements only
	InTx   bool
}

// Counts tallies transaction lifecycle calls on a fake store.
type Counts struct {
	Begun      int
	Committed  int
	RolledBack int
}

// GraphStore is an in-memory geograph.GraphStore that records every
// statement and answers with Respond.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type GraphStore struct {
	// Respond returns the records for a statement. Nil answers every
	// statement with no records.
	Respond func(text string, params ir.Params) ([]ir.Record, error)

	// Injected failures.
	BeginErr    error
	CommitErr   error
	RollbackErr error

	mu         sync.Mutex
	statements []Statement
	counts     Counts
}

// NewGraphStore creates an empty fake graph store.
func NewGraphStore() *GraphStore {
	return &GraphStore{}
}

// Run implements geograph.GraphStore.
func (s *GraphStore) Run(ctx context.Context, text string, params ir.Params) ([]ir.Record, error) {
	return s.run(ctx, text, params, false)
}

func (s *GraphStore) run(ctx context.Context, text string, params ir.Params, inTx bool) ([]ir.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.statements = append(s.statements, Statement{Text: text, Params: params, InTx: inTx})
	respond := s.Respond
	s.mu.Unlock()

	if respond == nil {
		return nil, nil
	}
	return respond(text, params)
}

// BeginTx implements geograph.GraphStore.
func (s *GraphStore) BeginTx(ctx context.Context) (geograph.GraphTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.counts.Begun++
	return &graphTx{store: s}, nil
}

// Statements returns every statement received so far.
func (s *GraphStore) Statements() []Statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Statement(nil), s.statements...)
}

// Counts returns the transaction tallies.
func (s *GraphStore) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

type graphTx struct {
	store *GraphStore
	done  bool
}

func (t *graphTx) Run(ctx context.Context, text string, params ir.Params) ([]ir.Record, error) {
	if t.done {
		return nil, ErrTxFinished
	}
	return t.store.run(ctx, text, params, true)
}

func (t *graphTx) Commit(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return ErrTxFinished
	}
	t.done = true
	if t.store.CommitErr != nil {
		return t.store.CommitErr
	}
	t.store.counts.Committed++
	return nil
}

func (t *graphTx) Rollback(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.store.counts.RolledBack++
	return t.store.RollbackErr
}

// RelationalStore is an in-memory geograph.RelationalStore that records
// every statement.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type RelationalStore struct {
	// Rows answers every Query. Nil answers with no rows.
	Rows func(sql string, args []any) ([]ir.GeometryRow, error)

	// ExecErr fails Exec for statements it returns an error for.
	ExecErr func(sql string) error

	// Injected failures.
	BeginErr    error
	CommitErr   error
	RollbackErr error

	mu         sync.Mutex
	statements []Statement
	counts     Counts
}

// NewRelationalStore creates an empty fake relational store.
func NewRelationalStore() *RelationalStore {
	return &RelationalStore{}
}

// Query implements geograph.RelationalStore.
func (s *RelationalStore) Query(ctx context.Context, sql string, args ...any) ([]ir.GeometryRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.statements = append(s.statements, Statement{Text: sql, Args: args})
	rows := s.Rows
	s.mu.Unlock()

	if rows == nil {
		return nil, nil
	}
	return rows(sql, args)
}

// BeginTx implements geograph.RelationalStore.
func (s *RelationalStore) BeginTx(ctx context.Context) (geograph.RelationalTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.BeginErr != nil {
		return nil, s.BeginErr
	}
	s.counts.Begun++
	return &relationalTx{store: s}, nil
}

// Statements returns every statement received so far.
func (s *RelationalStore) Statements() []Statement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Statement(nil), s.statements...)
}

// Counts returns the transaction tallies.
func (s *RelationalStore) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts
}

type relationalTx struct {
	store *RelationalStore
	done  bool
}

func (t *relationalTx) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return 0, ErrTxFinished
	}
	t.store.statements = append(t.store.statements, Statement{Text: sql, Args: args, InTx: true})
	if t.store.ExecErr != nil {
		if err := t.store.ExecErr(sql); err != nil {
			return 0, err
		}
	}
	return 1, nil
}

func (t *relationalTx) Commit(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return ErrTxFinished
	}
	t.done = true
	if t.store.CommitErr != nil {
		return t.store.CommitErr
	}
	t.store.counts.Committed++
	return nil
}

func (t *relationalTx) Rollback(context.Context) error {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.store.counts.RolledBack++
	return t.store.RollbackErr
}
