// Package testutil provides deterministic generators for tests. In-memory
// store fakes live in the fakestore subpackage.
package testutil

import (
	"fmt"
	"sync"
)

// SequenceUUIDGenerator returns v4-shaped uuids numbered 1, 2, 3, ...
//
//	00000000-0000-4000-8000-000000000001
//	00000000-0000-4000-8000-000000000002
//
// The same scenario compiled with a fresh SequenceUUIDGenerator produces
// byte-identical statements, which golden snapshots rely on.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type SequenceUUIDGenerator struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceUUIDGenerator creates a generator whose first uuid ends in 1.
func NewSequenceUUIDGenerator() *SequenceUUIDGenerator {
	return &SequenceUUIDGenerator{}
}

// Generate returns the next uuid in the sequence.
func (g *SequenceUUIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return SequenceUUID(g.seq)
}

// Reset restarts the sequence so a scenario can be replayed.
func (g *SequenceUUIDGenerator) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}

// SequenceUUID returns the n-th uuid a SequenceUUIDGenerator produces.
func SequenceUUID(n int64) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
}
