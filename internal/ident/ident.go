// Package ident allocates short variable names for compiled statements.
//
// An Allocator is scoped to exactly one compiled statement. Compilers build
// a fresh one per call; sharing an Allocator across statements (or across
// goroutines) is a bug because two statements would then reuse names.
package ident

import "strings"

// Alphabet is the symbol set for both digits of an identifier.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Prefix starts every allocated identifier so names never begin with a
// symbol that the query language would treat specially.
const Prefix = "v"

// Capacity is the number of distinct identifiers one Allocator can produce
// before it wraps.
const Capacity = len(Alphabet) * len(Alphabet)

// Allocator produces identifiers vaa, vba, vca, ... vZa, vab, vbb, ...
//
// The low digit is written first and carries into the high digit. After
// Capacity identifiers the counter wraps to vaa and Wrapped reports true.
// Not safe for concurrent use.
type Allocator struct {
	low     int
	high    int
	wrapped bool
}

// New returns an Allocator positioned at its first identifier.
func New() *Allocator {
	return &Allocator{}
}

// Next returns the current identifier and advances the counter.
func (a *Allocator) Next() string {
	id := Prefix + string(Alphabet[a.low]) + string(Alphabet[a.high])

	a.low++
	if a.low == len(Alphabet) {
		a.low = 0
		a.high++
		if a.high == len(Alphabet) {
			a.high = 0
			a.wrapped = true
		}
	}
	return id
}

// Wrapped reports whether the allocator has exhausted its identifier space.
// Identifiers returned after wrapping repeat earlier ones.
func (a *Allocator) Wrapped() bool {
	return a.wrapped
}

// Reserved reports whether name has the shape of an allocated identifier.
// Caller-chosen variable names must not be reserved, or they could collide
// with a name the allocator hands out later in the same statement.
func Reserved(name string) bool {
	if len(name) != len(Prefix)+2 || !strings.HasPrefix(name, Prefix) {
		return false
	}
	return strings.IndexByte(Alphabet, name[1]) >= 0 &&
		strings.IndexByte(Alphabet, name[2]) >= 0
}
