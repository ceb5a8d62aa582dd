// Package ir holds the value types shared by every geograph layer.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. Compilers produce Statement and
// SQLStatement values, store clients produce NodeRecord, RelationshipRecord
// and GeometryRow values, and every layer reports failures with the error
// taxonomy in errors.go.
//
// Key design constraints:
//   - Query text never contains caller-supplied values; values travel in
//     Params or Args only
//   - Params are keyed by allocated identifiers, so merging the bags of two
//     fragments of the same statement never collides
//   - Records carry store-internal identities as opaque strings
package ir
