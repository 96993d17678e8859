// Package book implements the price-tree order book: a perfect binary
// tree over a discretized price axis where each node carries the
// aggregate base and quote liquidity resting at or under it. Full
// consumption of a subtree is signalled lazily through generation
// counters instead of zeroing descendants, so matching, placement,
// claim and cancel all run in O(W) for a tree of 2^W price rows.
//
// The package is pure domain logic: it owns the pair state, the walk
// algorithms and the reconciliation rules, and it performs no I/O.
// Every mutating operation runs inside a Tx and either commits as a
// whole or leaves the state untouched.
package book
