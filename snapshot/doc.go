// Package snapshot exports a pair's resting orders to a gob file for
// operational backup and offline inspection. It is intentionally
// decoupled from matching and persistence: the pebble store remains
// the source of truth, snapshots are a convenience copy.
package snapshot
