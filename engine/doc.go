// Package engine is the ONLY write entry point into the system.
//
// All coordination between:
//   - domain (book, amm)
//   - balances
//   - persistence backend
//   - event outbox
//
// happens here. Writes to one pair are serialized behind the pair's
// guard; queries run shared; different pairs proceed in parallel.
// Every operation is all-or-nothing: domain mutations stage in a
// book.Tx and balances apply atomically, so a failing step leaves no
// trace.
package engine
