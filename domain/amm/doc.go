// Package amm models the external constant-product pool the matching
// walk trades against. The pool quotes how much taker input moves its
// marginal price to a target row boundary, which is the only question
// the walk asks; actual swap execution and reserve updates happen in
// the engine once the walk has committed to a total.
//
// All arithmetic is integer big.Int. Prices use the same fixed-point
// scale as the book: price = quoteReserve * PriceScale / baseReserve.
// Fees are parts-per-million taken from the input side.
package amm
