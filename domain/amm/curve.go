package amm

import (
	"math/big"

	"fenrir/domain/book"
)

// Curve adapts a pool snapshot to the matching walk's question: the
// cumulative input required to move the price to a target. It is pure
// over the snapshot; the walk asks for strictly further targets and
// does its own cumulative bookkeeping.
type Curve struct {
	pool  *Pool
	isBuy bool
}

var _ book.AmmCurve = (*Curve)(nil)

// CurveFor snapshots the pool for one matching walk. A nil or
// unfunded pool yields a nil curve, which the walk treats as "no AMM
// leg".
func CurveFor(p *Pool, isBuy bool) *Curve {
	if p == nil || !p.Funded() {
		return nil
	}
	return &Curve{pool: p.Clone(), isBuy: isBuy}
}

// InUntilPrice implements book.AmmCurve.
func (c *Curve) InUntilPrice(target *big.Int) (*big.Int, error) {
	if c.isBuy {
		return c.pool.QuoteInUntilPrice(target)
	}
	return c.pool.BaseInUntilPrice(target)
}
