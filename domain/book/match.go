package book

import (
	"math/big"

	"github.com/pkg/errors"
)

// AmmCurve quotes the cumulative amount-in required to move an
// external constant-product pool's marginal price to a target.
// Implementations are pure over a snapshot of reserves taken when the
// enclosing operation started; the walk asks for monotonically
// further targets and tracks its own cumulative commitment.
type AmmCurve interface {
	// InUntilPrice returns the total input, in the taker's spending
	// token, from the pool's initial state until its price reaches
	// target. The result is clamped to >= 0; an unreachable target is
	// an error and aborts the whole match.
	InUntilPrice(target *big.Int) (*big.Int, error)
}

// MatchInput is one incoming taker order.
type MatchInput struct {
	IsBuy bool
	// Amount is quote for buys, base for sells.
	Amount *big.Int
	// Limit is the worst acceptable price row: an upper bound for
	// buys, a lower bound for sells.
	Limit uint32
	// Curve enables hybrid AMM matching when non-nil.
	Curve AmmCurve
	// Trace collects walk decisions when non-nil.
	Trace *Trace
}

// MatchResult reports what one walk consumed.
type MatchResult struct {
	// Liquidity consumed from the book: base handed over and quote
	// handed over, across all consumed nodes.
	BookBase  *big.Int
	BookQuote *big.Int
	// AmmIn is the taker-side amount committed to the AMM leg. The
	// engine executes and verifies the swap.
	AmmIn *big.Int
	// Remaining is the unconsumed part of the incoming amount.
	Remaining *big.Int
	// Terminal is the leaf that took the final partial consumption.
	Terminal NodeIndex
}

// Trace records the walk column by column, for debugging and tests.
type Trace struct {
	Steps []TraceStep
}

type TraceStep struct {
	Column       uint8
	Path         NodeIndex
	ConsumedAway bool
	AmmIn        *big.Int
}

// Match consumes resting liquidity against an incoming order.
//
// The walk descends from column 0 along the limit row's path. At each
// column the child on the better-priced side (away from the limit) is
// consumed whole when the remaining amount exceeds its liquidity plus
// the AMM contribution up to the child's boundary price; otherwise
// the walk enters it, after which every row in the current subtree is
// within the limit and the walk keeps taking the better-priced child.
// The terminal leaf takes the final partial consumption and its row
// ledger records the executed amounts; a reverse pass then subtracts
// everything consumed from the path ancestors, stamping a fresh
// generation on any node left empty.
func (tx *Tx) Match(in MatchInput) (*MatchResult, error) {
	p := tx.pairRef()
	w := p.TreeWidth
	if !p.ValidRow(in.Limit) {
		return nil, ErrInvalidPrice
	}
	if !isPositive(in.Amount) {
		return nil, ErrInvalidAmount
	}

	rest := SideOf(!in.IsBuy)
	res := &MatchResult{
		BookBase:  newInt(),
		BookQuote: newInt(),
		AmmIn:     newInt(),
		Remaining: cloneInt(in.Amount),
		Terminal:  NoNode,
	}

	type step struct {
		path      NodeIndex
		awayBase  *big.Int // nil when nothing was consumed sideways
		awayQuote *big.Int
	}
	steps := make([]step, 0, w)

	lo, hi := uint32(1), p.Rows()
	running := uint64(0)
	onLimit := true

	// resolve pulls a node into the overlay, reviving it when a
	// higher ancestor stamp says its amounts are stale.
	resolve := func(c uint8, boundary uint32) *PriceNode {
		n := tx.node(rest, MakeNodeIndex(c, boundary))
		if n.Gen < running {
			n.BaseAmount.SetInt64(0)
			n.QuoteTotal.SetInt64(0)
			n.Gen = running
			if c == w-1 {
				tx.reviveRow(rest, boundary)
			}
		}
		return n
	}

	// ammUntil quotes the additional AMM input available before the
	// pool price crosses the given row.
	ammUntil := func(row uint32) (*big.Int, error) {
		if in.Curve == nil {
			return newInt(), nil
		}
		total, err := in.Curve.InUntilPrice(p.PriceOf(row))
		if err != nil {
			return nil, err
		}
		avail := new(big.Int).Sub(total, res.AmmIn)
		if avail.Sign() < 0 {
			avail.SetInt64(0)
		}
		return avail, nil
	}

	for c := uint8(0); c < w; c++ {
		m := lo + (hi-lo)/2
		var awayB, awayQ *big.Int
		consumed := false

		if in.IsBuy {
			if onLimit && in.Limit <= m {
				// Upper half is above the buyer's limit.
				hi = m
			} else {
				away := resolve(c, m)
				amm, err := ammUntil(m)
				if err != nil {
					return nil, err
				}
				need := new(big.Int).Add(away.QuoteTotal, amm)
				if res.Remaining.Cmp(need) > 0 {
					res.Remaining.Sub(res.Remaining, need)
					res.AmmIn.Add(res.AmmIn, amm)
					if !away.IsEmpty() {
						awayB = cloneInt(away.BaseAmount)
						awayQ = cloneInt(away.QuoteTotal)
						res.BookBase.Add(res.BookBase, awayB)
						res.BookQuote.Add(res.BookQuote, awayQ)
						away.BaseAmount.SetInt64(0)
						away.QuoteTotal.SetInt64(0)
						away.Gen = tx.bumpGen(rest)
					}
					consumed = true
					lo = m + 1
				} else {
					hi = m
					onLimit = false
				}
			}
		} else {
			if onLimit && in.Limit > m {
				// Lower half is below the seller's limit.
				lo = m + 1
			} else {
				away := resolve(c, hi)
				amm, err := ammUntil(m + 1)
				if err != nil {
					return nil, err
				}
				need := new(big.Int).Add(away.BaseAmount, amm)
				if res.Remaining.Cmp(need) > 0 {
					res.Remaining.Sub(res.Remaining, need)
					res.AmmIn.Add(res.AmmIn, amm)
					if !away.IsEmpty() {
						awayB = cloneInt(away.BaseAmount)
						awayQ = cloneInt(away.QuoteTotal)
						res.BookBase.Add(res.BookBase, awayB)
						res.BookQuote.Add(res.BookQuote, awayQ)
						away.BaseAmount.SetInt64(0)
						away.QuoteTotal.SetInt64(0)
						away.Gen = tx.bumpGen(rest)
					}
					consumed = true
					hi = m
				} else {
					lo = m + 1
					onLimit = false
				}
			}
		}

		child := resolve(c, hi)
		if child.Gen > running {
			running = child.Gen
		}
		steps = append(steps, step{path: MakeNodeIndex(c, hi), awayBase: awayB, awayQuote: awayQ})
		if in.Trace != nil {
			in.Trace.Steps = append(in.Trace.Steps, TraceStep{
				Column:       c,
				Path:         MakeNodeIndex(c, hi),
				ConsumedAway: consumed,
				AmmIn:        cloneInt(res.AmmIn),
			})
		}
	}

	if lo != hi {
		return nil, errors.Wrap(ErrInternal, "match walk did not converge to a leaf")
	}

	// Terminal column: AMM leg up to the leaf price first, then the
	// final partial consumption of the leaf itself.
	amm, err := ammUntil(lo)
	if err != nil {
		return nil, err
	}
	ammTake := minInt(res.Remaining, amm)
	res.Remaining.Sub(res.Remaining, ammTake)
	res.AmmIn.Add(res.AmmIn, ammTake)

	leaf := tx.node(rest, MakeNodeIndex(w-1, lo))
	termB, termQ := tx.consumeLeaf(rest, leaf, lo, res.Remaining, in.IsBuy)
	res.BookBase.Add(res.BookBase, termB)
	res.BookQuote.Add(res.BookQuote, termQ)
	if in.IsBuy {
		res.Remaining.Sub(res.Remaining, termQ)
	} else {
		res.Remaining.Sub(res.Remaining, termB)
	}
	res.Terminal = MakeNodeIndex(w-1, lo)

	// Reverse pass: push the consumed totals back up the path.
	cumB, cumQ := cloneInt(termB), cloneInt(termQ)
	for c := int(w) - 2; c >= 0; c-- {
		if steps[c+1].awayBase != nil {
			cumB.Add(cumB, steps[c+1].awayBase)
			cumQ.Add(cumQ, steps[c+1].awayQuote)
		}
		if isZero(cumB) && isZero(cumQ) {
			continue
		}
		n := tx.node(rest, steps[c].path)
		n.BaseAmount.Sub(n.BaseAmount, cumB)
		n.QuoteTotal.Sub(n.QuoteTotal, cumQ)
		if n.BaseAmount.Sign() < 0 || n.QuoteTotal.Sign() < 0 {
			return nil, errors.Wrapf(ErrInternal, "negative aggregate at %s after match", steps[c].path)
		}
		if n.IsEmpty() {
			n.Gen = tx.bumpGen(rest)
		}
	}

	return res, nil
}

// consumeLeaf takes as much of remaining as the leaf holds, keeping
// the node's base and quote in exact lockstep: partial fills are
// floored to a whole base amount and charged its exact quote value,
// so conversion dust stays with the taker.
func (tx *Tx) consumeLeaf(rest Side, leaf *PriceNode, row uint32, remaining *big.Int, isBuy bool) (termB, termQ *big.Int) {
	p := tx.pairRef()
	if isBuy {
		if remaining.Cmp(leaf.QuoteTotal) >= 0 {
			termB = cloneInt(leaf.BaseAmount)
			termQ = cloneInt(leaf.QuoteTotal)
		} else {
			termB = p.BaseOf(remaining, row)
			if termB.Cmp(leaf.BaseAmount) > 0 {
				termB.Set(leaf.BaseAmount)
			}
			termQ = p.QuoteOf(termB, row)
			if termQ.Cmp(leaf.QuoteTotal) > 0 {
				termQ.Set(leaf.QuoteTotal)
			}
		}
	} else {
		if remaining.Cmp(leaf.BaseAmount) >= 0 {
			termB = cloneInt(leaf.BaseAmount)
			termQ = cloneInt(leaf.QuoteTotal)
		} else {
			termB = cloneInt(remaining)
			termQ = p.QuoteOf(termB, row)
			if termQ.Cmp(leaf.QuoteTotal) > 0 {
				termQ.Set(leaf.QuoteTotal)
			}
		}
	}
	if isZero(termB) && isZero(termQ) {
		return termB, termQ
	}
	leaf.BaseAmount.Sub(leaf.BaseAmount, termB)
	leaf.QuoteTotal.Sub(leaf.QuoteTotal, termQ)
	rl := tx.rowLedger(rest, row)
	rl.ExecutedBase.Add(rl.ExecutedBase, termB)
	rl.ExecutedQuote.Add(rl.ExecutedQuote, termQ)
	if leaf.IsEmpty() {
		leaf.Gen = tx.bumpGen(rest)
	}
	return termB, termQ
}
