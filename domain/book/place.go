package book

import (
	"math/big"

	"github.com/pkg/errors"
)

// PlacementInfo carries everything the order record needs beyond the
// resting amounts themselves: the submission-time totals, the
// immediate-fill accounting splits, and the client metadata.
type PlacementInfo struct {
	Owner string
	IsBuy bool
	Price uint32

	TotalBase  *big.Int
	TotalQuote *big.Int

	AmmBase  *big.Int
	AmmQuote *big.Int

	PreMatchedBase  *big.Int
	PreMatchedQuote *big.Int

	FeeAmount *big.Int
	CreatedAt int64
	UserRef   uint64
}

// Place rests (base, quote) at info.Price on the order's own side and
// records the order with its insertion-time snapshot: the leaf's
// generation stamp, the row's cumulative placed counters before this
// order, and a fresh cancellation sequence number. Both amounts must
// be positive: a one-sided rest could be consumed without ever paying
// its owner.
func (tx *Tx) Place(info PlacementInfo, base, quote *big.Int) (*Order, error) {
	p := tx.pairRef()
	if !p.ValidRow(info.Price) {
		return nil, ErrInvalidPrice
	}
	if !isPositive(base) || !isPositive(quote) {
		return nil, ErrInvalidAmount
	}

	side := SideOf(info.IsBuy)
	leafGen, err := tx.addResting(side, info.Price, base, quote)
	if err != nil {
		return nil, err
	}

	rl := tx.rowLedger(side, info.Price)
	o := &Order{
		ID:    tx.nextOrderID(),
		Pair:  p.ID,
		Owner: info.Owner,
		IsBuy: info.IsBuy,
		Price: info.Price,

		TotalBase:  cloneInt(info.TotalBase),
		TotalQuote: cloneInt(info.TotalQuote),

		PlacedBase:  cloneInt(base),
		PlacedQuote: cloneInt(quote),

		AmmBase:         cloneInt(info.AmmBase),
		AmmQuote:        cloneInt(info.AmmQuote),
		PreMatchedBase:  cloneInt(info.PreMatchedBase),
		PreMatchedQuote: cloneInt(info.PreMatchedQuote),

		GenAtInsert:         leafGen,
		PlacedBaseAtInsert:  cloneInt(rl.PlacedBase),
		PlacedQuoteAtInsert: cloneInt(rl.PlacedQuote),
		CancelSeq:           rl.NextCancelSeq,

		ClaimedBase:    newInt(),
		ClaimedQuote:   newInt(),
		CancelledBase:  newInt(),
		CancelledQuote: newInt(),

		FeeAmount: cloneInt(info.FeeAmount),
		CreatedAt: info.CreatedAt,
		UserRef:   info.UserRef,
		Status:    StatusOpen,
	}
	rl.NextCancelSeq++
	rl.PlacedBase.Add(rl.PlacedBase, base)
	rl.PlacedQuote.Add(rl.PlacedQuote, quote)

	tx.putOrder(o)
	if !p.DecimalsLocked {
		tx.mutatePair().DecimalsLocked = true
	}
	return o, nil
}

// addResting adds (base, quote) to every node on the root-to-leaf
// path of row, reviving stale nodes on the way. Returns the leaf's
// generation stamp after the write.
func (tx *Tx) addResting(s Side, row uint32, base, quote *big.Int) (uint64, error) {
	w := tx.pairRef().TreeWidth
	running := uint64(0)
	for c := uint8(0); c < w; c++ {
		idx := NodeIndexAt(w, c, row)
		n := tx.node(s, idx)
		if n.Gen < running {
			n.BaseAmount.SetInt64(0)
			n.QuoteTotal.SetInt64(0)
			n.Gen = running
			if c == w-1 {
				tx.reviveRow(s, row)
			}
		}
		if n.Gen > running {
			running = n.Gen
		}
		n.BaseAmount.Add(n.BaseAmount, base)
		n.QuoteTotal.Add(n.QuoteTotal, quote)
	}
	return running, nil
}

// reviveRow resets a row's executed counters after its leaf turned
// out to be lazily emptied: everything that was resting there is
// accounted as consumed, except what had already left via
// cancellation.
func (tx *Tx) reviveRow(s Side, row uint32) {
	rl := tx.rowLedger(s, row)
	rl.ExecutedBase.Sub(rl.PlacedBase, rl.CancelledBase)
	rl.ExecutedQuote.Sub(rl.PlacedQuote, rl.CancelledQuote)
	if rl.ExecutedBase.Sign() < 0 || rl.ExecutedQuote.Sign() < 0 {
		// cancelled can never exceed placed
		panic(errors.Wrapf(ErrInternal, "row %d ledger underflow on revive", row))
	}
}
