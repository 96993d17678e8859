package book

import (
	"math/big"

	"github.com/pkg/errors"
)

// CancelResult reports the two legs of a cancellation: the implicit
// claim of whatever had already filled, and the frozen remainder
// refunded to the owner.
type CancelResult struct {
	Order       *Order
	Claim       *ClaimAmounts
	CancelBase  *big.Int
	CancelQuote *big.Int
}

// Cancel terminates an open order: it claims the fill accrued so far,
// removes the remainder from every node on the order's price path,
// records the remainder in the row's cancellation ledger under the
// order's cancel sequence number, and freezes the order. check is the
// virtual-fill test node, as for Claim.
func (tx *Tx) Cancel(orderID uint64, check NodeIndex) (*CancelResult, error) {
	o := tx.order(orderID)
	if o == nil {
		return nil, ErrOrderNotFound
	}
	if o.Status == StatusCancelled {
		return nil, ErrOrderCancelled
	}

	amt, err := claimable(tx, orderID, check)
	if err != nil {
		return nil, err
	}
	o.ClaimedBase.Add(o.ClaimedBase, amt.Base)
	o.ClaimedQuote.Add(o.ClaimedQuote, amt.Quote)

	cancelBase := new(big.Int).Sub(o.PlacedBase, o.ClaimedBase)
	cancelQuote := new(big.Int).Sub(o.PlacedQuote, o.ClaimedQuote)
	if cancelBase.Sign() < 0 || cancelQuote.Sign() < 0 {
		return nil, errors.Wrapf(ErrInternal, "order %d claimed more than placed", o.ID)
	}

	side := o.Side()
	if isPositive(cancelBase) || isPositive(cancelQuote) {
		if err := tx.removeResting(side, o.Price, cancelBase, cancelQuote); err != nil {
			return nil, err
		}
		tx.fenAdd(side, o.Price, o.CancelSeq, cancelBase, cancelQuote)
		rl := tx.rowLedger(side, o.Price)
		rl.CancelledBase.Add(rl.CancelledBase, cancelBase)
		rl.CancelledQuote.Add(rl.CancelledQuote, cancelQuote)
	}

	o.CancelledBase = cloneInt(cancelBase)
	o.CancelledQuote = cloneInt(cancelQuote)
	o.Status = StatusCancelled

	return &CancelResult{
		Order:       o,
		Claim:       amt,
		CancelBase:  cancelBase,
		CancelQuote: cancelQuote,
	}, nil
}

// removeResting subtracts (base, quote) from every node on the
// root-to-leaf path of row. Unlike matching this needs no generation
// stamps: the subtraction covers exactly the cancelling order's own
// resting remainder, which a non-virtually-filled order still has on
// every ancestor.
func (tx *Tx) removeResting(s Side, row uint32, base, quote *big.Int) error {
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
		n.BaseAmount.Sub(n.BaseAmount, base)
		n.QuoteTotal.Sub(n.QuoteTotal, quote)
		if n.BaseAmount.Sign() < 0 || n.QuoteTotal.Sign() < 0 {
			return errors.Wrapf(ErrInternal, "negative aggregate at %s after cancel", idx)
		}
	}
	return nil
}
