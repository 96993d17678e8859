package book

import (
	"math/big"

	"github.com/pkg/errors"
)

// ClaimAmounts is the currently payable part of an order's fill.
// For sell orders the payout token is quote; for buy orders it is
// base. The other component tracks how much of the order's own
// resting amount the fill recognizes.
type ClaimAmounts struct {
	Base  *big.Int
	Quote *big.Int
	// VirtuallyFilled is set when an ancestor generation stamp proved
	// the order consumed in full, regardless of the terminal node's
	// own bookkeeping.
	VirtuallyFilled bool
}

// FindNodeToCheckForClaim walks from the order's leaf toward the root
// and returns the first node whose generation stamp exceeds the
// order's insertion baseline. NoNode means the terminal-node
// bookkeeping alone is authoritative.
func FindNodeToCheckForClaim(v view, s Side, row uint32, baseline uint64) NodeIndex {
	w := v.pairRef().TreeWidth
	for c := int(w) - 1; c >= 0; c-- {
		idx := NodeIndexAt(w, uint8(c), row)
		if n := v.peekNode(s, idx); n != nil && n.Gen > baseline {
			return idx
		}
	}
	return NoNode
}

// claimable computes the order's unpaid fill. check is the node to
// test for virtual fill, normally the result of
// FindNodeToCheckForClaim; NoNode skips the ancestor test.
func claimable(v view, orderID uint64, check NodeIndex) (*ClaimAmounts, error) {
	o := v.peekOrder(orderID)
	if o == nil {
		return nil, ErrOrderNotFound
	}
	p := v.pairRef()
	if o.Status == StatusCancelled {
		return &ClaimAmounts{Base: newInt(), Quote: newInt()}, nil
	}
	side := o.Side()

	virt := false
	if check != NoNode {
		if err := CheckNodeIndex(p.TreeWidth, check); err != nil {
			return nil, err
		}
		if NodeIndexAt(p.TreeWidth, check.Column(), o.Price) != check {
			return nil, errors.Wrapf(ErrInternal, "node %s is not on the path of row %d", check, o.Price)
		}
		if n := v.peekNode(side, check); n != nil && n.Gen > o.GenAtInsert {
			virt = true
		}
	}

	out := &ClaimAmounts{VirtuallyFilled: virt}
	if virt {
		out.Base = new(big.Int).Sub(o.PlacedBase, o.ClaimedBase)
		out.Quote = new(big.Int).Sub(o.PlacedQuote, o.ClaimedQuote)
		if out.Base.Sign() < 0 || out.Quote.Sign() < 0 {
			return nil, errors.Wrapf(ErrInternal, "order %d claimed more than placed", o.ID)
		}
		return out, nil
	}

	rl := v.peekRow(side, o.Price)
	if rl == nil {
		rl = newRowLedger()
	}
	cancBase, cancQuote := fenPrefix(v, side, o.Price, o.CancelSeq-1)

	var filledBase, filledQuote *big.Int
	if o.IsBuy {
		// Fills consume the bid book quote-side first-in-first-out;
		// earlier cancellations count as consumed for ordering.
		filledQuote = new(big.Int).Add(rl.ExecutedQuote, cancQuote)
		filledQuote.Sub(filledQuote, o.PlacedQuoteAtInsert)
		clampInt(filledQuote, o.PlacedQuote)
		filledBase = clampInt(p.BaseOf(filledQuote, o.Price), o.PlacedBase)
	} else {
		filledBase = new(big.Int).Add(rl.ExecutedBase, cancBase)
		filledBase.Sub(filledBase, o.PlacedBaseAtInsert)
		clampInt(filledBase, o.PlacedBase)
		filledQuote = clampInt(p.QuoteOf(filledBase, o.Price), o.PlacedQuote)
	}

	out.Base = filledBase.Sub(filledBase, o.ClaimedBase)
	out.Quote = filledQuote.Sub(filledQuote, o.ClaimedQuote)
	if out.Base.Sign() < 0 {
		out.Base.SetInt64(0)
	}
	if out.Quote.Sign() < 0 {
		out.Quote.SetInt64(0)
	}
	return out, nil
}

// Claimable is the read-only form of GetClaimableAmount.
func (st *PairState) Claimable(orderID uint64, check NodeIndex) (*ClaimAmounts, error) {
	return claimable(st, orderID, check)
}

// FindClaimCheckNode locates the virtual-fill check node for an open
// order, or NoNode when no ancestor test is needed.
func (st *PairState) FindClaimCheckNode(orderID uint64) (NodeIndex, error) {
	o := st.peekOrder(orderID)
	if o == nil {
		return NoNode, ErrOrderNotFound
	}
	return FindNodeToCheckForClaim(st, o.Side(), o.Price, o.GenAtInsert), nil
}

// Claim pays out the order's pending fill and advances its claimed
// totals. Claiming with nothing pending is a no-op and returns zero
// amounts; claiming a cancelled order is an error.
func (tx *Tx) Claim(orderID uint64, check NodeIndex) (*ClaimAmounts, error) {
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
	return amt, nil
}
