package book

import "math/big"

// effectiveNode resolves a node against its lineage: if any ancestor
// carries a higher generation stamp the node's amounts are stale and
// it reads as zero. Returns a copy; never mutates state.
func effectiveNode(v view, s Side, idx NodeIndex) *PriceNode {
	w := v.pairRef().TreeWidth
	row := idx.Row()
	running := uint64(0)
	for c := uint8(0); c < idx.Column(); c++ {
		if n := v.peekNode(s, NodeIndexAt(w, c, row)); n != nil && n.Gen > running {
			running = n.Gen
		}
	}
	n := v.peekNode(s, idx)
	if n == nil || n.Gen < running {
		return zeroNode(running)
	}
	return n.clone()
}

// PriceNodeAt returns the effective node at idx: the stored amounts
// with lazy emptying already applied.
func (st *PairState) PriceNodeAt(s Side, idx NodeIndex) (*PriceNode, error) {
	if err := CheckNodeIndex(st.Pair.TreeWidth, idx); err != nil {
		return nil, err
	}
	return effectiveNode(st, s, idx), nil
}

// AmountsAtRow returns the liquidity resting at one price row.
func (st *PairState) AmountsAtRow(s Side, row uint32) (base, quote *big.Int, err error) {
	if !st.Pair.ValidRow(row) {
		return nil, nil, ErrInvalidPrice
	}
	n := effectiveNode(st, s, NodeIndexAt(st.Pair.TreeWidth, st.Pair.TreeWidth-1, row))
	return n.BaseAmount, n.QuoteTotal, nil
}

// GetOrder returns a copy of the order record.
func (st *PairState) GetOrder(id uint64) (*Order, error) {
	o := st.Orders[id]
	if o == nil {
		return nil, ErrOrderNotFound
	}
	return o.clone(), nil
}

// CancelledBefore returns the cumulative amounts cancelled at the row
// by orders with a cancel sequence number strictly below seq.
func (st *PairState) CancelledBefore(s Side, row uint32, seq uint64) (base, quote *big.Int) {
	if seq == 0 {
		return newInt(), newInt()
	}
	return fenPrefix(st, s, row, seq-1)
}
