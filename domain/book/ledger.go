package book

import "math/big"

// RowLedger carries the cumulative per-price-row counters a claim
// needs: how much has ever been placed at the row, how much of it was
// executed through the row's leaf, and how much left via cancellation.
// All counters are monotone; claims work on differences between an
// order's insertion-time snapshot and the live values.
type RowLedger struct {
	PlacedBase  *big.Int
	PlacedQuote *big.Int

	ExecutedBase  *big.Int
	ExecutedQuote *big.Int

	CancelledBase  *big.Int
	CancelledQuote *big.Int

	// NextCancelSeq is the next cancellation-ledger sequence number
	// handed out at this row. Starts at 1.
	NextCancelSeq uint64
}

func newRowLedger() *RowLedger {
	return &RowLedger{
		PlacedBase:     newInt(),
		PlacedQuote:    newInt(),
		ExecutedBase:   newInt(),
		ExecutedQuote:  newInt(),
		CancelledBase:  newInt(),
		CancelledQuote: newInt(),
		NextCancelSeq:  1,
	}
}

func (l *RowLedger) clone() *RowLedger {
	return &RowLedger{
		PlacedBase:     cloneInt(l.PlacedBase),
		PlacedQuote:    cloneInt(l.PlacedQuote),
		ExecutedBase:   cloneInt(l.ExecutedBase),
		ExecutedQuote:  cloneInt(l.ExecutedQuote),
		CancelledBase:  cloneInt(l.CancelledBase),
		CancelledQuote: cloneInt(l.CancelledQuote),
		NextCancelSeq:  l.NextCancelSeq,
	}
}

// FenKey addresses one node of a row's cancellation Fenwick tree.
type FenKey struct {
	Row uint32
	Idx uint64
}

// FenNode is one cancellation-ledger tree node: partial sums of the
// amounts cancelled at the row, indexed by cancel sequence number.
type FenNode struct {
	Base  *big.Int
	Quote *big.Int
}

func newFenNode() *FenNode {
	return &FenNode{Base: newInt(), Quote: newInt()}
}

func (n *FenNode) clone() *FenNode {
	return &FenNode{Base: cloneInt(n.Base), Quote: cloneInt(n.Quote)}
}

// fenCap bounds the Fenwick index walk. Sequence numbers are handed
// out per row and never reused, so 2^40 leaves headroom while keeping
// updates at 40 touched nodes.
const fenCap uint64 = 1 << 40

// fenAdd records a cancellation of (base, quote) under sequence seq.
func (tx *Tx) fenAdd(side Side, row uint32, seq uint64, base, quote *big.Int) {
	for i := seq; i <= fenCap; i += i & (^i + 1) {
		n := tx.fenNode(side, FenKey{Row: row, Idx: i})
		n.Base.Add(n.Base, base)
		n.Quote.Add(n.Quote, quote)
	}
}

// fenPrefix sums the amounts cancelled by sequence numbers <= seq.
func fenPrefix(v view, side Side, row uint32, seq uint64) (base, quote *big.Int) {
	base, quote = newInt(), newInt()
	for i := seq; i > 0; i -= i & (^i + 1) {
		n := v.fenPeekView(side, FenKey{Row: row, Idx: i})
		if n != nil {
			base.Add(base, n.Base)
			quote.Add(quote, n.Quote)
		}
	}
	return base, quote
}
