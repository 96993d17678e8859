package book

import "math/big"

// OrderStatus is the order's lifecycle state. There is no transition
// out of Cancelled; "fully claimed" is derived from the amounts.
type OrderStatus uint8

const (
	StatusOpen OrderStatus = iota
	StatusCancelled
)

func (s OrderStatus) String() string {
	if s == StatusCancelled {
		return "cancelled"
	}
	return "open"
}

// Order is the persistent record of a resting order: the snapshot
// taken at insertion time plus the mutable claimed/cancelled running
// totals. Orders are never deleted and stay queryable after they
// reach a terminal state.
type Order struct {
	ID    uint64
	Pair  uint64
	Owner string
	IsBuy bool

	// Price is the limit price row, 1-indexed.
	Price uint32

	// Originally submitted amounts, before any immediate AMM or book
	// match at submission time.
	TotalBase  *big.Int
	TotalQuote *big.Int

	// The remainder that actually rested in the book.
	PlacedBase  *big.Int
	PlacedQuote *big.Int

	// Accounting splits for the immediate fill at submission time.
	AmmBase         *big.Int
	AmmQuote        *big.Int
	PreMatchedBase  *big.Int
	PreMatchedQuote *big.Int

	// GenAtInsert is the leaf's generation stamp at insertion: the
	// baseline for later virtual-fill checks.
	GenAtInsert uint64

	// Cumulative placed-at-this-row counters at insertion: the
	// baseline for computing this order's share of later fills.
	PlacedBaseAtInsert  *big.Int
	PlacedQuoteAtInsert *big.Int

	// CancelSeq is this order's sequence number in the per-row
	// cancellation ledger.
	CancelSeq uint64

	ClaimedBase    *big.Int
	ClaimedQuote   *big.Int
	CancelledBase  *big.Int
	CancelledQuote *big.Int

	FeeAmount *big.Int
	CreatedAt int64

	// UserRef is an opaque client-supplied tag.
	UserRef uint64

	Status OrderStatus
}

// Side returns the book side the order rests on.
func (o *Order) Side() Side { return SideOf(o.IsBuy) }

// Resting returns the order's own amount denominated in the side's
// native token: base for sells, quote for buys.
func (o *Order) Resting() *big.Int {
	if o.IsBuy {
		return o.PlacedQuote
	}
	return o.PlacedBase
}

// FullyClaimed reports whether the whole placed amount has been
// recognized as filled and paid out.
func (o *Order) FullyClaimed() bool {
	if o.IsBuy {
		return o.ClaimedQuote.Cmp(o.PlacedQuote) >= 0
	}
	return o.ClaimedBase.Cmp(o.PlacedBase) >= 0
}

func (o *Order) clone() *Order {
	cp := *o
	cp.TotalBase = cloneInt(o.TotalBase)
	cp.TotalQuote = cloneInt(o.TotalQuote)
	cp.PlacedBase = cloneInt(o.PlacedBase)
	cp.PlacedQuote = cloneInt(o.PlacedQuote)
	cp.AmmBase = cloneInt(o.AmmBase)
	cp.AmmQuote = cloneInt(o.AmmQuote)
	cp.PreMatchedBase = cloneInt(o.PreMatchedBase)
	cp.PreMatchedQuote = cloneInt(o.PreMatchedQuote)
	cp.PlacedBaseAtInsert = cloneInt(o.PlacedBaseAtInsert)
	cp.PlacedQuoteAtInsert = cloneInt(o.PlacedQuoteAtInsert)
	cp.ClaimedBase = cloneInt(o.ClaimedBase)
	cp.ClaimedQuote = cloneInt(o.ClaimedQuote)
	cp.CancelledBase = cloneInt(o.CancelledBase)
	cp.CancelledQuote = cloneInt(o.CancelledQuote)
	cp.FeeAmount = cloneInt(o.FeeAmount)
	return &cp
}
