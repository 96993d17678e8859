package snapshot

import (
	"math/big"
	"time"

	"fenrir/domain/book"
)

type Snapshot struct {
	Pair    uint64
	Height  uint64
	Created time.Time
	Orders  []OrderEntry
}

// OrderEntry is a gob-friendly copy of one open order.
type OrderEntry struct {
	ID    uint64
	Owner string
	IsBuy bool
	Price uint32

	PlacedBase  *big.Int
	PlacedQuote *big.Int

	ClaimedBase  *big.Int
	ClaimedQuote *big.Int

	CreatedAt int64
	UserRef   uint64
}

func entryOf(o *book.Order) OrderEntry {
	return OrderEntry{
		ID:           o.ID,
		Owner:        o.Owner,
		IsBuy:        o.IsBuy,
		Price:        o.Price,
		PlacedBase:   o.PlacedBase,
		PlacedQuote:  o.PlacedQuote,
		ClaimedBase:  o.ClaimedBase,
		ClaimedQuote: o.ClaimedQuote,
		CreatedAt:    o.CreatedAt,
		UserRef:      o.UserRef,
	}
}
