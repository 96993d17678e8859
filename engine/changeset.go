package engine

import (
	"math/big"

	"fenrir/domain/book"
)

// Event is one outbox record describing a committed operation. Events
// are written by the persistence backend in the same batch as the
// state they describe and published asynchronously by the
// broadcaster.
type Event struct {
	V      int    `json:"v"`
	Type   string `json:"type"`
	Pair   uint64 `json:"pair"`
	Height uint64 `json:"height"`
	Order  uint64 `json:"order,omitempty"`
	Owner  string `json:"owner,omitempty"`
	Base   string `json:"base,omitempty"`
	Quote  string `json:"quote,omitempty"`
	AmmIn  string `json:"amm_in,omitempty"`
	Price  string `json:"price,omitempty"`
}

// Event types.
const (
	EventPairCreated = "pair_created"
	EventDeposit     = "deposit"
	EventWithdraw    = "withdraw"
	EventTrade       = "trade"
	EventPlaced      = "placed"
	EventClaimed     = "claimed"
	EventCancelled   = "cancelled"
)

// PricePoint is one AMM price snapshot.
type PricePoint struct {
	Height uint64
	Price  *big.Int
}

// PoolUpdate carries post-operation pool reserves.
type PoolUpdate struct {
	BaseReserve  *big.Int
	QuoteReserve *big.Int
	FeePPM       uint32
}

// ChangeSet is everything one committed operation changed. The
// backend persists it in a single atomic batch.
type ChangeSet struct {
	Height uint64
	PairID uint64

	// Book is the domain dirty set, nil for balance-only operations.
	Book *book.ChangeSet

	// NewPair is set when the operation created the pair.
	NewPair *book.Pair

	Balances []BalanceEntry
	Pool     *PoolUpdate
	Snapshot *PricePoint
	Events   []Event
}

// Backend persists committed change sets. Implementations must apply
// each change set atomically; the engine's in-memory state is
// authoritative and the backend trails it.
type Backend interface {
	Apply(cs *ChangeSet) error
}

// NopBackend discards change sets; useful embedded and in tests.
type NopBackend struct{}

func (NopBackend) Apply(*ChangeSet) error { return nil }
