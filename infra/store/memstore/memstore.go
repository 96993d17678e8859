// Package memstore is the in-memory persistence backend: it applies
// change sets to plain maps under one lock. It backs tests and
// embedded deployments that do not need durability.
package memstore

import (
	"math/big"
	"sync"

	"fenrir/domain/book"
	"fenrir/engine"
)

type nodeKey struct {
	Pair uint64
	Side book.Side
	Idx  book.NodeIndex
}

type rowKey struct {
	Pair uint64
	Side book.Side
	Row  uint32
}

type fenKey struct {
	Pair uint64
	Side book.Side
	Key  book.FenKey
}

type orderKey struct {
	Pair uint64
	ID   uint64
}

type balKey struct {
	Owner string
	Token string
}

// Store holds the latest persisted value of every record kind.
type Store struct {
	mu sync.Mutex

	pairs     map[uint64]*book.Pair
	gens      map[uint64][2]uint64
	nextOrder map[uint64]uint64
	nodes     map[nodeKey]*book.PriceNode
	rows      map[rowKey]*book.RowLedger
	fens      map[fenKey]*book.FenNode
	orders    map[orderKey]*book.Order
	balances  map[balKey]*big.Int
	pools     map[uint64]*engine.PoolUpdate
	snaps     map[uint64][]engine.PricePoint
	events    []engine.Event

	lastHeight uint64
}

func New() *Store {
	return &Store{
		pairs:     make(map[uint64]*book.Pair),
		gens:      make(map[uint64][2]uint64),
		nextOrder: make(map[uint64]uint64),
		nodes:     make(map[nodeKey]*book.PriceNode),
		rows:      make(map[rowKey]*book.RowLedger),
		fens:      make(map[fenKey]*book.FenNode),
		orders:    make(map[orderKey]*book.Order),
		balances:  make(map[balKey]*big.Int),
		pools:     make(map[uint64]*engine.PoolUpdate),
		snaps:     make(map[uint64][]engine.PricePoint),
	}
}

var _ engine.Backend = (*Store)(nil)

// Apply implements engine.Backend.
func (s *Store) Apply(cs *engine.ChangeSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cs.Height > s.lastHeight {
		s.lastHeight = cs.Height
	}
	if cs.NewPair != nil {
		s.pairs[cs.NewPair.ID] = cs.NewPair
	}
	if b := cs.Book; b != nil {
		if b.Pair != nil {
			s.pairs[b.PairID] = b.Pair
		}
		for side := 0; side < 2; side++ {
			if b.Gen[side] != nil {
				g := s.gens[b.PairID]
				g[side] = *b.Gen[side]
				s.gens[b.PairID] = g
			}
			for idx, n := range b.Nodes[side] {
				s.nodes[nodeKey{b.PairID, book.Side(side), idx}] = n
			}
			for row, l := range b.Rows[side] {
				s.rows[rowKey{b.PairID, book.Side(side), row}] = l
			}
			for k, n := range b.Fen[side] {
				s.fens[fenKey{b.PairID, book.Side(side), k}] = n
			}
		}
		if b.NextOrder != nil {
			s.nextOrder[b.PairID] = *b.NextOrder
		}
		for _, o := range b.Orders {
			s.orders[orderKey{b.PairID, o.ID}] = o
		}
	}
	for _, e := range cs.Balances {
		s.balances[balKey{e.Owner, e.Token}] = e.Amount
	}
	if cs.Pool != nil {
		s.pools[cs.PairID] = cs.Pool
	}
	if cs.Snapshot != nil {
		s.snaps[cs.PairID] = append(s.snaps[cs.PairID], *cs.Snapshot)
	}
	s.events = append(s.events, cs.Events...)
	return nil
}

// -------------------- inspection --------------------

// Events returns all persisted outbox events in append order.
func (s *Store) Events() []engine.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]engine.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Order returns the latest persisted record of one order.
func (s *Store) Order(pairID, orderID uint64) *book.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orders[orderKey{pairID, orderID}]
}

// Balance returns the latest persisted balance, nil when never
// written.
func (s *Store) Balance(owner, token string) *big.Int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[balKey{owner, token}]
}

// LastHeight returns the highest applied height.
func (s *Store) LastHeight() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastHeight
}
