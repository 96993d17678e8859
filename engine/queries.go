package engine

import (
	"math/big"
	"sort"

	"fenrir/domain/book"
)

// OrderPageSize is the fixed page length of ListOrders.
const OrderPageSize = 50

// GetOrder returns a copy of one order record.
func (e *Engine) GetOrder(pairID, orderID uint64) (*book.Order, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.GetOrder(orderID)
}

// ListOrders returns the owner's orders on the pair in placement
// order, fixed-size pages. An out-of-range page is empty, not an
// error.
func (e *Engine) ListOrders(pairID uint64, owner string, page int) ([]*book.Order, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	ids := g.userOrders[owner]
	lo := page * OrderPageSize
	if page < 0 || lo >= len(ids) {
		return nil, nil
	}
	hi := lo + OrderPageSize
	if hi > len(ids) {
		hi = len(ids)
	}
	out := make([]*book.Order, 0, hi-lo)
	for _, id := range ids[lo:hi] {
		o, err := g.st.GetOrder(id)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// GetPriceNode returns the effective node at idx on the given side.
func (e *Engine) GetPriceNode(pairID uint64, s book.Side, idx book.NodeIndex) (*book.PriceNode, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.PriceNodeAt(s, idx)
}

// GetAmountsAtPrice returns the liquidity resting at one price row.
func (e *Engine) GetAmountsAtPrice(pairID uint64, s book.Side, row uint32) (base, quote *big.Int, err error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.AmountsAtRow(s, row)
}

// GetClaimableAmount computes an order's unpaid fill against an
// explicit virtual-fill check node, without mutating anything.
func (e *Engine) GetClaimableAmount(pairID, orderID uint64, check book.NodeIndex) (*book.ClaimAmounts, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.st.Claimable(orderID, check)
}

// Claimable is the convenience form: it locates the check node
// itself.
func (e *Engine) Claimable(pairID, orderID uint64) (*book.ClaimAmounts, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	check, err := g.st.FindClaimCheckNode(orderID)
	if err != nil {
		return nil, err
	}
	return g.st.Claimable(orderID, check)
}

// GetPair returns a copy of the pair descriptor.
func (e *Engine) GetPair(pairID uint64) (*book.Pair, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	p := *g.st.Pair
	p.PriceTick = new(big.Int).Set(g.st.Pair.PriceTick)
	return &p, nil
}

// PoolState returns the pair's current pool reserves and fee.
func (e *Engine) PoolState(pairID uint64) (*PoolUpdate, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.poolUpdate(), nil
}

// Pairs returns the ids of all registered pairs in ascending order.
func (e *Engine) Pairs() []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]uint64, 0, len(e.pairs))
	for id := range e.pairs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ViewPair runs fn with the pair's state under a shared lock. fn must
// not retain the state or mutate it.
func (e *Engine) ViewPair(pairID uint64, fn func(st *book.PairState) error) error {
	g, err := e.guard(pairID)
	if err != nil {
		return err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.st)
}

// PriceAt returns the most recent AMM price snapshot at or below
// height, or nil when the pool had not traded by then.
func (e *Engine) PriceAt(pairID, height uint64) (*PricePoint, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	i := sort.Search(len(g.snaps), func(i int) bool { return g.snaps[i].Height > height })
	if i == 0 {
		return nil, nil
	}
	pp := g.snaps[i-1]
	return &PricePoint{Height: pp.Height, Price: new(big.Int).Set(pp.Price)}, nil
}
