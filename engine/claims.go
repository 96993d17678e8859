package engine

import (
	"math/big"

	"fenrir/domain/book"
)

// Claim pays out an order's pending fill: quote for sell orders, base
// for buys. Claiming with nothing pending succeeds with zero amounts.
// Claims stay available under both pause flags; exits are never
// blocked.
func (e *Engine) Claim(pairID, orderID uint64) (*book.ClaimAmounts, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	check, err := g.st.FindClaimCheckNode(orderID)
	if err != nil {
		return nil, err
	}

	tx := g.st.Begin()
	amt, err := tx.Claim(orderID, check)
	if err != nil {
		return nil, err
	}
	o := g.st.Orders[orderID]

	d := newDeltaSet()
	payout := e.creditFill(d, g.st.Pair, o, amt.Base, amt.Quote)

	bals, err := e.balances.Apply(d)
	if err != nil {
		return nil, err
	}

	bookCS := tx.Commit()
	h := e.clock.Height()
	cs := &ChangeSet{Height: h, PairID: pairID, Book: bookCS, Balances: bals}
	if payout.Sign() > 0 {
		cs.Events = append(cs.Events, Event{
			V: 1, Type: EventClaimed, Pair: pairID, Height: h,
			Order: orderID, Owner: o.Owner,
			Base: amt.Base.String(), Quote: amt.Quote.String(),
		})
	}
	e.persist(cs)
	return amt, nil
}

// Cancel claims the order's pending fill, refunds the unfilled
// remainder and freezes the order.
func (e *Engine) Cancel(pairID, orderID uint64) (*book.CancelResult, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	check, err := g.st.FindClaimCheckNode(orderID)
	if err != nil {
		return nil, err
	}

	tx := g.st.Begin()
	res, err := tx.Cancel(orderID, check)
	if err != nil {
		return nil, err
	}

	p := g.st.Pair
	d := newDeltaSet()
	e.creditFill(d, p, res.Order, res.Claim.Base, res.Claim.Quote)
	// Refund leg: the order's own unfilled tokens come back.
	if res.Order.IsBuy {
		if res.CancelQuote.Sign() > 0 {
			d.add(res.Order.Owner, p.QuoteToken, res.CancelQuote)
		}
	} else {
		if res.CancelBase.Sign() > 0 {
			d.add(res.Order.Owner, p.BaseToken, res.CancelBase)
		}
	}

	bals, err := e.balances.Apply(d)
	if err != nil {
		return nil, err
	}

	bookCS := tx.Commit()
	h := e.clock.Height()
	e.persist(&ChangeSet{
		Height: h, PairID: pairID, Book: bookCS, Balances: bals,
		Events: []Event{{
			V: 1, Type: EventCancelled, Pair: pairID, Height: h,
			Order: orderID, Owner: res.Order.Owner,
			Base: res.CancelBase.String(), Quote: res.CancelQuote.String(),
		}},
	})
	return res, nil
}

// creditFill credits the payout side of a recognized fill: the tokens
// the order was buying. Returns the credited amount.
func (e *Engine) creditFill(d *deltaSet, p *book.Pair, o *book.Order, base, quote *big.Int) *big.Int {
	if o.IsBuy {
		if base.Sign() > 0 {
			d.add(o.Owner, p.BaseToken, base)
		}
		return base
	}
	if quote.Sign() > 0 {
		d.add(o.Owner, p.QuoteToken, quote)
	}
	return quote
}
