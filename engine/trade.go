package engine

import (
	"math/big"

	"github.com/sirupsen/logrus"

	"fenrir/domain/amm"
	"fenrir/domain/book"
)

// TradeResult reports one executed trade operation.
type TradeResult struct {
	// OrderID is the resting remainder's order id, zero when nothing
	// rested.
	OrderID uint64

	// Book fill and AMM legs, in scaled integer amounts.
	BookBase  *big.Int
	BookQuote *big.Int
	AmmIn     *big.Int
	AmmOut    *big.Int

	// Fee is the taker fee retained from the received leg.
	Fee *big.Int

	// Remaining is the unexecuted part: rested for limit orders,
	// refunded for market orders.
	Remaining *big.Int

	Height uint64
}

// PlaceLimit executes an order against the book and the pool up to
// the limit row and rests the remainder at it. amount is quote for
// buys, base for sells; the spending token is debited in full and the
// received tokens, minus the taker fee, are credited as they are
// claimed or, for the immediate fill, at once.
func (e *Engine) PlaceLimit(pairID uint64, owner string, isBuy bool, amount *big.Int, limit uint32, userRef uint64) (*TradeResult, error) {
	return e.trade(pairID, owner, isBuy, amount, limit, true, userRef)
}

// PlaceMarket executes as far as the limit row allows and refunds the
// remainder instead of resting it.
func (e *Engine) PlaceMarket(pairID uint64, owner string, isBuy bool, amount *big.Int, limit uint32, userRef uint64) (*TradeResult, error) {
	return e.trade(pairID, owner, isBuy, amount, limit, false, userRef)
}

func (e *Engine) trade(pairID uint64, owner string, isBuy bool, amount *big.Int, limit uint32, rest bool, userRef uint64) (*TradeResult, error) {
	g, err := e.guard(pairID)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.st.Pair
	if p.TradingPaused {
		return nil, ErrTradingPaused
	}

	tx := g.st.Begin()

	var curve book.AmmCurve
	if c := amm.CurveFor(g.pool, isBuy); c != nil {
		curve = c
	}
	res, err := tx.Match(book.MatchInput{
		IsBuy:  isBuy,
		Amount: amount,
		Limit:  limit,
		Curve:  curve,
	})
	if err != nil {
		return nil, err
	}

	spendToken, recvToken := p.QuoteToken, p.BaseToken
	if !isBuy {
		spendToken, recvToken = p.BaseToken, p.QuoteToken
	}

	// AMM leg: apply to a clone so an abort below leaves the live pool
	// untouched; verify any external executor against our own quote.
	pool := g.pool
	ammOut := new(big.Int)
	if res.AmmIn.Sign() > 0 {
		pool = g.pool.Clone()
		ammOut = pool.Swap(res.AmmIn, !isBuy)
		if e.swapper != nil {
			// An external swap cannot be unwound: refuse it when the
			// spend-leg debit is bound to fail at commit.
			if e.balances.Balance(owner, spendToken).Cmp(amount) < 0 {
				return nil, ErrInsufficientBalance
			}
			got, err := e.swapper.Swap(pairID, res.AmmIn, !isBuy)
			if err != nil {
				return nil, err
			}
			if got.Cmp(ammOut) != 0 {
				return nil, ErrSwapMismatch
			}
		}
	}

	// Received leg plus taker fee.
	received := new(big.Int).Add(res.BookBase, ammOut)
	if !isBuy {
		received = new(big.Int).Add(res.BookQuote, ammOut)
	}
	fee := e.takerFee(received)
	net := new(big.Int).Sub(received, fee)

	d := newDeltaSet()
	d.sub(owner, spendToken, amount)
	if net.Sign() > 0 {
		d.add(owner, recvToken, net)
	}
	if fee.Sign() > 0 {
		d.add(e.feeSink, recvToken, fee)
	}

	// Remainder: rest it for limit orders, refund it for market. A
	// remainder whose derived counterpart leg floors to zero cannot
	// ever pay its owner back and is refunded as well.
	var order *book.Order
	if res.Remaining.Sign() > 0 {
		restBase, restQuote := res.Remaining, p.QuoteOf(res.Remaining, limit)
		if isBuy {
			restBase, restQuote = p.BaseOf(res.Remaining, limit), res.Remaining
		}
		if rest && restBase.Sign() > 0 && restQuote.Sign() > 0 {
			order, err = tx.Place(book.PlacementInfo{
				Owner: owner,
				IsBuy: isBuy,
				Price: limit,

				TotalBase:  totalBase(isBuy, amount),
				TotalQuote: totalQuote(isBuy, amount),

				AmmBase:  ammLegBase(isBuy, res.AmmIn, ammOut),
				AmmQuote: ammLegQuote(isBuy, res.AmmIn, ammOut),

				PreMatchedBase:  res.BookBase,
				PreMatchedQuote: res.BookQuote,

				FeeAmount: fee,
				CreatedAt: e.now(),
				UserRef:   userRef,
			}, restBase, restQuote)
			if err != nil {
				return nil, err
			}
		} else {
			d.add(owner, spendToken, res.Remaining)
		}
	}

	bals, err := e.balances.Apply(d)
	if err != nil {
		return nil, err
	}

	// Commit point: domain state, pool, snapshots, index.
	bookCS := tx.Commit()
	h := e.clock.Height()
	cs := &ChangeSet{Height: h, PairID: pairID, Book: bookCS, Balances: bals}

	if res.AmmIn.Sign() > 0 {
		g.pool = pool
		cs.Pool = g.poolUpdate()
		pp := PricePoint{Height: h, Price: pool.Price()}
		g.snaps = append(g.snaps, pp)
		cs.Snapshot = &PricePoint{Height: h, Price: new(big.Int).Set(pp.Price)}
	}
	if order != nil {
		g.userOrders[owner] = append(g.userOrders[owner], order.ID)
	}

	if received.Sign() > 0 || res.AmmIn.Sign() > 0 {
		cs.Events = append(cs.Events, Event{
			V: 1, Type: EventTrade, Pair: pairID, Height: h, Owner: owner,
			Base:  res.BookBase.String(),
			Quote: res.BookQuote.String(),
			AmmIn: res.AmmIn.String(),
		})
	}
	if order != nil {
		cs.Events = append(cs.Events, Event{
			V: 1, Type: EventPlaced, Pair: pairID, Height: h, Owner: owner,
			Order: order.ID,
			Base:  order.PlacedBase.String(),
			Quote: order.PlacedQuote.String(),
		})
	}
	e.persist(cs)

	out := &TradeResult{
		BookBase:  res.BookBase,
		BookQuote: res.BookQuote,
		AmmIn:     res.AmmIn,
		AmmOut:    ammOut,
		Fee:       fee,
		Remaining: res.Remaining,
		Height:    h,
	}
	if order != nil {
		out.OrderID = order.ID
	}
	e.log.WithFields(logrus.Fields{
		"pair":   pairID,
		"owner":  owner,
		"buy":    isBuy,
		"limit":  limit,
		"order":  out.OrderID,
		"height": h,
	}).Debug("trade executed")
	return out, nil
}

func (e *Engine) takerFee(received *big.Int) *big.Int {
	if e.feePPM == 0 || received.Sign() <= 0 {
		return new(big.Int)
	}
	fee := new(big.Int).Mul(received, big.NewInt(int64(e.feePPM)))
	return fee.Div(fee, big.NewInt(amm.FeeDenominator))
}

func totalBase(isBuy bool, amount *big.Int) *big.Int {
	if isBuy {
		return new(big.Int)
	}
	return amount
}

func totalQuote(isBuy bool, amount *big.Int) *big.Int {
	if isBuy {
		return amount
	}
	return new(big.Int)
}

func ammLegBase(isBuy bool, in, out *big.Int) *big.Int {
	if isBuy {
		return out
	}
	return in
}

func ammLegQuote(isBuy bool, in, out *big.Int) *big.Int {
	if isBuy {
		return in
	}
	return out
}
