package ws

import (
	"encoding/json"

	"github.com/pkg/errors"

	"fenrir/domain/book"
	"fenrir/engine"
)

func decode(raw json.RawMessage, into interface{}) error {
	if err := json.Unmarshal(raw, into); err != nil {
		return errors.Wrap(errBadAmount, "malformed request data")
	}
	return nil
}

func (s *Server) handleCreatePair(raw json.RawMessage) (interface{}, error) {
	var req CreatePairRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if !validName(req.BaseToken) || !validName(req.QuoteToken) {
		return nil, engine.ErrUnknownToken
	}
	tick, err := parsePrice(req.PriceTick)
	if err != nil {
		return nil, err
	}
	id, err := s.engine.CreatePair(engine.PairParams{
		BaseToken:  req.BaseToken,
		QuoteToken: req.QuoteToken,
		TreeWidth:  req.TreeWidth,
		PriceTick:  tick,
		PoolFeePPM: req.PoolFeePPM,
	})
	if err != nil {
		return nil, err
	}
	return CreatePairResponse{Pair: id}, nil
}

func (s *Server) handleMoveBalance(raw json.RawMessage, deposit bool) (interface{}, error) {
	var req MoveBalanceRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if !validName(req.Owner) {
		return nil, errors.Wrap(errBadAmount, "owner")
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	dec, err := tokenDecimals(p, req.Token)
	if err != nil {
		return nil, err
	}
	amount, err := parseAmount(req.Amount, dec)
	if err != nil {
		return nil, err
	}
	if deposit {
		err = s.engine.Deposit(req.Pair, req.Owner, req.Token, amount)
	} else {
		err = s.engine.Withdraw(req.Pair, req.Owner, req.Token, amount)
	}
	if err != nil {
		return nil, err
	}
	return BalanceResponse{
		Owner:   req.Owner,
		Token:   req.Token,
		Balance: formatAmount(s.engine.Balances().Balance(req.Owner, req.Token), dec),
	}, nil
}

func (s *Server) handleSetDecimals(raw json.RawMessage) (interface{}, error) {
	var req SetDecimalsRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if err := s.engine.SetPairDecimals(req.Pair, req.BaseDecimals, req.QuoteDecimals); err != nil {
		return nil, err
	}
	return SetDecimalsResponse{
		Pair:          req.Pair,
		BaseDecimals:  req.BaseDecimals,
		QuoteDecimals: req.QuoteDecimals,
	}, nil
}

func (s *Server) handleFundPool(raw json.RawMessage) (interface{}, error) {
	var req FundPoolRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if !validName(req.Funder) {
		return nil, errors.Wrap(errBadAmount, "funder")
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	base, err := parseAmount(req.Base, p.BaseDecimals)
	if err != nil {
		return nil, err
	}
	quote, err := parseAmount(req.Quote, p.QuoteDecimals)
	if err != nil {
		return nil, err
	}
	if err := s.engine.FundPool(req.Pair, req.Funder, base, quote); err != nil {
		return nil, err
	}
	return s.poolResponse(req.Pair, p)
}

func (s *Server) handleTrade(raw json.RawMessage, limit bool) (interface{}, error) {
	var req TradeRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	if !validName(req.Owner) {
		return nil, errors.Wrap(errBadAmount, "owner")
	}
	isBuy, err := parseSide(req.Side)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	dec := p.BaseDecimals
	if isBuy {
		dec = p.QuoteDecimals
	}
	amount, err := parseAmount(req.Amount, dec)
	if err != nil {
		return nil, err
	}

	row := req.PriceRow
	if row == 0 && !limit {
		// "Any price" market order: bound at the worst row.
		if isBuy {
			row = p.Rows()
		} else {
			row = 1
		}
	}

	var res *engine.TradeResult
	if limit {
		res, err = s.engine.PlaceLimit(req.Pair, req.Owner, isBuy, amount, row, req.UserRef)
	} else {
		res, err = s.engine.PlaceMarket(req.Pair, req.Owner, isBuy, amount, row, req.UserRef)
	}
	if err != nil {
		return nil, err
	}

	remDec := dec
	return TradeResponse{
		Order:     res.OrderID,
		BookBase:  formatAmount(res.BookBase, p.BaseDecimals),
		BookQuote: formatAmount(res.BookQuote, p.QuoteDecimals),
		AmmIn:     formatAmount(res.AmmIn, dec),
		AmmOut:    formatAmount(res.AmmOut, otherDecimals(p, dec)),
		Fee:       formatAmount(res.Fee, otherDecimals(p, dec)),
		Remaining: formatAmount(res.Remaining, remDec),
		Height:    res.Height,
	}, nil
}

func (s *Server) handleClaim(raw json.RawMessage) (interface{}, error) {
	var req OrderRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	amt, err := s.engine.Claim(req.Pair, req.Order)
	if err != nil {
		return nil, err
	}
	return claimResponse(amt, p), nil
}

func (s *Server) handleCancel(raw json.RawMessage) (interface{}, error) {
	var req OrderRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Cancel(req.Pair, req.Order)
	if err != nil {
		return nil, err
	}
	return CancelResponse{
		Claim:       claimResponse(res.Claim, p),
		CancelBase:  formatAmount(res.CancelBase, p.BaseDecimals),
		CancelQuote: formatAmount(res.CancelQuote, p.QuoteDecimals),
	}, nil
}

func (s *Server) handleGetOrder(raw json.RawMessage) (interface{}, error) {
	var req OrderRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	o, err := s.engine.GetOrder(req.Pair, req.Order)
	if err != nil {
		return nil, err
	}
	return orderPayload(o, p), nil
}

func (s *Server) handleListOrders(raw json.RawMessage) (interface{}, error) {
	var req ListOrdersRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	orders, err := s.engine.ListOrders(req.Pair, req.Owner, req.Page)
	if err != nil {
		return nil, err
	}
	out := ListOrdersResponse{Orders: make([]OrderPayload, 0, len(orders))}
	for _, o := range orders {
		out.Orders = append(out.Orders, orderPayload(o, p))
	}
	return out, nil
}

func (s *Server) handleAmounts(raw json.RawMessage) (interface{}, error) {
	var req AmountsRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	side, err := sideOf(req.Side)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	base, quote, err := s.engine.GetAmountsAtPrice(req.Pair, side, req.Row)
	if err != nil {
		return nil, err
	}
	return AmountsResponse{
		Base:  formatAmount(base, p.BaseDecimals),
		Quote: formatAmount(quote, p.QuoteDecimals),
	}, nil
}

func (s *Server) handlePriceNode(raw json.RawMessage) (interface{}, error) {
	var req PriceNodeRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	side, err := sideOf(req.Side)
	if err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	n, err := s.engine.GetPriceNode(req.Pair, side, book.MakeNodeIndex(req.Column, req.Row))
	if err != nil {
		return nil, err
	}
	return PriceNodeResponse{
		Base:  formatAmount(n.BaseAmount, p.BaseDecimals),
		Quote: formatAmount(n.QuoteTotal, p.QuoteDecimals),
		Gen:   n.Gen,
	}, nil
}

func (s *Server) handleClaimable(raw json.RawMessage) (interface{}, error) {
	var req OrderRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	amt, err := s.engine.Claimable(req.Pair, req.Order)
	if err != nil {
		return nil, err
	}
	return claimResponse(amt, p), nil
}

func (s *Server) handleBalance(raw json.RawMessage) (interface{}, error) {
	var req BalanceRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	// Balances are not pair-scoped, so no decimals apply here; the
	// amount is reported in raw integer units.
	return BalanceResponse{
		Owner:   req.Owner,
		Token:   req.Token,
		Balance: s.engine.Balances().Balance(req.Owner, req.Token).String(),
	}, nil
}

func (s *Server) handlePool(raw json.RawMessage) (interface{}, error) {
	var req PoolRequest
	if err := decode(raw, &req); err != nil {
		return nil, err
	}
	p, err := s.engine.GetPair(req.Pair)
	if err != nil {
		return nil, err
	}
	return s.poolResponse(req.Pair, p)
}

func (s *Server) poolResponse(pairID uint64, p *book.Pair) (interface{}, error) {
	pool, err := s.engine.PoolState(pairID)
	if err != nil {
		return nil, err
	}
	return PoolResponse{
		BaseReserve:  formatAmount(pool.BaseReserve, p.BaseDecimals),
		QuoteReserve: formatAmount(pool.QuoteReserve, p.QuoteDecimals),
		FeePPM:       pool.FeePPM,
	}, nil
}

func claimResponse(amt *book.ClaimAmounts, p *book.Pair) ClaimResponse {
	return ClaimResponse{
		Base:            formatAmount(amt.Base, p.BaseDecimals),
		Quote:           formatAmount(amt.Quote, p.QuoteDecimals),
		VirtuallyFilled: amt.VirtuallyFilled,
	}
}

func tokenDecimals(p *book.Pair, token string) (uint8, error) {
	switch token {
	case p.BaseToken:
		return p.BaseDecimals, nil
	case p.QuoteToken:
		return p.QuoteDecimals, nil
	default:
		return 0, engine.ErrUnknownToken
	}
}

func otherDecimals(p *book.Pair, dec uint8) uint8 {
	if dec == p.BaseDecimals {
		return p.QuoteDecimals
	}
	return p.BaseDecimals
}
