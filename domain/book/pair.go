package book

import "math/big"

// Side selects one of the two books of a pair.
type Side uint8

const (
	// SideSell is the ask book: resting sell orders, denominated in base.
	SideSell Side = iota
	// SideBuy is the bid book: resting buy orders, denominated in quote.
	SideBuy
)

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// SideOf maps an order direction onto the book the order rests in.
func SideOf(isBuy bool) Side {
	if isBuy {
		return SideBuy
	}
	return SideSell
}

// Pair describes one trading pair. Everything except the token
// decimals is immutable after creation; decimals lock permanently on
// the pair's first recorded use.
type Pair struct {
	ID         uint64
	BaseToken  string
	QuoteToken string

	// TreeWidth is W: the pair has 2^W discrete price rows and its
	// trees have W columns.
	TreeWidth uint8

	// PriceTick is the fixed-point price (PriceScale denominator) of
	// price row 1; row r trades at r*PriceTick.
	PriceTick *big.Int

	BaseDecimals   uint8
	QuoteDecimals  uint8
	DecimalsLocked bool

	TradingPaused    bool
	ManagementPaused bool

	CreatedAt int64
}

// Rows returns the number of discrete price rows, 2^W.
func (p *Pair) Rows() uint32 { return 1 << p.TreeWidth }

// ValidRow reports whether r is a usable price row (1-indexed).
func (p *Pair) ValidRow(r uint32) bool { return r >= 1 && r <= p.Rows() }

// PriceOf returns the fixed-point price of row r.
func (p *Pair) PriceOf(r uint32) *big.Int {
	return new(big.Int).Mul(big.NewInt(int64(r)), p.PriceTick)
}

// QuoteOf converts a base amount to its quote value at row r,
// rounding down.
func (p *Pair) QuoteOf(base *big.Int, r uint32) *big.Int {
	q := new(big.Int).Mul(base, p.PriceOf(r))
	return q.Quo(q, PriceScale)
}

// BaseOf converts a quote amount to its base value at row r,
// rounding down.
func (p *Pair) BaseOf(quote *big.Int, r uint32) *big.Int {
	b := new(big.Int).Mul(quote, PriceScale)
	return b.Quo(b, p.PriceOf(r))
}

func (p *Pair) clone() *Pair {
	cp := *p
	cp.PriceTick = cloneInt(p.PriceTick)
	return &cp
}
