package amm

import (
	"math/big"

	"github.com/pkg/errors"

	"fenrir/domain/book"
)

// FeeDenominator is the fee unit: a FeePPM of 2500 is a 0.25% fee.
const FeeDenominator = 1_000_000

// ErrTargetUnreachable means the pool cannot reach the requested
// price with any finite input. With positive reserves this indicates
// a corrupted pool or a zero target, not a taker mistake.
var ErrTargetUnreachable = errors.New("amm: target price unreachable")

// Pool is one pair's constant-product pool.
type Pool struct {
	BaseReserve  *big.Int
	QuoteReserve *big.Int
	FeePPM       uint32
}

// NewPool copies the reserves; the pool owns its integers.
func NewPool(base, quote *big.Int, feePPM uint32) *Pool {
	return &Pool{
		BaseReserve:  new(big.Int).Set(base),
		QuoteReserve: new(big.Int).Set(quote),
		FeePPM:       feePPM,
	}
}

// Clone returns an independent copy, used to snapshot the pool for the
// duration of one matching walk.
func (p *Pool) Clone() *Pool {
	return NewPool(p.BaseReserve, p.QuoteReserve, p.FeePPM)
}

// Funded reports whether both reserves are positive. An unfunded pool
// quotes no liquidity.
func (p *Pool) Funded() bool {
	return p.BaseReserve.Sign() > 0 && p.QuoteReserve.Sign() > 0
}

// Price is the pool's marginal price, quote per base, scaled by
// book.PriceScale.
func (p *Pool) Price() *big.Int {
	n := new(big.Int).Mul(p.QuoteReserve, book.PriceScale)
	return n.Div(n, p.BaseReserve)
}

// QuoteInUntilPrice returns the quote input that lifts the marginal
// price from the current state up to target. Zero when the pool is
// already at or past the target.
//
// With reserves (B, Q), fee f and input x, only (1-f)x joins the
// invariant while the full x joins the quote reserve, so the price
// after the swap is (Q+x)(Q+(1-f)x)*Scale/(B*Q). Setting that equal to
// target gives the quadratic solved here.
func (p *Pool) QuoteInUntilPrice(target *big.Int) (*big.Int, error) {
	return p.inUntilPrice(p.QuoteReserve, p.BaseReserve, target, false)
}

// BaseInUntilPrice returns the base input that pushes the marginal
// price down to target. Zero when the pool is already at or below it.
func (p *Pool) BaseInUntilPrice(target *big.Int) (*big.Int, error) {
	return p.inUntilPrice(p.BaseReserve, p.QuoteReserve, target, true)
}

// inUntilPrice solves (v+x)(v+(1-f)x) = v*w*k for x >= 0, where k is
// target/Scale when the input side is quote and Scale/target when it
// is base. Results are floored, so the pool lands at or just short of
// the target, never past it.
func (p *Pool) inUntilPrice(v, w, target *big.Int, inputIsBase bool) (*big.Int, error) {
	if target.Sign() <= 0 {
		return nil, ErrTargetUnreachable
	}
	if !p.Funded() {
		return big.NewInt(0), nil
	}

	// rhs = v*w*target/Scale (quote in) or v*w*Scale/target (base in).
	rhs := new(big.Int).Mul(v, w)
	if inputIsBase {
		rhs.Mul(rhs, book.PriceScale)
		rhs.Div(rhs, target)
	} else {
		rhs.Mul(rhs, target)
		rhs.Div(rhs, book.PriceScale)
	}

	den := big.NewInt(FeeDenominator)
	fee := big.NewInt(int64(p.FeePPM))

	// a = D-f, b = v*(2D-f), c = D*(v^2 - rhs), all multiplied through
	// by D to stay integral.
	a := new(big.Int).Sub(den, fee)
	b := new(big.Int).Sub(new(big.Int).Lsh(den, 1), fee)
	b.Mul(b, v)
	c := new(big.Int).Mul(v, v)
	c.Sub(c, rhs)
	c.Mul(c, den)

	if c.Sign() >= 0 {
		// Already at or past the target.
		return big.NewInt(0), nil
	}

	disc := new(big.Int).Mul(b, b)
	disc.Sub(disc, new(big.Int).Mul(new(big.Int).Lsh(a, 2), c))
	if disc.Sign() < 0 {
		return nil, errors.Wrap(ErrTargetUnreachable, "negative discriminant")
	}

	x := disc.Sqrt(disc)
	x.Sub(x, b)
	x.Div(x, new(big.Int).Lsh(a, 1))
	if x.Sign() < 0 {
		x.SetInt64(0)
	}
	return x, nil
}

// AmountOut quotes the output for a given input, fee deducted from
// the input side: out = w*(1-f)*x / (v + (1-f)*x).
func (p *Pool) AmountOut(in *big.Int, inputIsBase bool) *big.Int {
	v, w := p.QuoteReserve, p.BaseReserve
	if inputIsBase {
		v, w = p.BaseReserve, p.QuoteReserve
	}
	eff := new(big.Int).Mul(in, big.NewInt(FeeDenominator-int64(p.FeePPM)))
	num := new(big.Int).Mul(w, eff)
	denom := new(big.Int).Mul(v, big.NewInt(FeeDenominator))
	denom.Add(denom, eff)
	if denom.Sign() == 0 {
		return big.NewInt(0)
	}
	return num.Div(num, denom)
}

// Swap applies an executed trade to the reserves and returns the
// output amount. The caller verifies the output against the quote it
// acted on before committing.
func (p *Pool) Swap(in *big.Int, inputIsBase bool) *big.Int {
	out := p.AmountOut(in, inputIsBase)
	if inputIsBase {
		p.BaseReserve.Add(p.BaseReserve, in)
		p.QuoteReserve.Sub(p.QuoteReserve, out)
	} else {
		p.QuoteReserve.Add(p.QuoteReserve, in)
		p.BaseReserve.Sub(p.BaseReserve, out)
	}
	return out
}
