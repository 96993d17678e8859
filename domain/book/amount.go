package book

import "math/big"

// PriceScale is the fixed-point denominator for prices: a price of
// 1.0 quote per base is represented as 10^18.
var PriceScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

var bigZero = new(big.Int)

func newInt() *big.Int { return new(big.Int) }

func cloneInt(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

func isPositive(x *big.Int) bool { return x != nil && x.Sign() > 0 }

func isZero(x *big.Int) bool { return x == nil || x.Sign() == 0 }

// minInt returns a fresh copy of the smaller of a and b.
func minInt(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return cloneInt(a)
	}
	return cloneInt(b)
}

// clampInt bounds x into [0, hi] in place and returns it.
func clampInt(x, hi *big.Int) *big.Int {
	if x.Sign() < 0 {
		x.SetInt64(0)
	}
	if x.Cmp(hi) > 0 {
		x.Set(hi)
	}
	return x
}
