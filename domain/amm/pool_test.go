package amm

import (
	"errors"
	"math"
	"math/big"
	"testing"

	"fenrir/domain/book"
)

func price(hundredths int64) *big.Int {
	p := new(big.Int).Mul(big.NewInt(hundredths), book.PriceScale)
	return p.Div(p, big.NewInt(100))
}

// floatInUntil solves (v+x)(v+(1-f)x) = v*w*k with float64 arithmetic,
// an independent reference for the integer quadratic.
func floatInUntil(v, w, k, fee float64) float64 {
	a := 1 - fee
	b := v * (2 - fee)
	c := v*v - v*w*k
	if c >= 0 {
		return 0
	}
	return (-b + math.Sqrt(b*b-4*a*c)) / (2 * a)
}

func TestQuoteInUntilPriceMatchesFloatReference(t *testing.T) {
	pool := NewPool(big.NewInt(1_000_000), big.NewInt(2_000_000), 2500)

	for _, hundredths := range []int64{201, 210, 250, 300, 400} {
		target := price(hundredths)
		got, err := pool.QuoteInUntilPrice(target)
		if err != nil {
			t.Fatalf("target %d/100: %v", hundredths, err)
		}
		want := floatInUntil(2_000_000, 1_000_000, float64(hundredths)/100, 0.0025)
		if diff := math.Abs(float64(got.Int64()) - want); diff > 2 {
			t.Errorf("target %d/100: in = %v, reference %.0f", hundredths, got, want)
		}

		// Applying the quoted input must land at or just under the
		// target, never past it.
		c := pool.Clone()
		c.Swap(got, false)
		if c.Price().Cmp(target) > 0 {
			t.Errorf("target %d/100: price %v overshot", hundredths, c.Price())
		}
	}
}

func TestBaseInUntilPriceMatchesFloatReference(t *testing.T) {
	pool := NewPool(big.NewInt(1_000_000), big.NewInt(2_000_000), 2500)

	for _, hundredths := range []int64{199, 180, 150, 100} {
		target := price(hundredths)
		got, err := pool.BaseInUntilPrice(target)
		if err != nil {
			t.Fatalf("target %d/100: %v", hundredths, err)
		}
		want := floatInUntil(1_000_000, 2_000_000, 100.0/float64(hundredths), 0.0025)
		if diff := math.Abs(float64(got.Int64()) - want); diff > 2 {
			t.Errorf("target %d/100: in = %v, reference %.0f", hundredths, got, want)
		}

		c := pool.Clone()
		c.Swap(got, true)
		if c.Price().Cmp(target) < 0 {
			t.Errorf("target %d/100: price %v overshot downward", hundredths, c.Price())
		}
	}
}

func TestInUntilPricePastTargetIsZero(t *testing.T) {
	pool := NewPool(big.NewInt(1_000_000), big.NewInt(2_000_000), 2500)

	// The pool already trades at 2.00; no input is needed to reach a
	// target on the wrong side.
	if got, err := pool.QuoteInUntilPrice(price(150)); err != nil || got.Sign() != 0 {
		t.Errorf("quote in until 1.50 = %v, %v, want 0", got, err)
	}
	if got, err := pool.BaseInUntilPrice(price(250)); err != nil || got.Sign() != 0 {
		t.Errorf("base in until 2.50 = %v, %v, want 0", got, err)
	}
}

func TestInUntilPriceRejectsZeroTarget(t *testing.T) {
	pool := NewPool(big.NewInt(1000), big.NewInt(2000), 0)
	if _, err := pool.QuoteInUntilPrice(new(big.Int)); !errors.Is(err, ErrTargetUnreachable) {
		t.Errorf("zero target: %v, want ErrTargetUnreachable", err)
	}
}

func TestUnfundedPoolQuotesNothing(t *testing.T) {
	pool := NewPool(new(big.Int), new(big.Int), 0)
	got, err := pool.QuoteInUntilPrice(price(300))
	if err != nil || got.Sign() != 0 {
		t.Errorf("unfunded pool quotes %v, %v, want 0", got, err)
	}
}

func TestAmountOut(t *testing.T) {
	pool := NewPool(big.NewInt(1000), big.NewInt(2000), 0)
	if got := pool.AmountOut(big.NewInt(1000), true); got.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("fee-free out = %v, want 1000", got)
	}

	// A 50% fee halves the effective input: 2000*500/(1000+500).
	pool = NewPool(big.NewInt(1000), big.NewInt(2000), 500_000)
	if got := pool.AmountOut(big.NewInt(1000), true); got.Cmp(big.NewInt(666)) != 0 {
		t.Errorf("half-fee out = %v, want 666", got)
	}
}

func TestSwapMovesReserves(t *testing.T) {
	pool := NewPool(big.NewInt(1000), big.NewInt(2000), 0)
	out := pool.Swap(big.NewInt(1000), true)
	if out.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("out = %v, want 1000", out)
	}
	if pool.BaseReserve.Cmp(big.NewInt(2000)) != 0 || pool.QuoteReserve.Cmp(big.NewInt(1000)) != 0 {
		t.Errorf("reserves = %v/%v, want 2000/1000", pool.BaseReserve, pool.QuoteReserve)
	}
	if pool.Price().Cmp(new(big.Int).Div(book.PriceScale, big.NewInt(2))) != 0 {
		t.Errorf("price = %v, want 0.5", pool.Price())
	}
}

func TestCurveForSnapshotsThePool(t *testing.T) {
	if CurveFor(nil, true) != nil {
		t.Error("nil pool must yield a nil curve")
	}
	if CurveFor(NewPool(new(big.Int), new(big.Int), 0), true) != nil {
		t.Error("unfunded pool must yield a nil curve")
	}

	pool := NewPool(big.NewInt(1_000_000), big.NewInt(2_000_000), 2500)
	curve := CurveFor(pool, true)
	want, err := pool.QuoteInUntilPrice(price(250))
	if err != nil {
		t.Fatalf("quote in: %v", err)
	}

	// Mutating the live pool must not move the snapshot.
	pool.QuoteReserve.Add(pool.QuoteReserve, big.NewInt(500_000))
	got, err := curve.InUntilPrice(price(250))
	if err != nil {
		t.Fatalf("curve in: %v", err)
	}
	if got.Cmp(want) != 0 {
		t.Errorf("curve quotes %v after pool mutation, want %v", got, want)
	}
}
