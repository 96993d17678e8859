package engine_test

import (
	"errors"
	"math/big"
	"testing"

	"fenrir/domain/book"
	"fenrir/engine"
	"fenrir/infra/store/memstore"
)

func bi(v int64) *big.Int { return big.NewInt(v) }

// newTestEngine wires an engine over a memstore backend and creates
// one WOLF/USD pair with a tick of one USD per WOLF, 16 price rows.
func newTestEngine(t *testing.T, opts engine.Options) (*engine.Engine, *memstore.Store, uint64) {
	t.Helper()
	store := memstore.New()
	opts.Backend = store
	opts.Now = func() int64 { return 42 }
	eng := engine.New(opts)

	pairID, err := eng.CreatePair(engine.PairParams{
		BaseToken:  "WOLF",
		QuoteToken: "USD",
		TreeWidth:  4,
		PriceTick:  book.PriceScale,
	})
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	return eng, store, pairID
}

func deposit(t *testing.T, eng *engine.Engine, pair uint64, owner, token string, amount int64) {
	t.Helper()
	if err := eng.Deposit(pair, owner, token, bi(amount)); err != nil {
		t.Fatalf("deposit %d %s for %s: %v", amount, token, owner, err)
	}
}

func wantBalance(t *testing.T, eng *engine.Engine, owner, token string, want int64) {
	t.Helper()
	if got := eng.Balances().Balance(owner, token); got.Cmp(bi(want)) != 0 {
		t.Errorf("balance %s/%s = %v, want %d", owner, token, got, want)
	}
}

func wantInt(t *testing.T, name string, got *big.Int, want int64) {
	t.Helper()
	if got == nil || got.Cmp(bi(want)) != 0 {
		t.Errorf("%s = %v, want %d", name, got, want)
	}
}

func hasEvent(events []engine.Event, typ string) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func TestCreatePairValidation(t *testing.T) {
	eng := engine.New(engine.Options{})

	cases := []struct {
		name    string
		params  engine.PairParams
		wantErr error
	}{
		{"zero width", engine.PairParams{BaseToken: "A", QuoteToken: "B", TreeWidth: 0, PriceTick: bi(1)}, book.ErrInvalidPrice},
		{"oversized width", engine.PairParams{BaseToken: "A", QuoteToken: "B", TreeWidth: 40, PriceTick: bi(1)}, book.ErrInvalidPrice},
		{"nil tick", engine.PairParams{BaseToken: "A", QuoteToken: "B", TreeWidth: 4}, book.ErrInvalidPrice},
		{"negative tick", engine.PairParams{BaseToken: "A", QuoteToken: "B", TreeWidth: 4, PriceTick: bi(-1)}, book.ErrInvalidPrice},
		{"missing token", engine.PairParams{BaseToken: "", QuoteToken: "B", TreeWidth: 4, PriceTick: bi(1)}, engine.ErrUnknownToken},
		{"same tokens", engine.PairParams{BaseToken: "A", QuoteToken: "A", TreeWidth: 4, PriceTick: bi(1)}, engine.ErrUnknownToken},
	}
	for _, c := range cases {
		if _, err := eng.CreatePair(c.params); !errors.Is(err, c.wantErr) {
			t.Errorf("%s: %v, want %v", c.name, err, c.wantErr)
		}
	}
}

func TestDepositWithdraw(t *testing.T) {
	eng, store, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "alice", "USD", 1000)
	if err := eng.Withdraw(pair, "alice", "USD", bi(400)); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	wantBalance(t, eng, "alice", "USD", 600)
	wantInt(t, "persisted balance", store.Balance("alice", "USD"), 600)

	if err := eng.Withdraw(pair, "alice", "USD", bi(700)); !errors.Is(err, engine.ErrInsufficientBalance) {
		t.Errorf("overdraw: %v, want ErrInsufficientBalance", err)
	}
	if err := eng.Withdraw(pair, "alice", "USD", bi(-5)); !errors.Is(err, book.ErrInvalidAmount) {
		t.Errorf("negative withdraw: %v, want ErrInvalidAmount", err)
	}
	if err := eng.Deposit(pair, "alice", "BTC", bi(10)); !errors.Is(err, engine.ErrUnknownToken) {
		t.Errorf("foreign token: %v, want ErrUnknownToken", err)
	}
	if err := eng.Deposit(99, "alice", "USD", bi(10)); !errors.Is(err, book.ErrPairNotFound) {
		t.Errorf("unknown pair: %v, want ErrPairNotFound", err)
	}
	wantBalance(t, eng, "alice", "USD", 600)
}

func TestLimitSellThenMarketBuy(t *testing.T) {
	eng, store, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "bob", "WOLF", 1000)
	sell, err := eng.PlaceLimit(pair, "bob", false, bi(1000), 8, 0)
	if err != nil {
		t.Fatalf("place limit: %v", err)
	}
	if sell.OrderID == 0 {
		t.Fatal("resting remainder must get an order id")
	}
	wantInt(t, "rested", sell.Remaining, 1000)
	wantBalance(t, eng, "bob", "WOLF", 0)

	base, quote, err := eng.GetAmountsAtPrice(pair, book.SideSell, 8)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	wantInt(t, "row base", base, 1000)
	wantInt(t, "row quote", quote, 8000)

	deposit(t, eng, pair, "alice", "USD", 4000)
	buy, err := eng.PlaceMarket(pair, "alice", true, bi(4000), 8, 0)
	if err != nil {
		t.Fatalf("market buy: %v", err)
	}
	wantInt(t, "BookBase", buy.BookBase, 500)
	wantInt(t, "BookQuote", buy.BookQuote, 4000)
	wantInt(t, "Remaining", buy.Remaining, 0)
	if buy.OrderID != 0 {
		t.Error("market order must not rest")
	}
	wantBalance(t, eng, "alice", "USD", 0)
	wantBalance(t, eng, "alice", "WOLF", 500)

	amt, err := eng.Claim(pair, sell.OrderID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	wantInt(t, "claim quote", amt.Quote, 4000)
	wantBalance(t, eng, "bob", "USD", 4000)

	amt, err = eng.Claim(pair, sell.OrderID)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	wantInt(t, "second claim quote", amt.Quote, 0)
	wantBalance(t, eng, "bob", "USD", 4000)

	events := store.Events()
	for _, typ := range []string{
		engine.EventPairCreated, engine.EventDeposit, engine.EventPlaced,
		engine.EventTrade, engine.EventClaimed,
	} {
		if !hasEvent(events, typ) {
			t.Errorf("missing %s event in outbox", typ)
		}
	}
}

func TestMarketBuyRefundsRemainder(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "bob", "WOLF", 100)
	if _, err := eng.PlaceLimit(pair, "bob", false, bi(100), 8, 0); err != nil {
		t.Fatalf("place limit: %v", err)
	}

	deposit(t, eng, pair, "alice", "USD", 2000)
	res, err := eng.PlaceMarket(pair, "alice", true, bi(2000), 8, 0)
	if err != nil {
		t.Fatalf("market buy: %v", err)
	}
	wantInt(t, "BookQuote", res.BookQuote, 800)
	wantInt(t, "Remaining", res.Remaining, 1200)
	wantBalance(t, eng, "alice", "USD", 1200)
	wantBalance(t, eng, "alice", "WOLF", 100)
}

func TestDustRemainderRefundsInsteadOfResting(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	// 5 quote at row 8 converts to zero whole WOLF; resting it would
	// strand funds the book could hand to a taker for nothing.
	deposit(t, eng, pair, "alice", "USD", 5)
	res, err := eng.PlaceLimit(pair, "alice", true, bi(5), 8, 0)
	if err != nil {
		t.Fatalf("limit buy: %v", err)
	}
	if res.OrderID != 0 {
		t.Errorf("dust remainder rested as order %d", res.OrderID)
	}
	wantInt(t, "Remaining", res.Remaining, 5)
	wantBalance(t, eng, "alice", "USD", 5)

	base, quote, err := eng.GetAmountsAtPrice(pair, book.SideBuy, 8)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	wantInt(t, "bid base", base, 0)
	wantInt(t, "bid quote", quote, 0)

	// A seller sweeping every row finds nothing to take.
	deposit(t, eng, pair, "bob", "WOLF", 1)
	sres, err := eng.PlaceMarket(pair, "bob", false, bi(1), 1, 0)
	if err != nil {
		t.Fatalf("market sell: %v", err)
	}
	wantInt(t, "BookQuote", sres.BookQuote, 0)
	wantInt(t, "sell remaining", sres.Remaining, 1)
	wantBalance(t, eng, "bob", "WOLF", 1)
	wantBalance(t, eng, "bob", "USD", 0)
}

func TestSellRemainderWorthNoQuoteRefunds(t *testing.T) {
	eng, _, _ := newTestEngine(t, engine.Options{})

	// With a tick this small, one base unit at row 1 floors to zero
	// quote: the mirror of the dust-bid case.
	pair, err := eng.CreatePair(engine.PairParams{
		BaseToken:  "GRIT",
		QuoteToken: "USD",
		TreeWidth:  4,
		PriceTick:  bi(1),
	})
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}

	deposit(t, eng, pair, "bob", "GRIT", 1)
	res, err := eng.PlaceLimit(pair, "bob", false, bi(1), 1, 0)
	if err != nil {
		t.Fatalf("limit sell: %v", err)
	}
	if res.OrderID != 0 {
		t.Errorf("dust remainder rested as order %d", res.OrderID)
	}
	wantInt(t, "Remaining", res.Remaining, 1)
	wantBalance(t, eng, "bob", "GRIT", 1)

	base, quote, err := eng.GetAmountsAtPrice(pair, book.SideSell, 1)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	wantInt(t, "ask base", base, 0)
	wantInt(t, "ask quote", quote, 0)
}

func TestTakerFeeGoesToSink(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{
		TakerFeePPM: 10_000, // 1%
		FeeSink:     "treasury",
	})

	deposit(t, eng, pair, "bob", "WOLF", 1000)
	if _, err := eng.PlaceLimit(pair, "bob", false, bi(1000), 8, 0); err != nil {
		t.Fatalf("place limit: %v", err)
	}

	deposit(t, eng, pair, "alice", "USD", 4000)
	res, err := eng.PlaceMarket(pair, "alice", true, bi(4000), 8, 0)
	if err != nil {
		t.Fatalf("market buy: %v", err)
	}
	wantInt(t, "fee", res.Fee, 5)
	wantBalance(t, eng, "alice", "WOLF", 495)
	wantBalance(t, eng, "treasury", "WOLF", 5)
}

func TestFailedTradeLeavesNoTrace(t *testing.T) {
	eng, store, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "bob", "WOLF", 1000)
	sell, err := eng.PlaceLimit(pair, "bob", false, bi(1000), 8, 0)
	if err != nil {
		t.Fatalf("place limit: %v", err)
	}

	deposit(t, eng, pair, "alice", "USD", 100)
	before := store.LastHeight()

	if _, err := eng.PlaceMarket(pair, "alice", true, bi(4000), 8, 0); !errors.Is(err, engine.ErrInsufficientBalance) {
		t.Fatalf("underfunded buy: %v, want ErrInsufficientBalance", err)
	}

	wantBalance(t, eng, "alice", "USD", 100)
	wantBalance(t, eng, "alice", "WOLF", 0)
	base, _, err := eng.GetAmountsAtPrice(pair, book.SideSell, 8)
	if err != nil {
		t.Fatalf("amounts: %v", err)
	}
	wantInt(t, "row base", base, 1000)

	amt, err := eng.Claimable(pair, sell.OrderID)
	if err != nil {
		t.Fatalf("claimable: %v", err)
	}
	wantInt(t, "claimable quote", amt.Quote, 0)

	if store.LastHeight() != before {
		t.Errorf("height advanced to %d on a failed trade", store.LastHeight())
	}
}

func TestPauseFlags(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "bob", "WOLF", 100)
	sell, err := eng.PlaceLimit(pair, "bob", false, bi(100), 8, 0)
	if err != nil {
		t.Fatalf("place limit: %v", err)
	}

	if err := eng.SetTradingPaused(pair, true); err != nil {
		t.Fatalf("pause trading: %v", err)
	}
	if _, err := eng.PlaceLimit(pair, "bob", false, bi(1), 8, 0); !errors.Is(err, engine.ErrTradingPaused) {
		t.Errorf("trade while paused: %v, want ErrTradingPaused", err)
	}

	if err := eng.SetManagementPaused(pair, true); err != nil {
		t.Fatalf("pause management: %v", err)
	}
	if err := eng.Deposit(pair, "bob", "WOLF", bi(1)); !errors.Is(err, engine.ErrManagementPaused) {
		t.Errorf("deposit while paused: %v, want ErrManagementPaused", err)
	}
	if err := eng.FundPool(pair, "bob", bi(1), bi(1)); !errors.Is(err, engine.ErrManagementPaused) {
		t.Errorf("fund pool while paused: %v, want ErrManagementPaused", err)
	}

	// Exits stay open under both flags.
	if _, err := eng.Cancel(pair, sell.OrderID); err != nil {
		t.Errorf("cancel while paused: %v", err)
	}
	wantBalance(t, eng, "bob", "WOLF", 100)
}

func TestCancelRefundsRemainder(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "bob", "WOLF", 1000)
	sell, err := eng.PlaceLimit(pair, "bob", false, bi(1000), 8, 0)
	if err != nil {
		t.Fatalf("place limit: %v", err)
	}

	deposit(t, eng, pair, "alice", "USD", 4000)
	if _, err := eng.PlaceMarket(pair, "alice", true, bi(4000), 8, 0); err != nil {
		t.Fatalf("market buy: %v", err)
	}

	res, err := eng.Cancel(pair, sell.OrderID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	wantInt(t, "claim quote", res.Claim.Quote, 4000)
	wantInt(t, "cancel base", res.CancelBase, 500)
	wantBalance(t, eng, "bob", "USD", 4000)
	wantBalance(t, eng, "bob", "WOLF", 500)

	if _, err := eng.Claim(pair, sell.OrderID); !errors.Is(err, book.ErrOrderCancelled) {
		t.Errorf("claim after cancel: %v, want ErrOrderCancelled", err)
	}
}

func TestHybridBuyThroughPool(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "carol", "WOLF", 1_000_000)
	deposit(t, eng, pair, "carol", "USD", 2_000_000)
	if err := eng.FundPool(pair, "carol", bi(1_000_000), bi(2_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}
	wantBalance(t, eng, "carol", "WOLF", 0)
	wantBalance(t, eng, "carol", "USD", 0)

	// The book is empty, the pool trades at 2.00: a buy bounded at row
	// 4 routes entirely through the pool.
	deposit(t, eng, pair, "alice", "USD", 10_000)
	res, err := eng.PlaceMarket(pair, "alice", true, bi(10_000), 4, 0)
	if err != nil {
		t.Fatalf("market buy: %v", err)
	}
	wantInt(t, "AmmIn", res.AmmIn, 10_000)
	wantInt(t, "AmmOut", res.AmmOut, 4975) // 1e6*1e4/(2e6+1e4), floored
	wantInt(t, "BookBase", res.BookBase, 0)
	wantInt(t, "Remaining", res.Remaining, 0)
	wantBalance(t, eng, "alice", "USD", 0)
	wantBalance(t, eng, "alice", "WOLF", 4975)

	pool, err := eng.PoolState(pair)
	if err != nil {
		t.Fatalf("pool state: %v", err)
	}
	wantInt(t, "base reserve", pool.BaseReserve, 995_025)
	wantInt(t, "quote reserve", pool.QuoteReserve, 2_010_000)

	pp, err := eng.PriceAt(pair, res.Height)
	if err != nil {
		t.Fatalf("price at: %v", err)
	}
	if pp == nil || pp.Height != res.Height {
		t.Fatalf("price snapshot = %+v, want one at height %d", pp, res.Height)
	}
	if pp.Price.Cmp(new(big.Int).Lsh(book.PriceScale, 1)) <= 0 {
		t.Errorf("price %v did not move above 2.00", pp.Price)
	}

	pp, err = eng.PriceAt(pair, res.Height-1)
	if err != nil {
		t.Fatalf("price at: %v", err)
	}
	if pp != nil {
		t.Errorf("unexpected snapshot before the first swap: %+v", pp)
	}
}

// mismatchedSwapper disagrees with every quote the engine computes.
type mismatchedSwapper struct{}

func (mismatchedSwapper) Swap(uint64, *big.Int, bool) (*big.Int, error) {
	return big.NewInt(1), nil
}

func TestSwapMismatchAborts(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{Swapper: mismatchedSwapper{}})

	deposit(t, eng, pair, "carol", "WOLF", 1_000_000)
	deposit(t, eng, pair, "carol", "USD", 2_000_000)
	if err := eng.FundPool(pair, "carol", bi(1_000_000), bi(2_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}

	deposit(t, eng, pair, "alice", "USD", 10_000)
	if _, err := eng.PlaceMarket(pair, "alice", true, bi(10_000), 4, 0); !errors.Is(err, engine.ErrSwapMismatch) {
		t.Fatalf("mismatched swap: %v, want ErrSwapMismatch", err)
	}

	wantBalance(t, eng, "alice", "USD", 10_000)
	pool, err := eng.PoolState(pair)
	if err != nil {
		t.Fatalf("pool state: %v", err)
	}
	wantInt(t, "base reserve", pool.BaseReserve, 1_000_000)
	wantInt(t, "quote reserve", pool.QuoteReserve, 2_000_000)
}

// trackingSwapper echoes the quote and counts invocations.
type trackingSwapper struct{ calls int }

func (s *trackingSwapper) Swap(_ uint64, in *big.Int, _ bool) (*big.Int, error) {
	s.calls++
	return new(big.Int).Set(in), nil
}

func TestUnderfundedHybridSkipsExternalSwap(t *testing.T) {
	sw := &trackingSwapper{}
	eng, _, pair := newTestEngine(t, engine.Options{Swapper: sw})

	deposit(t, eng, pair, "carol", "WOLF", 1_000_000)
	deposit(t, eng, pair, "carol", "USD", 2_000_000)
	if err := eng.FundPool(pair, "carol", bi(1_000_000), bi(2_000_000)); err != nil {
		t.Fatalf("fund pool: %v", err)
	}

	// alice holds less than she is trying to spend: the debit would
	// fail at commit, so the external executor must never run.
	deposit(t, eng, pair, "alice", "USD", 100)
	if _, err := eng.PlaceMarket(pair, "alice", true, bi(10_000), 4, 0); !errors.Is(err, engine.ErrInsufficientBalance) {
		t.Fatalf("underfunded hybrid buy: %v, want ErrInsufficientBalance", err)
	}
	if sw.calls != 0 {
		t.Errorf("external swap ran %d times for an aborted trade", sw.calls)
	}
	wantBalance(t, eng, "alice", "USD", 100)

	pool, err := eng.PoolState(pair)
	if err != nil {
		t.Fatalf("pool state: %v", err)
	}
	wantInt(t, "base reserve", pool.BaseReserve, 1_000_000)
	wantInt(t, "quote reserve", pool.QuoteReserve, 2_000_000)
}

func TestSetPairDecimalsLocksOnFirstOrder(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	if err := eng.SetPairDecimals(pair, 8, 6); err != nil {
		t.Fatalf("set decimals: %v", err)
	}
	p, err := eng.GetPair(pair)
	if err != nil {
		t.Fatalf("get pair: %v", err)
	}
	if p.BaseDecimals != 8 || p.QuoteDecimals != 6 {
		t.Errorf("decimals = %d/%d, want 8/6", p.BaseDecimals, p.QuoteDecimals)
	}

	deposit(t, eng, pair, "bob", "WOLF", 100)
	if _, err := eng.PlaceLimit(pair, "bob", false, bi(100), 8, 0); err != nil {
		t.Fatalf("place limit: %v", err)
	}
	if err := eng.SetPairDecimals(pair, 18, 18); !errors.Is(err, book.ErrDecimalsLocked) {
		t.Errorf("set decimals after first order: %v, want ErrDecimalsLocked", err)
	}

	if err := eng.SetManagementPaused(pair, true); err != nil {
		t.Fatalf("pause management: %v", err)
	}
	if err := eng.SetPairDecimals(pair, 18, 18); !errors.Is(err, engine.ErrManagementPaused) {
		t.Errorf("set decimals while paused: %v, want ErrManagementPaused", err)
	}
}

func TestListOrdersPaging(t *testing.T) {
	eng, _, pair := newTestEngine(t, engine.Options{})

	deposit(t, eng, pair, "bob", "WOLF", 300)
	var ids []uint64
	for _, row := range []uint32{5, 6, 7} {
		res, err := eng.PlaceLimit(pair, "bob", false, bi(100), row, 0)
		if err != nil {
			t.Fatalf("place limit: %v", err)
		}
		ids = append(ids, res.OrderID)
	}

	orders, err := eng.ListOrders(pair, "bob", 0)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("page 0 has %d orders, want 3", len(orders))
	}
	for i, o := range orders {
		if o.ID != ids[i] {
			t.Errorf("page 0[%d] = order %d, want %d", i, o.ID, ids[i])
		}
	}

	for _, page := range []int{1, -1} {
		orders, err = eng.ListOrders(pair, "bob", page)
		if err != nil || len(orders) != 0 {
			t.Errorf("page %d: %d orders, %v; want empty", page, len(orders), err)
		}
	}
	orders, err = eng.ListOrders(pair, "nobody", 0)
	if err != nil || len(orders) != 0 {
		t.Errorf("unknown owner: %d orders, %v; want empty", len(orders), err)
	}
}
