package engine

import (
	"math/big"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"fenrir/domain/amm"
	"fenrir/domain/book"
)

// SwapExecutor performs the AMM leg of a hybrid trade against an
// external pool. The engine quotes the expected output itself and
// rejects the operation when the executor disagrees.
type SwapExecutor interface {
	// Swap trades `in` of the input token (base when inputIsBase) and
	// returns the output amount.
	Swap(pairID uint64, in *big.Int, inputIsBase bool) (*big.Int, error)
}

// DecimalsProvider resolves token decimals at pair creation.
type DecimalsProvider interface {
	Decimals(token string) (uint8, error)
}

// Options configure an Engine. Zero values get working defaults: a
// discarding backend, a process-local clock and the standard logger.
type Options struct {
	Backend  Backend
	Clock    Clock
	Swapper  SwapExecutor
	Decimals DecimalsProvider

	// TakerFeePPM is deducted from the taker's received leg, in parts
	// per million, and credited to FeeSink.
	TakerFeePPM uint32
	FeeSink     string

	Logger *logrus.Logger

	// Now overrides the wall clock used for order timestamps.
	Now func() int64
}

// Engine is the serialized service layer over the domain packages.
type Engine struct {
	mu       sync.RWMutex
	pairs    map[uint64]*pairGuard
	nextPair uint64

	balances *BalanceLedger
	backend  Backend
	clock    Clock
	swapper  SwapExecutor
	decimals DecimalsProvider

	feePPM  uint32
	feeSink string

	now func() int64
	log *logrus.Entry
}

// pairGuard owns everything mutable about one pair. Its lock
// serializes writers; queries take it shared.
type pairGuard struct {
	mu sync.RWMutex

	st   *book.PairState
	pool *amm.Pool

	// userOrders is the per-owner placement index, append-only,
	// rebuilt from the order ledger on restore.
	userOrders map[string][]uint64

	// snaps are AMM price snapshots in ascending height order.
	snaps []PricePoint
}

// New wires an engine. No globals.
func New(opts Options) *Engine {
	if opts.Backend == nil {
		opts.Backend = NopBackend{}
	}
	if opts.Clock == nil {
		opts.Clock = NewSequencerClock(0)
	}
	if opts.FeeSink == "" {
		opts.FeeSink = "fees"
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = func() int64 { return time.Now().Unix() }
	}
	return &Engine{
		pairs:    make(map[uint64]*pairGuard),
		nextPair: 1,
		balances: NewBalanceLedger(),
		backend:  opts.Backend,
		clock:    opts.Clock,
		swapper:  opts.Swapper,
		decimals: opts.Decimals,
		feePPM:   opts.TakerFeePPM,
		feeSink:  opts.FeeSink,
		now:      opts.Now,
		log:      opts.Logger.WithField("component", "engine"),
	}
}

// Balances exposes the ledger for queries.
func (e *Engine) Balances() *BalanceLedger { return e.balances }

func (e *Engine) guard(pairID uint64) (*pairGuard, error) {
	e.mu.RLock()
	g := e.pairs[pairID]
	e.mu.RUnlock()
	if g == nil {
		return nil, book.ErrPairNotFound
	}
	return g, nil
}

// persist hands the change set to the backend. The in-memory state is
// already committed at this point; a lagging backend is logged and
// surfaced to operators, never unwound.
func (e *Engine) persist(cs *ChangeSet) {
	if err := e.backend.Apply(cs); err != nil {
		e.log.WithError(err).WithFields(logrus.Fields{
			"pair":   cs.PairID,
			"height": cs.Height,
		}).Error("backend apply failed")
	}
}

// -------------------- pair lifecycle --------------------

// PairParams describe a new pair.
type PairParams struct {
	BaseToken  string
	QuoteToken string
	TreeWidth  uint8
	PriceTick  *big.Int
	// PoolFeePPM is the AMM fee for the pair's pool.
	PoolFeePPM uint32
}

// CreatePair registers a new pair and returns its id.
func (e *Engine) CreatePair(params PairParams) (uint64, error) {
	if params.TreeWidth < 1 || params.TreeWidth > 31 {
		return 0, errors.Wrap(book.ErrInvalidPrice, "tree width out of range")
	}
	if params.PriceTick == nil || params.PriceTick.Sign() <= 0 {
		return 0, errors.Wrap(book.ErrInvalidPrice, "price tick must be positive")
	}
	if params.BaseToken == "" || params.QuoteToken == "" || params.BaseToken == params.QuoteToken {
		return 0, ErrUnknownToken
	}

	var baseDec, quoteDec uint8 = 18, 18
	if e.decimals != nil {
		var err error
		if baseDec, err = e.decimals.Decimals(params.BaseToken); err != nil {
			return 0, err
		}
		if quoteDec, err = e.decimals.Decimals(params.QuoteToken); err != nil {
			return 0, err
		}
	}

	p := &book.Pair{
		BaseToken:     params.BaseToken,
		QuoteToken:    params.QuoteToken,
		TreeWidth:     params.TreeWidth,
		PriceTick:     new(big.Int).Set(params.PriceTick),
		BaseDecimals:  baseDec,
		QuoteDecimals: quoteDec,
		CreatedAt:     e.now(),
	}

	e.mu.Lock()
	p.ID = e.nextPair
	e.nextPair++
	g := &pairGuard{
		st:         book.NewPairState(p),
		pool:       amm.NewPool(new(big.Int), new(big.Int), params.PoolFeePPM),
		userOrders: make(map[string][]uint64),
	}
	e.pairs[p.ID] = g
	e.mu.Unlock()

	h := e.clock.Height()
	e.persist(&ChangeSet{
		Height:  h,
		PairID:  p.ID,
		NewPair: p,
		Events:  []Event{{V: 1, Type: EventPairCreated, Pair: p.ID, Height: h}},
	})
	e.log.WithFields(logrus.Fields{
		"pair":  p.ID,
		"base":  p.BaseToken,
		"quote": p.QuoteToken,
		"width": p.TreeWidth,
	}).Info("pair created")
	return p.ID, nil
}

// RestorePair re-registers a pair loaded from persistence. The order
// index is rebuilt from the order ledger.
func (e *Engine) RestorePair(st *book.PairState, pool *amm.Pool, snaps []PricePoint) {
	g := &pairGuard{
		st:         st,
		pool:       pool,
		userOrders: make(map[string][]uint64),
		snaps:      snaps,
	}
	if g.pool == nil {
		g.pool = amm.NewPool(new(big.Int), new(big.Int), 0)
	}
	ids := make([]uint64, 0, len(st.Orders))
	for id := range st.Orders {
		ids = append(ids, id)
	}
	// Ascending ids reproduce placement order.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		o := st.Orders[id]
		g.userOrders[o.Owner] = append(g.userOrders[o.Owner], id)
	}

	e.mu.Lock()
	e.pairs[st.Pair.ID] = g
	if st.Pair.ID >= e.nextPair {
		e.nextPair = st.Pair.ID + 1
	}
	e.mu.Unlock()
}

// SetTradingPaused flips the pair's trading pause flag.
func (e *Engine) SetTradingPaused(pairID uint64, paused bool) error {
	return e.setPause(pairID, func(p *book.Pair) { p.TradingPaused = paused })
}

// SetManagementPaused flips the pair's management pause flag.
func (e *Engine) SetManagementPaused(pairID uint64, paused bool) error {
	return e.setPause(pairID, func(p *book.Pair) { p.ManagementPaused = paused })
}

func (e *Engine) setPause(pairID uint64, set func(*book.Pair)) error {
	g, err := e.guard(pairID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	tx := g.st.Begin()
	set(tx.MutablePair())
	cs := tx.Commit()
	e.persist(&ChangeSet{Height: e.clock.Height(), PairID: pairID, Book: cs})
	return nil
}

// SetPairDecimals overrides the pair's token decimals. The first
// placed order locks them for good: amounts already resting were
// scaled under the old values.
func (e *Engine) SetPairDecimals(pairID uint64, baseDec, quoteDec uint8) error {
	g, err := e.guard(pairID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.st.Pair
	if p.ManagementPaused {
		return ErrManagementPaused
	}
	if p.DecimalsLocked {
		return book.ErrDecimalsLocked
	}

	tx := g.st.Begin()
	mp := tx.MutablePair()
	mp.BaseDecimals, mp.QuoteDecimals = baseDec, quoteDec
	cs := tx.Commit()
	e.persist(&ChangeSet{Height: e.clock.Height(), PairID: pairID, Book: cs})
	return nil
}

// FundPool adds liquidity to the pair's reference pool from the
// funder's balances.
func (e *Engine) FundPool(pairID uint64, funder string, base, quote *big.Int) error {
	g, err := e.guard(pairID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.st.Pair
	if p.ManagementPaused {
		return ErrManagementPaused
	}
	if base.Sign() < 0 || quote.Sign() < 0 || (base.Sign() == 0 && quote.Sign() == 0) {
		return book.ErrInvalidAmount
	}

	d := newDeltaSet()
	d.sub(funder, p.BaseToken, base)
	d.sub(funder, p.QuoteToken, quote)
	bals, err := e.balances.Apply(d)
	if err != nil {
		return err
	}

	g.pool.BaseReserve.Add(g.pool.BaseReserve, base)
	g.pool.QuoteReserve.Add(g.pool.QuoteReserve, quote)

	e.persist(&ChangeSet{
		Height:   e.clock.Height(),
		PairID:   pairID,
		Balances: bals,
		Pool:     g.poolUpdate(),
	})
	return nil
}

func (g *pairGuard) poolUpdate() *PoolUpdate {
	return &PoolUpdate{
		BaseReserve:  new(big.Int).Set(g.pool.BaseReserve),
		QuoteReserve: new(big.Int).Set(g.pool.QuoteReserve),
		FeePPM:       g.pool.FeePPM,
	}
}

// -------------------- balance operations --------------------

// Deposit credits the owner's balance in one of the pair's tokens.
func (e *Engine) Deposit(pairID uint64, owner, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return book.ErrInvalidAmount
	}
	return e.moveBalance(pairID, owner, token, amount, EventDeposit)
}

// Withdraw debits the owner's balance in one of the pair's tokens.
func (e *Engine) Withdraw(pairID uint64, owner, token string, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return book.ErrInvalidAmount
	}
	return e.moveBalance(pairID, owner, token, new(big.Int).Neg(amount), EventWithdraw)
}

func (e *Engine) moveBalance(pairID uint64, owner, token string, amount *big.Int, typ string) error {
	g, err := e.guard(pairID)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	p := g.st.Pair
	if p.ManagementPaused {
		return ErrManagementPaused
	}
	if token != p.BaseToken && token != p.QuoteToken {
		return ErrUnknownToken
	}
	if amount.Sign() == 0 {
		return book.ErrInvalidAmount
	}

	d := newDeltaSet()
	d.add(owner, token, amount)
	bals, err := e.balances.Apply(d)
	if err != nil {
		return err
	}

	h := e.clock.Height()
	abs := new(big.Int).Abs(amount)
	ev := Event{V: 1, Type: typ, Pair: pairID, Height: h, Owner: owner}
	if token == p.BaseToken {
		ev.Base = abs.String()
	} else {
		ev.Quote = abs.String()
	}
	e.persist(&ChangeSet{Height: h, PairID: pairID, Balances: bals, Events: []Event{ev}})
	return nil
}
