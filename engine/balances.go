package engine

import (
	"math/big"
	"sort"
	"sync"
)

// AccountKey identifies one balance: an owner holding one token.
type AccountKey struct {
	Owner string
	Token string
}

// BalanceLedger tracks every account balance the engine custodies.
// It has its own lock because balances span pairs: two pairs trading
// the same token settle against the same accounts.
type BalanceLedger struct {
	mu       sync.Mutex
	balances map[AccountKey]*big.Int
}

func NewBalanceLedger() *BalanceLedger {
	return &BalanceLedger{balances: make(map[AccountKey]*big.Int)}
}

// Balance returns a copy of the account's balance, zero when absent.
func (l *BalanceLedger) Balance(owner, token string) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b := l.balances[AccountKey{owner, token}]; b != nil {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Restore sets an account balance directly, used when loading
// persisted state at startup.
func (l *BalanceLedger) Restore(owner, token string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[AccountKey{owner, token}] = new(big.Int).Set(amount)
}

// deltaSet stages the balance changes of one operation so they can be
// applied atomically at commit time.
type deltaSet struct {
	deltas map[AccountKey]*big.Int
}

func newDeltaSet() *deltaSet {
	return &deltaSet{deltas: make(map[AccountKey]*big.Int)}
}

func (d *deltaSet) at(owner, token string) *big.Int {
	k := AccountKey{owner, token}
	v := d.deltas[k]
	if v == nil {
		v = new(big.Int)
		d.deltas[k] = v
	}
	return v
}

func (d *deltaSet) add(owner, token string, amount *big.Int) {
	v := d.at(owner, token)
	v.Add(v, amount)
}

func (d *deltaSet) sub(owner, token string, amount *big.Int) {
	v := d.at(owner, token)
	v.Sub(v, amount)
}

// BalanceEntry is one post-operation account balance, reported in the
// change set for persistence.
type BalanceEntry struct {
	Owner  string
	Token  string
	Amount *big.Int
}

// Apply commits the staged deltas. Either every account stays
// non-negative and all deltas land, or nothing changes and
// ErrInsufficientBalance is returned. The resulting balances of the
// touched accounts are returned in deterministic order.
func (l *BalanceLedger) Apply(d *deltaSet) ([]BalanceEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := make([]AccountKey, 0, len(d.deltas))
	for k := range d.deltas {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Owner != keys[j].Owner {
			return keys[i].Owner < keys[j].Owner
		}
		return keys[i].Token < keys[j].Token
	})

	next := make([]BalanceEntry, 0, len(keys))
	for _, k := range keys {
		cur := l.balances[k]
		if cur == nil {
			cur = new(big.Int)
		}
		v := new(big.Int).Add(cur, d.deltas[k])
		if v.Sign() < 0 {
			return nil, ErrInsufficientBalance
		}
		next = append(next, BalanceEntry{Owner: k.Owner, Token: k.Token, Amount: v})
	}
	for _, e := range next {
		l.balances[AccountKey{e.Owner, e.Token}] = e.Amount
	}

	out := make([]BalanceEntry, len(next))
	for i, e := range next {
		out[i] = BalanceEntry{Owner: e.Owner, Token: e.Token, Amount: new(big.Int).Set(e.Amount)}
	}
	return out, nil
}
