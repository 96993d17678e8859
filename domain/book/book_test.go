package book

import (
	"math/big"
	"testing"
)

// Test pairs use a tick of one quote per base, so row r trades at
// exactly r quote per base and all amount conversions stay exact.
func newTestState(width uint8) *PairState {
	return NewPairState(&Pair{
		ID:         1,
		BaseToken:  "WOLF",
		QuoteToken: "USD",
		TreeWidth:  width,
		PriceTick:  cloneInt(PriceScale),
	})
}

func bi(v int64) *big.Int { return big.NewInt(v) }

func placeSell(t *testing.T, st *PairState, owner string, row uint32, base int64) *Order {
	t.Helper()
	tx := st.Begin()
	o, err := tx.Place(PlacementInfo{
		Owner:     owner,
		Price:     row,
		TotalBase: bi(base),
	}, bi(base), st.Pair.QuoteOf(bi(base), row))
	if err != nil {
		t.Fatalf("place sell %d@%d: %v", base, row, err)
	}
	tx.Commit()
	return o
}

func placeBuy(t *testing.T, st *PairState, owner string, row uint32, quote int64) *Order {
	t.Helper()
	tx := st.Begin()
	o, err := tx.Place(PlacementInfo{
		Owner:      owner,
		IsBuy:      true,
		Price:      row,
		TotalQuote: bi(quote),
	}, st.Pair.BaseOf(bi(quote), row), bi(quote))
	if err != nil {
		t.Fatalf("place buy %d@%d: %v", quote, row, err)
	}
	tx.Commit()
	return o
}

func runMatch(t *testing.T, st *PairState, isBuy bool, amount int64, limit uint32) *MatchResult {
	t.Helper()
	tx := st.Begin()
	res, err := tx.Match(MatchInput{IsBuy: isBuy, Amount: bi(amount), Limit: limit})
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	tx.Commit()
	return res
}

func claimNow(t *testing.T, st *PairState, orderID uint64) *ClaimAmounts {
	t.Helper()
	check, err := st.FindClaimCheckNode(orderID)
	if err != nil {
		t.Fatalf("find check node for %d: %v", orderID, err)
	}
	tx := st.Begin()
	amt, err := tx.Claim(orderID, check)
	if err != nil {
		t.Fatalf("claim %d: %v", orderID, err)
	}
	tx.Commit()
	return amt
}

func cancelNow(t *testing.T, st *PairState, orderID uint64) *CancelResult {
	t.Helper()
	check, err := st.FindClaimCheckNode(orderID)
	if err != nil {
		t.Fatalf("find check node for %d: %v", orderID, err)
	}
	tx := st.Begin()
	res, err := tx.Cancel(orderID, check)
	if err != nil {
		t.Fatalf("cancel %d: %v", orderID, err)
	}
	tx.Commit()
	return res
}

func wantInt(t *testing.T, name string, got *big.Int, want int64) {
	t.Helper()
	if got == nil || got.Cmp(bi(want)) != 0 {
		t.Errorf("%s = %v, want %d", name, got, want)
	}
}

func wantRow(t *testing.T, st *PairState, s Side, row uint32, base, quote int64) {
	t.Helper()
	gotBase, gotQuote, err := st.AmountsAtRow(s, row)
	if err != nil {
		t.Fatalf("amounts at row %d: %v", row, err)
	}
	wantInt(t, "row base", gotBase, base)
	wantInt(t, "row quote", gotQuote, quote)
}
