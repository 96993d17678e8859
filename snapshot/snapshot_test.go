package snapshot

import (
	"math/big"
	"path/filepath"
	"testing"

	"fenrir/domain/book"
)

func testState(t *testing.T) *book.PairState {
	t.Helper()
	st := book.NewPairState(&book.Pair{
		ID:         1,
		BaseToken:  "WOLF",
		QuoteToken: "USD",
		TreeWidth:  4,
		PriceTick:  new(big.Int).Set(book.PriceScale),
	})

	tx := st.Begin()
	for i, owner := range []string{"alice", "bob"} {
		base := big.NewInt(int64(100 * (i + 1)))
		if _, err := tx.Place(book.PlacementInfo{
			Owner:     owner,
			Price:     8,
			TotalBase: base,
			CreatedAt: 42,
		}, base, st.Pair.QuoteOf(base, 8)); err != nil {
			t.Fatalf("place: %v", err)
		}
	}
	tx.Commit()
	return st
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	st := testState(t)

	w := &Writer{Dir: dir}
	if err := w.Write(7, st); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(filepath.Join(dir, "pair-1.snapshot"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s == nil {
		t.Fatal("snapshot missing")
	}
	if s.Pair != 1 || s.Height != 7 {
		t.Errorf("header = pair %d height %d, want 1/7", s.Pair, s.Height)
	}
	if len(s.Orders) != 2 {
		t.Fatalf("%d orders, want 2", len(s.Orders))
	}
	if s.Orders[0].Owner != "alice" || s.Orders[0].PlacedBase.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("first order = %+v", s.Orders[0])
	}
	if s.Orders[1].Owner != "bob" || s.Orders[1].PlacedBase.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("second order = %+v", s.Orders[1])
	}
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "pair-9.snapshot"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if s != nil {
		t.Errorf("got %+v, want nil", s)
	}
}
