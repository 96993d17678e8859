package book

import (
	"errors"
	"testing"
)

func TestNodeIndexPacking(t *testing.T) {
	idx := MakeNodeIndex(3, 8)
	if idx.Column() != 3 || idx.Row() != 8 {
		t.Fatalf("got c%d/r%d, want c3/r8", idx.Column(), idx.Row())
	}
	if NoNode.String() != "none" {
		t.Errorf("NoNode.String() = %q", NoNode.String())
	}
}

func TestNodeIndexAtBoundaries(t *testing.T) {
	cases := []struct {
		column uint8
		row    uint32
		want   uint32
	}{
		{0, 1, 8}, {0, 8, 8}, {0, 9, 16}, {0, 16, 16},
		{1, 3, 4}, {1, 5, 8}, {1, 13, 16},
		{2, 5, 6}, {2, 6, 6}, {2, 7, 8},
		{3, 5, 5}, {3, 16, 16},
	}
	for _, c := range cases {
		idx := NodeIndexAt(4, c.column, c.row)
		if idx.Column() != c.column || idx.Row() != c.want {
			t.Errorf("NodeIndexAt(4, %d, %d) = %s, want c%d/r%d",
				c.column, c.row, idx, c.column, c.want)
		}
	}
}

func TestCheckNodeIndex(t *testing.T) {
	valid := []NodeIndex{
		MakeNodeIndex(0, 8), MakeNodeIndex(0, 16),
		MakeNodeIndex(1, 4), MakeNodeIndex(2, 14),
		MakeNodeIndex(3, 1), MakeNodeIndex(3, 16),
	}
	for _, idx := range valid {
		if err := CheckNodeIndex(4, idx); err != nil {
			t.Errorf("CheckNodeIndex(4, %s): %v", idx, err)
		}
	}

	invalid := []NodeIndex{
		MakeNodeIndex(4, 8),  // column out of range
		MakeNodeIndex(0, 4),  // off the column's boundary grid
		MakeNodeIndex(3, 0),  // row zero
		MakeNodeIndex(3, 17), // row past the axis
	}
	for _, idx := range invalid {
		if err := CheckNodeIndex(4, idx); !errors.Is(err, ErrInternal) {
			t.Errorf("CheckNodeIndex(4, %s) = %v, want ErrInternal", idx, err)
		}
	}
}

func TestPairConversionsFloor(t *testing.T) {
	p := newTestState(4).Pair
	wantInt(t, "QuoteOf(100, 8)", p.QuoteOf(bi(100), 8), 800)
	wantInt(t, "BaseOf(800, 8)", p.BaseOf(bi(800), 8), 100)
	wantInt(t, "BaseOf(801, 8)", p.BaseOf(bi(801), 8), 100) // dust floors away
	if !p.ValidRow(1) || !p.ValidRow(16) || p.ValidRow(0) || p.ValidRow(17) {
		t.Error("ValidRow bounds are off for width 4")
	}
}
