package book

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"
)

// NodeIndex packs (column, right-aligned price row) into one key.
// Column 0 splits the whole axis into two halves; column W-1 holds the
// 2^W single-row leaves. NoNode marks "no node", used where an
// ancestor check is not required.
type NodeIndex int64

const NoNode NodeIndex = -1

func MakeNodeIndex(column uint8, row uint32) NodeIndex {
	return NodeIndex(uint64(column)<<32 | uint64(row))
}

func (i NodeIndex) Column() uint8 { return uint8(uint64(i) >> 32) }
func (i NodeIndex) Row() uint32   { return uint32(uint64(i)) }

func (i NodeIndex) String() string {
	if i == NoNode {
		return "none"
	}
	return fmt.Sprintf("c%d/r%d", i.Column(), i.Row())
}

// nodeSpan is the number of price rows covered by a column-c node.
func nodeSpan(width, column uint8) uint32 {
	return 1 << (width - column - 1)
}

// boundaryOf rounds row up to the right-aligned boundary of the
// column-c node covering it.
func boundaryOf(row, span uint32) uint32 {
	return ((row + span - 1) / span) * span
}

// NodeIndexAt returns the index of the column-c node covering row.
func NodeIndexAt(width, column uint8, row uint32) NodeIndex {
	return MakeNodeIndex(column, boundaryOf(row, nodeSpan(width, column)))
}

// CheckNodeIndex verifies that idx names an actual node of a width-W
// tree: the column is in range and the row sits exactly on the
// column's boundary grid. A mismatch is an internal-invariant error,
// never a user-facing condition.
func CheckNodeIndex(width uint8, idx NodeIndex) error {
	c, r := idx.Column(), idx.Row()
	if c >= width {
		return errors.Wrapf(ErrInternal, "node index %s: column out of range for width %d", idx, width)
	}
	span := nodeSpan(width, c)
	if r == 0 || r > uint32(1)<<width || boundaryOf(r, span) != r {
		return errors.Wrapf(ErrInternal, "node index %s: row not on column boundary", idx)
	}
	return nil
}

// PriceNode is one tree node: the aggregate liquidity resting at or
// under it, and the generation stamp of its last write. A node's
// amounts are only meaningful while no proper ancestor carries a
// higher stamp; a higher ancestor stamp means the whole subtree was
// consumed and this node just has not been touched since.
type PriceNode struct {
	BaseAmount *big.Int
	QuoteTotal *big.Int
	Gen        uint64
}

func zeroNode(gen uint64) *PriceNode {
	return &PriceNode{BaseAmount: newInt(), QuoteTotal: newInt(), Gen: gen}
}

func (n *PriceNode) clone() *PriceNode {
	return &PriceNode{
		BaseAmount: cloneInt(n.BaseAmount),
		QuoteTotal: cloneInt(n.QuoteTotal),
		Gen:        n.Gen,
	}
}

// IsEmpty reports whether the node carries no liquidity.
func (n *PriceNode) IsEmpty() bool {
	return isZero(n.BaseAmount) && isZero(n.QuoteTotal)
}
