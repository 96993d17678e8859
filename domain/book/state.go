package book

// PairState is the complete mutable state of one pair: both trees,
// the generation counters, the order ledger and the cancellation
// ledgers. It is owned by exactly one guard (the engine serializes
// writers per pair); nothing in here is safe for unguarded use.
type PairState struct {
	Pair      *Pair
	NextOrder uint64
	Orders    map[uint64]*Order
	Sides     [2]*sideState
}

type sideState struct {
	// Gen is the side's highest handed-out generation stamp
	// (highestEmptiedCount).
	Gen   uint64
	Nodes map[NodeIndex]*PriceNode
	Rows  map[uint32]*RowLedger
	Fen   map[FenKey]*FenNode
}

func newSideState() *sideState {
	return &sideState{
		Nodes: make(map[NodeIndex]*PriceNode),
		Rows:  make(map[uint32]*RowLedger),
		Fen:   make(map[FenKey]*FenNode),
	}
}

// NewPairState returns an empty state for a freshly created pair.
func NewPairState(p *Pair) *PairState {
	return &PairState{
		Pair:      p,
		NextOrder: 1,
		Orders:    make(map[uint64]*Order),
		Sides:     [2]*sideState{newSideState(), newSideState()},
	}
}

// view is the read surface shared by PairState (committed state) and
// Tx (committed state plus in-flight overlay). All read-only
// computations are written against it so queries and mutations share
// one implementation.
type view interface {
	pairRef() *Pair
	sideGen(s Side) uint64
	peekNode(s Side, idx NodeIndex) *PriceNode
	peekRow(s Side, row uint32) *RowLedger
	peekOrder(id uint64) *Order
	fenPeekView(s Side, k FenKey) *FenNode
}

func (st *PairState) pairRef() *Pair        { return st.Pair }
func (st *PairState) sideGen(s Side) uint64 { return st.Sides[s].Gen }

func (st *PairState) peekNode(s Side, idx NodeIndex) *PriceNode {
	return st.Sides[s].Nodes[idx]
}

func (st *PairState) peekRow(s Side, row uint32) *RowLedger {
	return st.Sides[s].Rows[row]
}

func (st *PairState) peekOrder(id uint64) *Order { return st.Orders[id] }

func (st *PairState) fenPeekView(s Side, k FenKey) *FenNode {
	return st.Sides[s].Fen[k]
}
