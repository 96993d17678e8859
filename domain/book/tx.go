package book

// Tx is a staged mutation of one PairState. Reads see the overlay
// first and fall through to the committed state; writes touch only
// the overlay. Commit applies the overlay and hands back the dirty
// records so a persistence backend can write them in one batch.
// Dropping a Tx without committing leaves the state untouched, which
// is what gives every operation its all-or-nothing semantics.
type Tx struct {
	st *PairState

	pair      *Pair
	gen       [2]uint64
	genDirty  [2]bool
	nextOrder uint64
	nextDirty bool

	nodes  [2]map[NodeIndex]*PriceNode
	rows   [2]map[uint32]*RowLedger
	fen    [2]map[FenKey]*FenNode
	orders map[uint64]*Order
}

// Begin opens a transaction over the state.
func (st *PairState) Begin() *Tx {
	return &Tx{
		st:     st,
		nodes:  [2]map[NodeIndex]*PriceNode{{}, {}},
		rows:   [2]map[uint32]*RowLedger{{}, {}},
		fen:    [2]map[FenKey]*FenNode{{}, {}},
		orders: make(map[uint64]*Order),
	}
}

// ChangeSet is the set of records a committed Tx touched.
type ChangeSet struct {
	PairID    uint64
	Pair      *Pair // nil when unchanged
	Gen       [2]*uint64
	NextOrder *uint64
	Nodes     [2]map[NodeIndex]*PriceNode
	Rows      [2]map[uint32]*RowLedger
	Fen       [2]map[FenKey]*FenNode
	Orders    []*Order
}

// Commit applies the overlay to the state and returns the dirty set.
func (tx *Tx) Commit() *ChangeSet {
	cs := &ChangeSet{
		PairID: tx.st.Pair.ID,
		Nodes:  tx.nodes,
		Rows:   tx.rows,
		Fen:    tx.fen,
	}
	if tx.pair != nil {
		tx.st.Pair = tx.pair
		cs.Pair = tx.pair
	}
	for s := 0; s < 2; s++ {
		if tx.genDirty[s] {
			tx.st.Sides[s].Gen = tx.gen[s]
			g := tx.gen[s]
			cs.Gen[s] = &g
		}
		for idx, n := range tx.nodes[s] {
			tx.st.Sides[s].Nodes[idx] = n
		}
		for row, l := range tx.rows[s] {
			tx.st.Sides[s].Rows[row] = l
		}
		for k, n := range tx.fen[s] {
			tx.st.Sides[s].Fen[k] = n
		}
	}
	if tx.nextDirty {
		tx.st.NextOrder = tx.nextOrder
		n := tx.nextOrder
		cs.NextOrder = &n
	}
	for id, o := range tx.orders {
		tx.st.Orders[id] = o
		cs.Orders = append(cs.Orders, o)
	}
	return cs
}

// -------------------- view --------------------

func (tx *Tx) pairRef() *Pair {
	if tx.pair != nil {
		return tx.pair
	}
	return tx.st.Pair
}

func (tx *Tx) sideGen(s Side) uint64 {
	if tx.genDirty[s] {
		return tx.gen[s]
	}
	return tx.st.Sides[s].Gen
}

func (tx *Tx) peekNode(s Side, idx NodeIndex) *PriceNode {
	if n, ok := tx.nodes[s][idx]; ok {
		return n
	}
	return tx.st.Sides[s].Nodes[idx]
}

func (tx *Tx) peekRow(s Side, row uint32) *RowLedger {
	if l, ok := tx.rows[s][row]; ok {
		return l
	}
	return tx.st.Sides[s].Rows[row]
}

func (tx *Tx) peekOrder(id uint64) *Order {
	if o, ok := tx.orders[id]; ok {
		return o
	}
	return tx.st.Orders[id]
}

func (tx *Tx) fenPeekView(s Side, k FenKey) *FenNode {
	if n, ok := tx.fen[s][k]; ok {
		return n
	}
	return tx.st.Sides[s].Fen[k]
}

// -------------------- mutation --------------------

// mutatePair clones the pair into the overlay for modification.
func (tx *Tx) mutatePair() *Pair {
	if tx.pair == nil {
		tx.pair = tx.st.Pair.clone()
	}
	return tx.pair
}

// MutablePair exposes the overlay pair for administrative updates
// (pause flags, pre-lock decimals). Structural fields must not change
// after creation.
func (tx *Tx) MutablePair() *Pair { return tx.mutatePair() }

// bumpGen hands out the side's next generation stamp.
func (tx *Tx) bumpGen(s Side) uint64 {
	g := tx.sideGen(s) + 1
	tx.gen[s] = g
	tx.genDirty[s] = true
	return g
}

// node returns a mutable overlay copy of the indexed node, creating a
// zero node when absent.
func (tx *Tx) node(s Side, idx NodeIndex) *PriceNode {
	if n, ok := tx.nodes[s][idx]; ok {
		return n
	}
	var n *PriceNode
	if base := tx.st.Sides[s].Nodes[idx]; base != nil {
		n = base.clone()
	} else {
		n = zeroNode(0)
	}
	tx.nodes[s][idx] = n
	return n
}

// rowLedger returns a mutable overlay copy of the row's ledger.
func (tx *Tx) rowLedger(s Side, row uint32) *RowLedger {
	if l, ok := tx.rows[s][row]; ok {
		return l
	}
	var l *RowLedger
	if base := tx.st.Sides[s].Rows[row]; base != nil {
		l = base.clone()
	} else {
		l = newRowLedger()
	}
	tx.rows[s][row] = l
	return l
}

func (tx *Tx) fenNode(s Side, k FenKey) *FenNode {
	if n, ok := tx.fen[s][k]; ok {
		return n
	}
	var n *FenNode
	if base := tx.st.Sides[s].Fen[k]; base != nil {
		n = base.clone()
	} else {
		n = newFenNode()
	}
	tx.fen[s][k] = n
	return n
}

// order returns a mutable overlay copy of an existing order.
func (tx *Tx) order(id uint64) *Order {
	if o, ok := tx.orders[id]; ok {
		return o
	}
	base := tx.st.Orders[id]
	if base == nil {
		return nil
	}
	o := base.clone()
	tx.orders[id] = o
	return o
}

// putOrder inserts a freshly created order into the overlay.
func (tx *Tx) putOrder(o *Order) { tx.orders[o.ID] = o }

// nextOrderID hands out the pair's next order id.
func (tx *Tx) nextOrderID() uint64 {
	if !tx.nextDirty {
		tx.nextOrder = tx.st.NextOrder
		tx.nextDirty = true
	}
	id := tx.nextOrder
	tx.nextOrder++
	return id
}
