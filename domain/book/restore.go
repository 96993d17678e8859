package book

import "sort"

// Restore entry points used by persistence backends when rebuilding a
// pair at startup. They write directly into committed state and must
// only run before the pair is handed to its guard.

// RestoreGen sets a side's generation counter.
func (st *PairState) RestoreGen(s Side, gen uint64) { st.Sides[s].Gen = gen }

// RestoreNextOrder sets the next order id counter.
func (st *PairState) RestoreNextOrder(next uint64) { st.NextOrder = next }

// RestoreNode installs a persisted node.
func (st *PairState) RestoreNode(s Side, idx NodeIndex, n *PriceNode) {
	st.Sides[s].Nodes[idx] = n
}

// RestoreRow installs a persisted row ledger.
func (st *PairState) RestoreRow(s Side, row uint32, l *RowLedger) {
	st.Sides[s].Rows[row] = l
}

// RestoreFen installs a persisted cancellation-ledger node.
func (st *PairState) RestoreFen(s Side, k FenKey, n *FenNode) {
	st.Sides[s].Fen[k] = n
}

// RestoreOrder installs a persisted order.
func (st *PairState) RestoreOrder(o *Order) {
	st.Orders[o.ID] = o
	if o.ID >= st.NextOrder {
		st.NextOrder = o.ID + 1
	}
}

// OpenOrders returns copies of all non-terminal orders in ascending
// id order, for snapshot export.
func (st *PairState) OpenOrders() []*Order {
	out := make([]*Order, 0, len(st.Orders))
	for _, o := range st.Orders {
		if o.Status == StatusOpen {
			out = append(out, o.clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
