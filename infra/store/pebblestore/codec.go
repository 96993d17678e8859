package pebblestore

import (
	"encoding/binary"
	"hash/crc32"
	"math/big"

	"github.com/pkg/errors"

	"fenrir/domain/book"
	"fenrir/engine"
)

// Records are framed as [crc32:4][payload] with fixed big-endian
// field layouts. A CRC mismatch means disk corruption and fails the
// whole load.

var errCorrupt = errors.New("pebblestore: corrupt record")

// -------------------- writer --------------------

type writer struct {
	buf []byte
}

func newWriter() *writer {
	// leave room for the crc header
	return &writer{buf: make([]byte, 4, 64)}
}

func (w *writer) u8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) u32(v uint32) { w.buf = binary.BigEndian.AppendUint32(w.buf, v) }
func (w *writer) u64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }

func (w *writer) flag(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) bytes(b []byte) {
	w.u32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *writer) str(s string) { w.bytes([]byte(s)) }

func (w *writer) bigInt(v *big.Int) {
	if v == nil {
		v = new(big.Int)
	}
	w.flag(v.Sign() < 0)
	w.bytes(v.Bytes())
}

func (w *writer) seal() []byte {
	binary.BigEndian.PutUint32(w.buf[:4], crc32.ChecksumIEEE(w.buf[4:]))
	return w.buf
}

// -------------------- reader --------------------

type reader struct {
	b   []byte
	err error
}

func openRecord(data []byte) *reader {
	if len(data) < 4 {
		return &reader{err: errCorrupt}
	}
	sum := binary.BigEndian.Uint32(data[:4])
	payload := data[4:]
	if crc32.ChecksumIEEE(payload) != sum {
		return &reader{err: errors.Wrap(errCorrupt, "crc mismatch")}
	}
	// copy: pebble reuses the value buffer after the iterator advances
	b := make([]byte, len(payload))
	copy(b, payload)
	return &reader{b: b}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.b) < n {
		r.err = errors.Wrap(errCorrupt, "short record")
		return nil
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) flag() bool { return r.u8() != 0 }

func (r *reader) bytes() []byte {
	n := r.u32()
	return r.take(int(n))
}

func (r *reader) str() string { return string(r.bytes()) }

func (r *reader) bigInt() *big.Int {
	neg := r.flag()
	v := new(big.Int).SetBytes(r.bytes())
	if neg {
		v.Neg(v)
	}
	return v
}

// -------------------- records --------------------

func encodePair(p *book.Pair) []byte {
	w := newWriter()
	w.u64(p.ID)
	w.str(p.BaseToken)
	w.str(p.QuoteToken)
	w.u8(p.TreeWidth)
	w.bigInt(p.PriceTick)
	w.u8(p.BaseDecimals)
	w.u8(p.QuoteDecimals)
	w.flag(p.DecimalsLocked)
	w.flag(p.TradingPaused)
	w.flag(p.ManagementPaused)
	w.i64(p.CreatedAt)
	return w.seal()
}

func decodePair(data []byte) (*book.Pair, error) {
	r := openRecord(data)
	p := &book.Pair{
		ID:               r.u64(),
		BaseToken:        r.str(),
		QuoteToken:       r.str(),
		TreeWidth:        r.u8(),
		PriceTick:        r.bigInt(),
		BaseDecimals:     r.u8(),
		QuoteDecimals:    r.u8(),
		DecimalsLocked:   r.flag(),
		TradingPaused:    r.flag(),
		ManagementPaused: r.flag(),
		CreatedAt:        r.i64(),
	}
	return p, r.err
}

func encodeNode(n *book.PriceNode) []byte {
	w := newWriter()
	w.bigInt(n.BaseAmount)
	w.bigInt(n.QuoteTotal)
	w.u64(n.Gen)
	return w.seal()
}

func decodeNode(data []byte) (*book.PriceNode, error) {
	r := openRecord(data)
	n := &book.PriceNode{
		BaseAmount: r.bigInt(),
		QuoteTotal: r.bigInt(),
		Gen:        r.u64(),
	}
	return n, r.err
}

func encodeRow(l *book.RowLedger) []byte {
	w := newWriter()
	w.bigInt(l.PlacedBase)
	w.bigInt(l.PlacedQuote)
	w.bigInt(l.ExecutedBase)
	w.bigInt(l.ExecutedQuote)
	w.bigInt(l.CancelledBase)
	w.bigInt(l.CancelledQuote)
	w.u64(l.NextCancelSeq)
	return w.seal()
}

func decodeRow(data []byte) (*book.RowLedger, error) {
	r := openRecord(data)
	l := &book.RowLedger{
		PlacedBase:     r.bigInt(),
		PlacedQuote:    r.bigInt(),
		ExecutedBase:   r.bigInt(),
		ExecutedQuote:  r.bigInt(),
		CancelledBase:  r.bigInt(),
		CancelledQuote: r.bigInt(),
		NextCancelSeq:  r.u64(),
	}
	return l, r.err
}

func encodeFen(n *book.FenNode) []byte {
	w := newWriter()
	w.bigInt(n.Base)
	w.bigInt(n.Quote)
	return w.seal()
}

func decodeFen(data []byte) (*book.FenNode, error) {
	r := openRecord(data)
	n := &book.FenNode{Base: r.bigInt(), Quote: r.bigInt()}
	return n, r.err
}

func encodeOrder(o *book.Order) []byte {
	w := newWriter()
	w.u64(o.ID)
	w.u64(o.Pair)
	w.str(o.Owner)
	w.flag(o.IsBuy)
	w.u32(o.Price)
	w.bigInt(o.TotalBase)
	w.bigInt(o.TotalQuote)
	w.bigInt(o.PlacedBase)
	w.bigInt(o.PlacedQuote)
	w.bigInt(o.AmmBase)
	w.bigInt(o.AmmQuote)
	w.bigInt(o.PreMatchedBase)
	w.bigInt(o.PreMatchedQuote)
	w.u64(o.GenAtInsert)
	w.bigInt(o.PlacedBaseAtInsert)
	w.bigInt(o.PlacedQuoteAtInsert)
	w.u64(o.CancelSeq)
	w.bigInt(o.ClaimedBase)
	w.bigInt(o.ClaimedQuote)
	w.bigInt(o.CancelledBase)
	w.bigInt(o.CancelledQuote)
	w.bigInt(o.FeeAmount)
	w.i64(o.CreatedAt)
	w.u64(o.UserRef)
	w.u8(uint8(o.Status))
	return w.seal()
}

func decodeOrder(data []byte) (*book.Order, error) {
	r := openRecord(data)
	o := &book.Order{
		ID:                  r.u64(),
		Pair:                r.u64(),
		Owner:               r.str(),
		IsBuy:               r.flag(),
		Price:               r.u32(),
		TotalBase:           r.bigInt(),
		TotalQuote:          r.bigInt(),
		PlacedBase:          r.bigInt(),
		PlacedQuote:         r.bigInt(),
		AmmBase:             r.bigInt(),
		AmmQuote:            r.bigInt(),
		PreMatchedBase:      r.bigInt(),
		PreMatchedQuote:     r.bigInt(),
		GenAtInsert:         r.u64(),
		PlacedBaseAtInsert:  r.bigInt(),
		PlacedQuoteAtInsert: r.bigInt(),
		CancelSeq:           r.u64(),
		ClaimedBase:         r.bigInt(),
		ClaimedQuote:        r.bigInt(),
		CancelledBase:       r.bigInt(),
		CancelledQuote:      r.bigInt(),
		FeeAmount:           r.bigInt(),
		CreatedAt:           r.i64(),
		UserRef:             r.u64(),
		Status:              book.OrderStatus(r.u8()),
	}
	return o, r.err
}

func encodeBigInt(v *big.Int) []byte {
	w := newWriter()
	w.bigInt(v)
	return w.seal()
}

func decodeBigInt(data []byte) (*big.Int, error) {
	r := openRecord(data)
	v := r.bigInt()
	return v, r.err
}

func encodeU64(v uint64) []byte {
	w := newWriter()
	w.u64(v)
	return w.seal()
}

func decodeU64(data []byte) (uint64, error) {
	r := openRecord(data)
	v := r.u64()
	return v, r.err
}

func encodePool(p *engine.PoolUpdate) []byte {
	w := newWriter()
	w.bigInt(p.BaseReserve)
	w.bigInt(p.QuoteReserve)
	w.u32(p.FeePPM)
	return w.seal()
}

func decodePool(data []byte) (*engine.PoolUpdate, error) {
	r := openRecord(data)
	p := &engine.PoolUpdate{
		BaseReserve:  r.bigInt(),
		QuoteReserve: r.bigInt(),
		FeePPM:       r.u32(),
	}
	return p, r.err
}
