package pebblestore

import (
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type OutboxState uint8

const (
	OutboxNew OutboxState = iota
	OutboxSent
	OutboxAcked
	OutboxFailed
)

func (s OutboxState) String() string {
	switch s {
	case OutboxNew:
		return "NEW"
	case OutboxSent:
		return "SENT"
	case OutboxAcked:
		return "ACKED"
	case OutboxFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type outboxRecord struct {
	State       OutboxState
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

func encodeOutbox(r outboxRecord) []byte {
	w := newWriter()
	w.u8(uint8(r.State))
	w.u32(r.Retries)
	w.i64(r.LastAttempt)
	w.bytes(r.Payload)
	return w.seal()
}

func decodeOutbox(data []byte) (outboxRecord, error) {
	r := openRecord(data)
	rec := outboxRecord{
		State:       OutboxState(r.u8()),
		Retries:     r.u32(),
		LastAttempt: r.i64(),
		Payload:     r.bytes(),
	}
	return rec, r.err
}

// -------------------- API --------------------

// OutboxEntry is one pending event as seen by the broadcaster.
type OutboxEntry struct {
	Key     []byte
	State   OutboxState
	Retries uint32
	Payload []byte
}

// ScanOutbox iterates all outbox records in the given state, in key
// (height) order.
func (s *Store) ScanOutbox(state OutboxState, fn func(e OutboxEntry) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("outbox/"),
		UpperBound: upperBound("outbox/"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeOutbox(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}
		key := make([]byte, len(iter.Key()))
		copy(key, iter.Key())
		if err := fn(OutboxEntry{
			Key:     key,
			State:   rec.State,
			Retries: rec.Retries,
			Payload: rec.Payload,
		}); err != nil {
			return err
		}
	}
	return iter.Error()
}

// UpdateOutbox records a send attempt's outcome.
func (s *Store) UpdateOutbox(key []byte, state OutboxState, retries uint32) error {
	val, closer, err := s.db.Get(key)
	if err != nil {
		return err
	}
	rec, err := decodeOutbox(val)
	closer.Close()
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries = retries
	rec.LastAttempt = time.Now().UnixNano()
	return s.db.Set(key, encodeOutbox(rec), pebble.Sync)
}

// DeleteOutbox removes an acked record.
func (s *Store) DeleteOutbox(key []byte) error {
	return s.db.Delete(key, pebble.Sync)
}
