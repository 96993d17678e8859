// Package pebblestore persists engine change sets in a pebble
// keyspace. Every Apply is one synced batch, so a change set lands
// atomically or not at all; the outbox records written alongside feed
// the broadcaster.
package pebblestore

import (
	"encoding/json"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"fenrir/domain/book"
	"fenrir/engine"
)

type Store struct {
	db *pebble.DB
}

func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false, // we WANT durability
	})
	if err != nil {
		return nil, errors.Wrap(err, "pebblestore: open")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

var _ engine.Backend = (*Store)(nil)

// Apply implements engine.Backend: one synced batch per change set.
func (s *Store) Apply(cs *engine.ChangeSet) error {
	b := s.db.NewBatch()
	defer b.Close()

	set := func(key, val []byte) {
		_ = b.Set(key, val, nil)
	}

	if cs.NewPair != nil {
		set(pairKey(cs.NewPair.ID), encodePair(cs.NewPair))
	}
	if bk := cs.Book; bk != nil {
		if bk.Pair != nil {
			set(pairKey(bk.PairID), encodePair(bk.Pair))
		}
		for side := 0; side < 2; side++ {
			if bk.Gen[side] != nil {
				set(genKey(bk.PairID, book.Side(side)), encodeU64(*bk.Gen[side]))
			}
			for idx, n := range bk.Nodes[side] {
				set(nodeKey(bk.PairID, book.Side(side), idx), encodeNode(n))
			}
			for row, l := range bk.Rows[side] {
				set(rowKey(bk.PairID, book.Side(side), row), encodeRow(l))
			}
			for k, n := range bk.Fen[side] {
				set(fenKey(bk.PairID, book.Side(side), k), encodeFen(n))
			}
		}
		if bk.NextOrder != nil {
			set(seqKey(bk.PairID), encodeU64(*bk.NextOrder))
		}
		for _, o := range bk.Orders {
			set(orderKey(bk.PairID, o.ID), encodeOrder(o))
		}
	}
	for _, e := range cs.Balances {
		set(balanceKey(e.Owner, e.Token), encodeBigInt(e.Amount))
	}
	if cs.Pool != nil {
		set(poolKey(cs.PairID), encodePool(cs.Pool))
	}
	if cs.Snapshot != nil {
		set(snapKey(cs.PairID, cs.Snapshot.Height), encodeBigInt(cs.Snapshot.Price))
	}
	for i, ev := range cs.Events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return errors.Wrap(err, "pebblestore: encode event")
		}
		set(outboxKey(cs.Height, i), encodeOutbox(outboxRecord{
			State:   OutboxNew,
			Payload: payload,
		}))
	}
	set(heightKey, encodeU64(cs.Height))

	return errors.Wrap(b.Commit(pebble.Sync), "pebblestore: commit")
}
