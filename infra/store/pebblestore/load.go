package pebblestore

import (
	"math/big"
	"sort"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"fenrir/domain/amm"
	"fenrir/domain/book"
	"fenrir/engine"
)

// LoadedPair is one pair's reconstructed state.
type LoadedPair struct {
	State *book.PairState
	Pool  *amm.Pool
	Snaps []engine.PricePoint
}

// LoadAll rebuilds everything the store holds: pair states, pools,
// price snapshots, balances and the last applied height. Called once
// at startup, before the engine starts serving.
func (s *Store) LoadAll() (pairs []*LoadedPair, balances []engine.BalanceEntry, lastHeight uint64, err error) {
	loaded := make(map[uint64]*LoadedPair)

	find := func(pair uint64) (*LoadedPair, error) {
		lp := loaded[pair]
		if lp == nil {
			return nil, errors.Wrapf(errCorrupt, "record references unknown pair %d", pair)
		}
		return lp, nil
	}

	err = s.scan("pair/", func(key, val []byte) error {
		p, err := decodePair(val)
		if err != nil {
			return err
		}
		loaded[p.ID] = &LoadedPair{
			State: book.NewPairState(p),
			Pool:  amm.NewPool(new(big.Int), new(big.Int), 0),
		}
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("gen/", func(key, val []byte) error {
		f, err := keyFields(key, "gen/", 2)
		if err != nil {
			return err
		}
		pair, side, err := parsePairSide(f[0], f[1])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		gen, err := decodeU64(val)
		if err != nil {
			return err
		}
		lp.State.RestoreGen(side, gen)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("seq/", func(key, val []byte) error {
		f, err := keyFields(key, "seq/", 1)
		if err != nil {
			return err
		}
		pair, err := parseUint(f[0])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		next, err := decodeU64(val)
		if err != nil {
			return err
		}
		lp.State.RestoreNextOrder(next)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("node/", func(key, val []byte) error {
		f, err := keyFields(key, "node/", 3)
		if err != nil {
			return err
		}
		pair, side, err := parsePairSide(f[0], f[1])
		if err != nil {
			return err
		}
		idx, err := parseUint(f[2])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		n, err := decodeNode(val)
		if err != nil {
			return err
		}
		lp.State.RestoreNode(side, book.NodeIndex(idx), n)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("row/", func(key, val []byte) error {
		f, err := keyFields(key, "row/", 3)
		if err != nil {
			return err
		}
		pair, side, err := parsePairSide(f[0], f[1])
		if err != nil {
			return err
		}
		row, err := parseUint(f[2])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		l, err := decodeRow(val)
		if err != nil {
			return err
		}
		lp.State.RestoreRow(side, uint32(row), l)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("fen/", func(key, val []byte) error {
		f, err := keyFields(key, "fen/", 4)
		if err != nil {
			return err
		}
		pair, side, err := parsePairSide(f[0], f[1])
		if err != nil {
			return err
		}
		row, err := parseUint(f[2])
		if err != nil {
			return err
		}
		idx, err := parseUint(f[3])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		n, err := decodeFen(val)
		if err != nil {
			return err
		}
		lp.State.RestoreFen(side, book.FenKey{Row: uint32(row), Idx: idx}, n)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("order/", func(key, val []byte) error {
		o, err := decodeOrder(val)
		if err != nil {
			return err
		}
		lp, err := find(o.Pair)
		if err != nil {
			return err
		}
		lp.State.RestoreOrder(o)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("pool/", func(key, val []byte) error {
		f, err := keyFields(key, "pool/", 1)
		if err != nil {
			return err
		}
		pair, err := parseUint(f[0])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		p, err := decodePool(val)
		if err != nil {
			return err
		}
		lp.Pool = amm.NewPool(p.BaseReserve, p.QuoteReserve, p.FeePPM)
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("snap/", func(key, val []byte) error {
		f, err := keyFields(key, "snap/", 2)
		if err != nil {
			return err
		}
		pair, err := parseUint(f[0])
		if err != nil {
			return err
		}
		height, err := parseUint(f[1])
		if err != nil {
			return err
		}
		lp, err := find(pair)
		if err != nil {
			return err
		}
		price, err := decodeBigInt(val)
		if err != nil {
			return err
		}
		lp.Snaps = append(lp.Snaps, engine.PricePoint{Height: height, Price: price})
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	err = s.scan("bal/", func(key, val []byte) error {
		f, err := keyFields(key, "bal/", 2)
		if err != nil {
			return err
		}
		amount, err := decodeBigInt(val)
		if err != nil {
			return err
		}
		balances = append(balances, engine.BalanceEntry{
			Owner:  f[0],
			Token:  f[1],
			Amount: amount,
		})
		return nil
	})
	if err != nil {
		return nil, nil, 0, err
	}

	if val, closer, gerr := s.db.Get(heightKey); gerr == nil {
		lastHeight, err = decodeU64(val)
		closer.Close()
		if err != nil {
			return nil, nil, 0, err
		}
	} else if !errors.Is(gerr, pebble.ErrNotFound) {
		return nil, nil, 0, gerr
	}

	pairs = make([]*LoadedPair, 0, len(loaded))
	for _, lp := range loaded {
		pairs = append(pairs, lp)
	}
	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].State.Pair.ID < pairs[j].State.Pair.ID
	})
	return pairs, balances, lastHeight, nil
}

func (s *Store) scan(prefix string, fn func(key, val []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if err := fn(iter.Key(), iter.Value()); err != nil {
			return err
		}
	}
	return iter.Error()
}

func parsePairSide(pairField, sideField string) (uint64, book.Side, error) {
	pair, err := parseUint(pairField)
	if err != nil {
		return 0, 0, err
	}
	side, err := parseUint(sideField)
	if err != nil {
		return 0, 0, err
	}
	if side > 1 {
		return 0, 0, errors.Wrapf(errCorrupt, "side %d out of range", side)
	}
	return pair, book.Side(side), nil
}
