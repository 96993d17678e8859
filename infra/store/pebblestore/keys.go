package pebblestore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"fenrir/domain/book"
)

// Key layout, one string prefix per record kind. Fixed-width decimal
// ids keep lexicographic order equal to numeric order, which the
// loaders and the outbox scan rely on.
//
//	pair/<pair>
//	gen/<pair>/<side>
//	seq/<pair>
//	node/<pair>/<side>/<index>
//	row/<pair>/<side>/<row>
//	fen/<pair>/<side>/<row>/<idx>
//	order/<pair>/<order>
//	bal/<owner>/<token>
//	pool/<pair>
//	snap/<pair>/<height>
//	outbox/<height>/<n>
//	meta/height

func pairKey(pair uint64) []byte {
	return []byte(fmt.Sprintf("pair/%020d", pair))
}

func genKey(pair uint64, side book.Side) []byte {
	return []byte(fmt.Sprintf("gen/%020d/%d", pair, side))
}

func seqKey(pair uint64) []byte {
	return []byte(fmt.Sprintf("seq/%020d", pair))
}

func nodeKey(pair uint64, side book.Side, idx book.NodeIndex) []byte {
	return []byte(fmt.Sprintf("node/%020d/%d/%020d", pair, side, uint64(idx)))
}

func rowKey(pair uint64, side book.Side, row uint32) []byte {
	return []byte(fmt.Sprintf("row/%020d/%d/%010d", pair, side, row))
}

func fenKey(pair uint64, side book.Side, k book.FenKey) []byte {
	return []byte(fmt.Sprintf("fen/%020d/%d/%010d/%020d", pair, side, k.Row, k.Idx))
}

func orderKey(pair, order uint64) []byte {
	return []byte(fmt.Sprintf("order/%020d/%020d", pair, order))
}

func balanceKey(owner, token string) []byte {
	return []byte(fmt.Sprintf("bal/%s/%s", owner, token))
}

func poolKey(pair uint64) []byte {
	return []byte(fmt.Sprintf("pool/%020d", pair))
}

func snapKey(pair, height uint64) []byte {
	return []byte(fmt.Sprintf("snap/%020d/%020d", pair, height))
}

func outboxKey(height uint64, n int) []byte {
	return []byte(fmt.Sprintf("outbox/%020d/%05d", height, n))
}

var heightKey = []byte("meta/height")

// keyFields strips the prefix and splits the remainder. Owners and
// tokens must not contain '/'; the API layer enforces that.
func keyFields(key []byte, prefix string, want int) ([]string, error) {
	s := strings.TrimPrefix(string(key), prefix)
	parts := strings.Split(s, "/")
	if len(parts) != want {
		return nil, errors.Wrapf(errCorrupt, "malformed key %q", key)
	}
	return parts, nil
}

func parseUint(s string) (uint64, error) {
	var v uint64
	if _, err := fmt.Sscanf(s, "%d", &v); err != nil {
		return 0, errors.Wrapf(errCorrupt, "malformed key field %q", s)
	}
	return v, nil
}

// upperBound returns the exclusive upper bound for a prefix scan.
func upperBound(prefix string) []byte {
	return []byte(prefix + "~")
}
