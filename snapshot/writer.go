package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"fenrir/domain/book"
)

type Writer struct {
	Dir string
}

// Write exports the pair's open orders. The file is written fresh
// each time; partially written files from a crash are overwritten on
// the next run.
func (w *Writer) Write(height uint64, st *book.PairState) error {
	if err := os.MkdirAll(w.Dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(w.Dir, fmt.Sprintf("pair-%d.snapshot", st.Pair.ID))
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	open := st.OpenOrders()
	s := Snapshot{
		Pair:    st.Pair.ID,
		Height:  height,
		Created: time.Now(),
		Orders:  make([]OrderEntry, 0, len(open)),
	}
	for _, o := range open {
		s.Orders = append(s.Orders, entryOf(o))
	}

	return gob.NewEncoder(f).Encode(&s)
}
