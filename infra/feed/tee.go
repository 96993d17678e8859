package feed

import (
	"context"

	"fenrir/engine"
)

// Tee is a persistence decorator: change sets pass through to the
// inner backend and any price snapshot is published on the way.
type Tee struct {
	Inner engine.Backend
	Feed  *PriceFeed
}

var _ engine.Backend = (*Tee)(nil)

func (t *Tee) Apply(cs *engine.ChangeSet) error {
	if cs.Snapshot != nil && t.Feed != nil {
		t.Feed.Publish(context.Background(), PriceTick{
			Pair:   cs.PairID,
			Height: cs.Snapshot.Height,
			Price:  cs.Snapshot.Price.String(),
		})
	}
	return t.Inner.Apply(cs)
}
