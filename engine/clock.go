package engine

import "fenrir/infra/sequence"

// Clock supplies the strictly increasing height stamped onto committed
// operations and AMM price snapshots. Embedders with an external
// notion of height (a chain, a consensus log) inject their own; the
// default is a process-local sequencer.
type Clock interface {
	Height() uint64
}

type sequencerClock struct {
	seq *sequence.Sequencer
}

// NewSequencerClock returns a Clock backed by a monotonic sequencer,
// starting above last (the highest height already persisted).
func NewSequencerClock(last uint64) Clock {
	return &sequencerClock{seq: sequence.New(last)}
}

func (c *sequencerClock) Height() uint64 { return c.seq.Next() }
