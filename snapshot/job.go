package snapshot

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"fenrir/domain/book"
)

// StateSource is the read surface the job needs; the engine satisfies
// it.
type StateSource interface {
	Pairs() []uint64
	ViewPair(pairID uint64, fn func(st *book.PairState) error) error
}

// HeightSource reports the last committed height, for stamping.
type HeightSource interface {
	Current() uint64
}

// Job periodically exports every pair.
type Job struct {
	Writer   *Writer
	Source   StateSource
	Heights  HeightSource
	Interval time.Duration
	Log      *logrus.Entry
}

func (j *Job) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(j.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				j.runOnce()
			}
		}
	}()
}

func (j *Job) runOnce() {
	h := uint64(0)
	if j.Heights != nil {
		h = j.Heights.Current()
	}
	for _, pair := range j.Source.Pairs() {
		err := j.Source.ViewPair(pair, func(st *book.PairState) error {
			return j.Writer.Write(h, st)
		})
		if err != nil && j.Log != nil {
			j.Log.WithError(err).WithField("pair", pair).Warn("snapshot failed")
		}
	}
}
