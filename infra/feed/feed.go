// Package feed publishes AMM price snapshots. Publication is
// best-effort: a slow or absent broker never blocks or fails the
// operation that produced the snapshot.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// PriceTick is the published message.
type PriceTick struct {
	Pair   uint64 `json:"pair"`
	Height uint64 `json:"height"`
	Price  string `json:"price"`
}

type PriceFeed struct {
	writer *kafka.Writer
	log    *logrus.Entry
}

func NewPriceFeed(brokers []string, topic string, logger *logrus.Logger) *PriceFeed {
	return &PriceFeed{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        true,
			BatchTimeout: 10 * time.Millisecond,
		},
		log: logger.WithField("component", "pricefeed"),
	}
}

// Publish sends one snapshot, keyed by pair so per-pair ordering
// holds within a partition.
func (f *PriceFeed) Publish(ctx context.Context, tick PriceTick) {
	value, err := json.Marshal(tick)
	if err != nil {
		f.log.WithError(err).Error("encode tick")
		return
	}
	err = f.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", tick.Pair)),
		Value: value,
	})
	if err != nil {
		f.log.WithError(err).Warn("publish tick")
	}
}

func (f *PriceFeed) Close() error {
	return f.writer.Close()
}
