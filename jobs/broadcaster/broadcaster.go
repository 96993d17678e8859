// Package broadcaster drains the persistent event outbox to Kafka.
// Events survive crashes in the outbox and are retried until acked,
// so downstream consumers see every committed operation at least
// once.
package broadcaster

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"

	"fenrir/infra/store/pebblestore"
)

// maxRetries before an event is parked as FAILED for operator
// attention.
const maxRetries = 10

type Broadcaster struct {
	store    *pebblestore.Store
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *logrus.Entry
}

// ------------------------------------------------
// CONSTRUCTOR
// ------------------------------------------------

func New(
	store *pebblestore.Store,
	brokers []string,
	topic string,
	logger *logrus.Logger,
) (*Broadcaster, error) {

	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	return &Broadcaster{
		store:    store,
		producer: producer,
		topic:    topic,
		interval: 250 * time.Millisecond,
		log:      logger.WithField("component", "broadcaster"),
	}, nil
}

// ------------------------------------------------
// START LOOP
// ------------------------------------------------

func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("started")

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return

			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

// ------------------------------------------------
// DRAIN LOGIC
// ------------------------------------------------

func (b *Broadcaster) drainOnce() {
	err := b.store.ScanOutbox(pebblestore.OutboxNew, func(e pebblestore.OutboxEntry) error {

		// 1. Mark SENT before the attempt (idempotent).
		if err := b.store.UpdateOutbox(e.Key, pebblestore.OutboxSent, e.Retries); err != nil {
			return err
		}

		// 2. Publish.
		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Value: sarama.ByteEncoder(e.Payload),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.WithError(err).Warn("publish failed")
			state := pebblestore.OutboxNew // retry next tick
			if e.Retries+1 >= maxRetries {
				state = pebblestore.OutboxFailed
			}
			return b.store.UpdateOutbox(e.Key, state, e.Retries+1)
		}

		// 3. Mark ACKED and drop the record.
		if err := b.store.UpdateOutbox(e.Key, pebblestore.OutboxAcked, e.Retries); err != nil {
			return err
		}
		return b.store.DeleteOutbox(e.Key)
	})
	if err != nil {
		b.log.WithError(err).Error("outbox scan failed")
	}

	// Records stuck in SENT mean a crash between send and ack; requeue
	// them, duplicates are acceptable.
	_ = b.store.ScanOutbox(pebblestore.OutboxSent, func(e pebblestore.OutboxEntry) error {
		return b.store.UpdateOutbox(e.Key, pebblestore.OutboxNew, e.Retries)
	})
}

// ------------------------------------------------
// SHUTDOWN
// ------------------------------------------------

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
