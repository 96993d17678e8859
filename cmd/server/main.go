package main

import (
	"context"
	"flag"
	"time"

	"github.com/sirupsen/logrus"

	"fenrir/api/ws"
	"fenrir/config"
	"fenrir/engine"
	"fenrir/infra/feed"
	"fenrir/infra/sequence"
	"fenrir/infra/store/pebblestore"
	"fenrir/jobs/broadcaster"
	"fenrir/snapshot"
)

func main() {
	cfgFile := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := logrus.New()

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logger.Fatalf("config load failed: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	// ---------------- Store ----------------

	store, err := pebblestore.Open(cfg.DataDir)
	if err != nil {
		logger.Fatalf("store init failed: %v", err)
	}
	defer store.Close()

	pairs, balances, lastHeight, err := store.LoadAll()
	if err != nil {
		logger.Fatalf("store load failed: %v", err)
	}

	// ---------------- Backend chain ----------------

	var backend engine.Backend = store

	var priceFeed *feed.PriceFeed
	if len(cfg.KafkaBrokers) > 0 {
		priceFeed = feed.NewPriceFeed(cfg.KafkaBrokers, cfg.PriceTopic, logger)
		defer priceFeed.Close()
		backend = &feed.Tee{Inner: store, Feed: priceFeed}
	}

	// ---------------- Engine ----------------

	heights := sequence.New(lastHeight)
	eng := engine.New(engine.Options{
		Backend:     backend,
		Clock:       heightClock{heights},
		TakerFeePPM: cfg.TakerFeePPM,
		FeeSink:     cfg.FeeSink,
		Logger:      logger,
	})
	for _, lp := range pairs {
		eng.RestorePair(lp.State, lp.Pool, lp.Snaps)
	}
	for _, b := range balances {
		eng.Balances().Restore(b.Owner, b.Token, b.Amount)
	}
	logger.WithFields(logrus.Fields{
		"pairs":  len(pairs),
		"height": lastHeight,
	}).Info("state restored")

	// ---------------- Background Jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(cfg.KafkaBrokers) > 0 {
		bc, err := broadcaster.New(store, cfg.KafkaBrokers, cfg.EventTopic, logger)
		if err != nil {
			logger.Fatalf("broadcaster init failed: %v", err)
		}
		defer bc.Close()
		bc.Start(ctx)
	}

	if cfg.SnapshotDir != "" {
		job := &snapshot.Job{
			Writer:   &snapshot.Writer{Dir: cfg.SnapshotDir},
			Source:   eng,
			Heights:  heights,
			Interval: time.Duration(cfg.SnapshotIntervalSeconds) * time.Second,
			Log:      logger.WithField("component", "snapshot"),
		}
		job.Start(ctx)
	}

	// ---------------- API ----------------

	server := ws.NewServer(eng, logger)
	if err := server.ListenAndServe(cfg.ListenAddress); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

// heightClock adapts the sequencer to the engine's Clock.
type heightClock struct {
	seq *sequence.Sequencer
}

func (c heightClock) Height() uint64 { return c.seq.Next() }
