// Package config loads the server configuration from a YAML file
// and FENRIR_-prefixed environment variables.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config represents the parsed config file.
type Config struct {
	// ListenAddress is the websocket API address.
	ListenAddress string `mapstructure:"listen_address"`

	// DataDir holds the pebble store.
	DataDir string `mapstructure:"data_dir"`

	// SnapshotDir holds gob order snapshots; empty disables the job.
	SnapshotDir             string `mapstructure:"snapshot_dir"`
	SnapshotIntervalSeconds int    `mapstructure:"snapshot_interval_seconds"`

	// Kafka wiring; empty broker list disables publication.
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	EventTopic   string   `mapstructure:"event_topic"`
	PriceTopic   string   `mapstructure:"price_topic"`

	// TakerFeePPM is the engine fee on received legs, parts per
	// million, credited to FeeSink.
	TakerFeePPM uint32 `mapstructure:"taker_fee_ppm"`
	FeeSink     string `mapstructure:"fee_sink"`

	LogLevel string `mapstructure:"log_level"`
}

// Load reads the configuration. file may be empty, in which case
// defaults and environment variables apply.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetDefault("listen_address", ":8080")
	v.SetDefault("data_dir", "./data")
	v.SetDefault("snapshot_dir", "")
	v.SetDefault("snapshot_interval_seconds", 60)
	v.SetDefault("event_topic", "fenrir.events")
	v.SetDefault("price_topic", "fenrir.prices")
	v.SetDefault("taker_fee_ppm", 0)
	v.SetDefault("fee_sink", "fees")
	v.SetDefault("log_level", "info")

	v.SetEnvPrefix("FENRIR")
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "config: read")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}
