package node

import (
	"path/filepath"
	"runtime"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
)

// Account store backends.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StorePebble = "pebble"
)

// Options are bare options passed to the node app.
type Options struct {
	DataDir       string   `yaml:"data_dir" cli:"datadir" desc:"directory holding the ledger and alert index"`
	Store         string   `yaml:"store" cli:"store" desc:"account store (memory, badger, pebble)"`
	APIListen     string   `yaml:"api_listen" cli:"api-listen" desc:"address of the HTTP API"`
	ProgramID     string   `yaml:"program_id" cli:"program-id" desc:"address the fraud program is deployed at"`
	Oracles       []string `yaml:"oracles" cli:"oracles" desc:"comma separated oracle keys; when set, signatures are checked"`
	NTPServer     string   `yaml:"ntp_server" cli:"ntp" desc:"NTP server used to correct the ledger clock"`
	IndexerDB     string   `yaml:"indexer_db" cli:"indexer-db" desc:"sqlite file of the alert index (default <datadir>/alerts.db)"`
	AlertBuffer   int      `yaml:"alert_buffer" cli:"alert-buffer" desc:"alerts buffered for the indexer before dropping"`
	KafkaBrokers  []string `yaml:"kafka_brokers" cli:"kafka-brokers" desc:"comma separated kafka brokers for fraud alerts"`
	KafkaTopic    string   `yaml:"kafka_topic" cli:"kafka-topic" desc:"kafka topic for fraud alerts"`
	RedisAddr     string   `yaml:"redis_addr" cli:"redis-addr" desc:"redis server for fraud alerts"`
	RedisPassword string   `yaml:"redis_password" cli:"redis-password" desc:"redis password"`
	RedisChannel  string   `yaml:"redis_channel" cli:"redis-channel" desc:"redis pub/sub channel for fraud alerts"`
	Metrics       bool     `yaml:"metrics" cli:"metrics" desc:"collect go runtime metrics"`
	SentryDSN     string   `yaml:"sentry_dsn" cli:"sentry-dsn" desc:"sentry DSN for crash reports"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Store:        StoreBadger,
		APIListen:    "127.0.0.1:8899",
		ProgramID:    sentinel.DefaultProgramID.String(),
		AlertBuffer:  256,
		KafkaTopic:   "fraud-alerts",
		RedisChannel: "fraud-alerts",
	}
}

// Config is the config of a NodeApp.
type Config struct {
	DataDirectory string
	Store         string
	APIAddress    string
	ProgramID     ledger.Address
	Oracles       []ledger.Address

	// IndexerPath is a sqlite file name. ":memory:" keeps the index in memory.
	IndexerPath string
	AlertBuffer int

	KafkaBrokers  []string
	KafkaTopic    string
	RedisAddr     string
	RedisPassword string
	RedisChannel  string

	// Clock overrides the NTP corrected clock.
	Clock ledger.Clock
}

// NewConfig creates a default Config
func NewConfig() Config {
	return Config{
		Store:        StoreMemory,
		APIAddress:   "127.0.0.1:8899",
		ProgramID:    sentinel.DefaultProgramID,
		IndexerPath:  ":memory:",
		AlertBuffer:  256,
		KafkaTopic:   "fraud-alerts",
		RedisChannel: "fraud-alerts",
	}
}

// ConfigFromOptions validates options and turns them into a Config.
func ConfigFromOptions(options Options) (Config, error) {
	c := NewConfig()

	dir := options.DataDir
	if dir == "" {
		d, err := GetBaseDirectory()
		if err != nil {
			return c, err
		}
		dir = d
	} else {
		d, err := homedir.Expand(dir)
		if err != nil {
			return c, errors.Wrapf(err, "invalid data directory %s", dir)
		}
		dir = d
	}
	c.DataDirectory = dir

	switch options.Store {
	case "":
		c.Store = StoreBadger
	case StoreMemory, StoreBadger, StorePebble:
		c.Store = options.Store
	default:
		return c, errors.Errorf("unknown store %q", options.Store)
	}

	if options.APIListen != "" {
		c.APIAddress = options.APIListen
	}

	if options.ProgramID != "" {
		id, err := ledger.ParseAddress(options.ProgramID)
		if err != nil {
			return c, errors.Wrap(err, "invalid program id")
		}
		c.ProgramID = id
	}

	for _, o := range options.Oracles {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		addr, err := ledger.ParseAddress(o)
		if err != nil {
			return c, errors.Wrapf(err, "invalid oracle key %s", o)
		}
		c.Oracles = append(c.Oracles, addr)
	}

	switch {
	case options.IndexerDB != "":
		c.IndexerPath = options.IndexerDB
	case c.Store == StoreMemory:
		c.IndexerPath = ":memory:"
	default:
		c.IndexerPath = filepath.Join(dir, "alerts.db")
	}

	if options.AlertBuffer > 0 {
		c.AlertBuffer = options.AlertBuffer
	}

	for _, b := range options.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			c.KafkaBrokers = append(c.KafkaBrokers, b)
		}
	}
	if options.KafkaTopic != "" {
		c.KafkaTopic = options.KafkaTopic
	}
	c.RedisAddr = options.RedisAddr
	c.RedisPassword = options.RedisPassword
	if options.RedisChannel != "" {
		c.RedisChannel = options.RedisChannel
	}

	return c, nil
}

func defaultDataPath() string {
	if runtime.GOOS == "darwin" {
		return "~/Library/Application Support"
	}
	return "~"
}

// GetBaseDirectory gets the directory the node keeps its data in when none is configured.
func GetBaseDirectory() (string, error) {
	name := ".sentinel"
	if runtime.GOOS == "darwin" {
		name = "Sentinel"
	}
	dir, err := homedir.Expand(filepath.Join(defaultDataPath(), name))
	if err != nil {
		return "", errors.Wrap(err, "error expanding data directory")
	}
	return dir, nil
}
