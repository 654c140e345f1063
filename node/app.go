package node

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite" // sqlite driver for the alert index
	"github.com/phoreproject/sentinel/csmt"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/notifier"
	"github.com/phoreproject/sentinel/rpc"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "node")

const shutdownTimeout = 10 * time.Second

var stateTreePrefix = []byte("state-")

// NodeApp runs a ledger with the fraud program deployed, its alert sinks, the alert index and the HTTP API.
type NodeApp struct {
	// config is the config passed to the app.
	config Config

	// exitChan receives a struct when an exit is requested.
	exitChan chan struct{}
	exited   *sync.Mutex
	exitOnce sync.Once

	store     ledger.AccountStore
	treeDB    csmt.TreeDatabase
	treeStore *ledger.BadgerStore
	runtime   *ledger.Runtime

	alertsDB    *gorm.DB
	alerts      *indexer.Database
	indexer     *indexer.Indexer
	channel     *notifier.ChannelSink
	pending     <-chan *notifier.Alert
	unsubscribe func()
	kafka       *notifier.KafkaSink
	redis       *redis.Client

	server *rpc.Server
	cancel context.CancelFunc
	done   chan struct{}
}

// NewNodeApp opens the databases described by config and wires the node together.
func NewNodeApp(config Config) (*NodeApp, error) {
	app := &NodeApp{
		config:   config,
		exitChan: make(chan struct{}, 1),
		exited:   new(sync.Mutex),
		done:     make(chan struct{}),
	}
	app.exited.Lock()

	if err := app.loadDatabase(); err != nil {
		app.close()
		return nil, err
	}
	if err := app.loadRuntime(); err != nil {
		app.close()
		return nil, err
	}
	if err := app.loadIndexer(); err != nil {
		app.close()
		return nil, err
	}
	app.loadSinks()

	app.server = rpc.NewServer(app.runtime, app.config.ProgramID, app.alerts)

	return app, nil
}

// Runtime returns the ledger runtime of the node.
func (app *NodeApp) Runtime() *ledger.Runtime {
	return app.runtime
}

// Alerts returns the alert index of the node.
func (app *NodeApp) Alerts() *indexer.Database {
	return app.alerts
}

// Handler returns the HTTP API handler.
func (app *NodeApp) Handler() http.Handler {
	return app.server.Handler()
}

func (app *NodeApp) loadDatabase() error {
	if app.config.Store == StoreMemory {
		log.Info("using in-memory ledger")
		app.store = ledger.NewMemoryStore()
		app.treeDB = csmt.NewInMemoryTreeDB()
		return nil
	}

	dir := app.config.DataDirectory
	if dir == "" {
		d, err := GetBaseDirectory()
		if err != nil {
			return err
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0777); err != nil {
		return errors.Wrapf(err, "error creating data directory %s", dir)
	}

	ledgerDir := filepath.Join(dir, "ledger")
	log.WithFields(logrus.Fields{"store": app.config.Store, "dir": ledgerDir}).Info("initializing database")

	switch app.config.Store {
	case StoreBadger:
		store, err := ledger.OpenBadgerStore(ledgerDir)
		if err != nil {
			return err
		}
		app.store = store
		app.treeDB = csmt.NewBadgerTreeDB(store.DB(), stateTreePrefix)
	case StorePebble:
		store, err := ledger.OpenPebbleStore(ledgerDir, nil)
		if err != nil {
			return err
		}
		app.store = store

		// the state tree only has a badger backend
		treeStore, err := ledger.OpenBadgerStore(filepath.Join(dir, "state"))
		if err != nil {
			return err
		}
		app.treeStore = treeStore
		app.treeDB = csmt.NewBadgerTreeDB(treeStore.DB(), stateTreePrefix)
	default:
		return errors.Errorf("unknown store %q", app.config.Store)
	}

	return nil
}

func (app *NodeApp) loadRuntime() error {
	clock := app.config.Clock
	if clock == nil {
		clock = ledger.NTPClock{}
	}

	r, err := ledger.NewRuntime(app.store, app.treeDB, clock)
	if err != nil {
		return err
	}

	var verifier sentinel.AuthorityVerifier = sentinel.NoopVerifier{}
	if len(app.config.Oracles) > 0 {
		verifier = sentinel.NewOracleVerifier(app.config.Oracles...)
		log.WithField("oracles", len(app.config.Oracles)).Info("checking oracle signatures")
	}
	r.RegisterProgram(app.config.ProgramID, sentinel.NewProgram(verifier))

	root, err := r.StateRoot()
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"program": app.config.ProgramID,
		"slot":    r.Slot(),
		"root":    root,
	}).Info("loaded ledger")

	app.runtime = r
	return nil
}

func (app *NodeApp) loadIndexer() error {
	log.WithField("path", app.config.IndexerPath).Info("opening alert index")

	db, err := gorm.Open("sqlite3", app.config.IndexerPath)
	if err != nil {
		return errors.Wrap(err, "error opening alert index")
	}
	// sqlite does not handle concurrent writers
	db.DB().SetMaxOpenConns(1)
	app.alertsDB = db

	alerts, err := indexer.NewDatabase(db)
	if err != nil {
		return err
	}
	app.alerts = alerts
	app.indexer = indexer.NewIndexer(alerts, app.config.ProgramID)
	return nil
}

func (app *NodeApp) loadSinks() {
	app.runtime.AddSink(notifier.Sink{AlertSink: notifier.LogSink{}})

	app.channel = notifier.NewChannelSink()
	app.pending, app.unsubscribe = app.channel.Subscribe(app.config.AlertBuffer)
	app.runtime.AddSink(notifier.Sink{AlertSink: app.channel})

	if len(app.config.KafkaBrokers) > 0 {
		log.WithFields(logrus.Fields{
			"brokers": app.config.KafkaBrokers,
			"topic":   app.config.KafkaTopic,
		}).Info("publishing alerts to kafka")
		app.kafka = notifier.NewKafkaSink(notifier.NewKafkaWriter(app.config.KafkaBrokers, app.config.KafkaTopic))
		app.runtime.AddSink(notifier.Sink{AlertSink: app.kafka})
	}

	if app.config.RedisAddr != "" {
		log.WithFields(logrus.Fields{
			"addr":    app.config.RedisAddr,
			"channel": app.config.RedisChannel,
		}).Info("publishing alerts to redis")
		app.redis = redis.NewClient(&redis.Options{
			Addr:     app.config.RedisAddr,
			Password: app.config.RedisPassword,
		})
		app.runtime.AddSink(notifier.Sink{AlertSink: notifier.NewRedisSink(app.redis, app.config.RedisChannel)})
	}
}

// Run starts the indexer and the API and blocks until the node exits.
func (app *NodeApp) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel

	go func() {
		app.indexer.Run(ctx, app.pending)
		close(app.done)
	}()

	signalHandler := make(chan os.Signal, 1)
	signal.Notify(signalHandler, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signalHandler)
	go app.listenForInterrupt(ctx, signalHandler)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- app.server.Start(app.config.APIAddress)
	}()

	return app.runMainLoop(serverErr)
}

func (app *NodeApp) runMainLoop(serverErr chan error) error {
	var err error
	select {
	case <-app.exitChan:
	case err = <-serverErr:
		if err != nil {
			log.WithError(err).Error("API server stopped")
		}
	}

	app.exit()
	log.Info("exiting")

	return err
}

func (app *NodeApp) listenForInterrupt(ctx context.Context, signalHandler chan os.Signal) {
	select {
	case <-signalHandler:
		app.Exit()
	case <-ctx.Done():
	}
}

func (app *NodeApp) exit() {
	app.exitOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.server.Shutdown(ctx); err != nil {
			log.WithError(err).Error("error shutting down API server")
		}

		if app.cancel != nil {
			app.cancel()
			<-app.done
		}

		app.close()
		app.exited.Unlock()
	})
}

// close releases whatever has been opened so far.
func (app *NodeApp) close() {
	if app.unsubscribe != nil {
		app.unsubscribe()
	}
	if app.kafka != nil {
		if err := app.kafka.Close(); err != nil {
			log.WithError(err).Error("error closing kafka writer")
		}
	}
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			log.WithError(err).Error("error closing redis client")
		}
	}
	if app.alertsDB != nil {
		if err := app.alertsDB.Close(); err != nil {
			log.WithError(err).Error("error closing alert index")
		}
	}
	if app.store != nil {
		if err := app.store.Close(); err != nil {
			log.WithError(err).Error("error closing ledger database")
		}
	}
	if app.treeStore != nil {
		if err := app.treeStore.Close(); err != nil {
			log.WithError(err).Error("error closing state database")
		}
	}
}

// Exit sends a request to exit the application.
func (app *NodeApp) Exit() {
	select {
	case app.exitChan <- struct{}{}:
	default:
	}
}

// WaitForExit waits for the node to exit.
func (app *NodeApp) WaitForExit() {
	app.exited.Lock()
	defer app.exited.Unlock()
}
