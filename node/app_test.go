package node_test

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/phoreproject/sentinel/client"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/node"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
)

func testConfig(t *testing.T, store string) node.Config {
	c := node.NewConfig()
	c.Store = store
	c.APIAddress = "127.0.0.1:0"
	c.Clock = ledger.FixedClock(1700000000)
	if store != node.StoreMemory {
		c.DataDirectory = t.TempDir()
		c.IndexerPath = filepath.Join(c.DataDirectory, "alerts.db")
	}
	return c
}

func startNode(t *testing.T, c node.Config) (*node.NodeApp, chan error) {
	t.Helper()

	app, err := node.NewNodeApp(c)
	if err != nil {
		t.Fatal(err)
	}
	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run()
	}()
	return app, errChan
}

func stopNode(t *testing.T, app *node.NodeApp, errChan chan error) {
	t.Helper()

	app.Exit()
	app.WaitForExit()
	if err := <-errChan; err != nil {
		t.Fatal(err)
	}
}

func submitFraud(t *testing.T, c *client.Client, sender *ledger.Keypair, id string) *ledger.Receipt {
	t.Helper()

	ix, err := sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, sender.Address(), ledger.SystemProgramID, sentinel.ProcessTransactionArgs{
		TransactionID: id,
		Amount:        5000,
		FraudScore:    91,
		IsFraud:       true,
		Signature:     []byte{0x01, 0x02},
	})
	if err != nil {
		t.Fatal(err)
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(sender)

	receipt, err := c.SubmitTransaction(context.Background(), tx)
	if err != nil {
		t.Fatal(err)
	}
	return receipt
}

func waitForAlert(t *testing.T, db *indexer.Database, id string) *indexer.FraudAlert {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		a, err := db.ByTransactionID(id)
		if err == nil {
			return a
		}
		if errors.Cause(err) != indexer.ErrAlertNotFound {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("alert for %s was never indexed", id)
	return nil
}

func TestNodeIndexesFraudAlerts(t *testing.T) {
	app, errChan := startNode(t, testConfig(t, node.StoreMemory))

	srv := httptest.NewServer(app.Handler())
	defer srv.Close()
	c := client.NewClient(srv.URL)

	sender, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Airdrop(context.Background(), sender.Address(), 1000000000); err != nil {
		t.Fatal(err)
	}

	receipt := submitFraud(t, c, sender, "tx-node")
	if len(receipt.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(receipt.Events))
	}

	alert := waitForAlert(t, app.Alerts(), "tx-node")
	if alert.FraudScore != 91 {
		t.Fatalf("expected score 91, got %d", alert.FraudScore)
	}
	if alert.Signature != receipt.Signature {
		t.Fatal("expected alert to reference the ledger transaction")
	}

	stopNode(t, app, errChan)
}

func TestNodeResumes(t *testing.T) {
	for _, store := range []string{node.StoreBadger, node.StorePebble} {
		t.Run(store, func(t *testing.T) {
			config := testConfig(t, store)

			app, errChan := startNode(t, config)
			srv := httptest.NewServer(app.Handler())
			c := client.NewClient(srv.URL)

			sender, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{4}, 32))
			if err != nil {
				t.Fatal(err)
			}
			if _, err := c.Airdrop(context.Background(), sender.Address(), 1000000000); err != nil {
				t.Fatal(err)
			}
			receipt := submitFraud(t, c, sender, "tx-durable")
			waitForAlert(t, app.Alerts(), "tx-durable")

			srv.Close()
			stopNode(t, app, errChan)

			app, err = node.NewNodeApp(config)
			if err != nil {
				t.Fatal(err)
			}
			errChan = make(chan error, 1)
			go func() {
				errChan <- app.Run()
			}()
			defer stopNode(t, app, errChan)

			if app.Runtime().Slot() != receipt.Slot {
				t.Fatalf("expected slot %d, got %d", receipt.Slot, app.Runtime().Slot())
			}
			root, err := app.Runtime().StateRoot()
			if err != nil {
				t.Fatal(err)
			}
			if root != receipt.StateRoot {
				t.Fatal("expected state root to survive a restart")
			}

			record, _, err := sentinel.LoadRecord(app.Runtime(), sentinel.DefaultProgramID, "tx-durable")
			if err != nil {
				t.Fatal(err)
			}
			if !record.IsFraud || record.FraudScore != 91 {
				t.Fatalf("unexpected record %+v", record)
			}

			if _, err := app.Alerts().ByTransactionID("tx-durable"); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestNodeChecksOracleSignatures(t *testing.T) {
	oracle, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{5}, 32))
	if err != nil {
		t.Fatal(err)
	}
	config := testConfig(t, node.StoreMemory)
	config.Oracles = []ledger.Address{oracle.Address()}

	app, err := node.NewNodeApp(config)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if _, err := app.Runtime().Airdrop(ctx, oracle.Address(), 1000000000); err != nil {
		t.Fatal(err)
	}

	args := sentinel.ProcessTransactionArgs{TransactionID: "tx-oracle", Amount: 1, FraudScore: 10}
	ix, err := sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, oracle.Address(), ledger.SystemProgramID, args)
	if err != nil {
		t.Fatal(err)
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(oracle)
	if _, err := app.Runtime().Execute(ctx, tx); errors.Cause(err) != sentinel.ErrUnauthorized {
		t.Fatalf("expected unsigned verdict to be rejected, got %v", err)
	}

	args.Signature = oracle.Sign(sentinel.OracleMessage(args.TransactionID, args.FraudScore, args.IsFraud))
	ix, err = sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, oracle.Address(), ledger.SystemProgramID, args)
	if err != nil {
		t.Fatal(err)
	}
	tx = &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(oracle)
	if _, err := app.Runtime().Execute(ctx, tx); err != nil {
		t.Fatal(err)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- app.Run()
	}()
	stopNode(t, app, errChan)
}

func TestConfigFromOptions(t *testing.T) {
	options := node.DefaultOptions()
	options.DataDir = t.TempDir()
	options.Store = node.StorePebble
	options.Oracles = []string{sentinel.DefaultProgramID.String(), " "}
	options.KafkaBrokers = []string{"localhost:9092", ""}

	c, err := node.ConfigFromOptions(options)
	if err != nil {
		t.Fatal(err)
	}
	if c.Store != node.StorePebble {
		t.Fatalf("expected pebble store, got %s", c.Store)
	}
	if c.IndexerPath != filepath.Join(options.DataDir, "alerts.db") {
		t.Fatalf("unexpected indexer path %s", c.IndexerPath)
	}
	if len(c.Oracles) != 1 || c.Oracles[0] != sentinel.DefaultProgramID {
		t.Fatalf("unexpected oracles %v", c.Oracles)
	}
	if len(c.KafkaBrokers) != 1 {
		t.Fatalf("unexpected brokers %v", c.KafkaBrokers)
	}
	if c.ProgramID != sentinel.DefaultProgramID {
		t.Fatal("expected default program id")
	}

	options.Store = "leveldb"
	if _, err := node.ConfigFromOptions(options); err == nil {
		t.Fatal("expected unknown store to be rejected")
	}

	options.Store = node.StoreMemory
	options.ProgramID = "not an address"
	if _, err := node.ConfigFromOptions(options); err == nil {
		t.Fatal("expected invalid program id to be rejected")
	}
}
