package client_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/phoreproject/sentinel/client"
	"github.com/phoreproject/sentinel/csmt"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/notifier"
	"github.com/phoreproject/sentinel/rpc"
	"github.com/phoreproject/sentinel/sentinel"
)

func newTestClient(t *testing.T) *client.Client {
	t.Helper()

	r, err := ledger.NewRuntime(ledger.NewMemoryStore(), csmt.NewInMemoryTreeDB(), ledger.FixedClock(1700000000))
	if err != nil {
		t.Fatal(err)
	}
	r.RegisterProgram(sentinel.DefaultProgramID, sentinel.NewProgram(nil))

	db, err := gorm.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.DB().SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	alerts, err := indexer.NewDatabase(db)
	if err != nil {
		t.Fatal(err)
	}
	r.AddSink(notifier.Sink{AlertSink: indexer.NewIndexer(alerts, sentinel.DefaultProgramID)})

	srv := httptest.NewServer(rpc.NewServer(r, sentinel.DefaultProgramID, alerts).Handler())
	t.Cleanup(srv.Close)

	return client.NewClient(srv.URL)
}

func TestClientRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	sender, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{3}, 32))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Airdrop(ctx, sender.Address(), 1000000000); err != nil {
		t.Fatal(err)
	}

	a, err := c.Account(ctx, sender.Address())
	if err != nil {
		t.Fatal(err)
	}
	if a.Lamports != 1000000000 {
		t.Fatalf("expected airdropped lamports, got %d", a.Lamports)
	}

	ix, err := sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, sender.Address(), ledger.SystemProgramID, sentinel.ProcessTransactionArgs{
		TransactionID: "tx-001",
		Amount:        5000,
		FraudScore:    87,
		IsFraud:       true,
		Signature:     []byte{0x01, 0x02},
	})
	if err != nil {
		t.Fatal(err)
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(sender)

	receipt, err := c.SubmitTransaction(ctx, tx)
	if err != nil {
		t.Fatal(err)
	}
	if len(receipt.Events) != 1 || receipt.Events[0].Name != sentinel.FraudDetectedEvent {
		t.Fatalf("unexpected receipt %+v", receipt)
	}

	record, err := c.Record(ctx, "tx-001")
	if err != nil {
		t.Fatal(err)
	}
	if record.Record.FraudScore != 87 || !bytes.Equal(record.Record.Signature, []byte{0x01, 0x02}) {
		t.Fatalf("unexpected record %+v", record.Record)
	}

	proof, err := c.Proof(ctx, "tx-001")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := proof.Verify(); !ok {
		t.Fatal("expected proof to verify")
	}

	state, err := c.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.StateRoot != proof.StateRoot || state.StateRoot != receipt.StateRoot {
		t.Fatal("expected state root to match the last receipt")
	}

	alert, err := c.Alert(ctx, "tx-001")
	if err != nil {
		t.Fatal(err)
	}
	if alert.FraudScore != 87 || alert.RecordAddress != record.Address.String() {
		t.Fatalf("unexpected alert %+v", alert)
	}

	latest, err := c.LatestAlerts(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	high, err := c.AlertsAboveScore(ctx, 90)
	if err != nil {
		t.Fatal(err)
	}
	if len(latest) != 1 || len(high) != 0 {
		t.Fatalf("unexpected alert lists %d, %d", len(latest), len(high))
	}
}

func TestClientErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Record(ctx, "tx-missing")
	apiErr, ok := err.(*client.APIError)
	if !ok || apiErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 APIError, got %v", err)
	}

	sender, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{4}, 32))
	if err != nil {
		t.Fatal(err)
	}
	ix, err := sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, sender.Address(), ledger.SystemProgramID, sentinel.ProcessTransactionArgs{TransactionID: "tx-unfunded"})
	if err != nil {
		t.Fatal(err)
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(sender)

	_, err = c.SubmitTransaction(ctx, tx)
	apiErr, ok = err.(*client.APIError)
	if !ok || apiErr.Code != sentinel.ErrFundingFailure.Code || apiErr.Receipt == nil {
		t.Fatalf("expected FundingFailure APIError with receipt, got %v", err)
	}
}
