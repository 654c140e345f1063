package main

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fatih/color"
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

func newTestConsole(t *testing.T) (*OracleCMD, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true

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

	buf := new(bytes.Buffer)
	o := NewOracleCMD(client.NewClient(srv.URL), sentinel.DefaultProgramID, ledger.SystemProgramID, buf, color.New(), color.New())
	return o, buf
}

func expectOutput(t *testing.T, buf *bytes.Buffer, want string) {
	t.Helper()
	if !strings.Contains(buf.String(), want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, buf.String())
	}
	buf.Reset()
}

func TestConsoleRecordsVerdict(t *testing.T) {
	o, buf := newTestConsole(t)

	o.Process([]string{"tx-cli", "5000", "87", "true"})
	expectOutput(t, buf, "No key loaded")

	o.Keygen(nil)
	expectOutput(t, buf, "Address: ")

	o.Airdrop(nil)
	expectOutput(t, buf, "Airdropped 1000000000 lamports")

	o.Process([]string{"tx-cli", "5000", "87", "true"})
	expectOutput(t, buf, "FRAUD DETECTED! Transaction blocked.")

	o.Process([]string{"tx-cli", "5000", "87", "true"})
	expectOutput(t, buf, "Transaction failed")

	o.Record([]string{"tx-cli"})
	out := buf.String()
	for _, want := range []string{"Amount:    5000", "Score:     87", "Fraud:     true", "2023-11-14T22:13:20Z", "Verified against state root"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected record output to contain %q, got:\n%s", want, out)
		}
	}
	buf.Reset()

	o.Fraud(nil)
	expectOutput(t, buf, "tx-cli")

	o.Fraud([]string{"90"})
	expectOutput(t, buf, "No fraud alerts.")

	o.State(nil)
	expectOutput(t, buf, "program "+sentinel.DefaultProgramID.String())
}

func TestConsoleArguments(t *testing.T) {
	o, buf := newTestConsole(t)

	o.UseKey([]string{strings.Repeat("07", 32)})
	expectOutput(t, buf, "Using ")

	o.Process([]string{"tx-bad", "5000", "300", "true"})
	expectOutput(t, buf, "invalid score 300")

	o.Process([]string{"tx-bad", "5000"})
	expectOutput(t, buf, "Usage: process")

	o.Record([]string{"tx-missing"})
	expectOutput(t, buf, "Error getting record")

	o.Balance([]string{"not-an-address"})
	expectOutput(t, buf, "Invalid address")

	o.Exit(nil)
	select {
	case <-o.ExitChan:
	default:
		t.Fatal("expected exit to be requested")
	}
}
