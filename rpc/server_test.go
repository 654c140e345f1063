package rpc_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/sqlite"
	"github.com/phoreproject/sentinel/csmt"
	"github.com/phoreproject/sentinel/indexer"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/notifier"
	"github.com/phoreproject/sentinel/rpc"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
)

type testNode struct {
	runtime *ledger.Runtime
	server  *rpc.Server
	sender  *ledger.Keypair
}

func newTestNode(t *testing.T) *testNode {
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

	sender, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatal(err)
	}

	return &testNode{
		runtime: r,
		server:  rpc.NewServer(r, sentinel.DefaultProgramID, alerts),
		sender:  sender,
	}
}

func (n *testNode) request(t *testing.T, method string, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	n.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (n *testNode) processTx(t *testing.T, args sentinel.ProcessTransactionArgs) *ledger.Transaction {
	t.Helper()
	ix, err := sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, n.sender.Address(), ledger.SystemProgramID, args)
	if err != nil {
		t.Fatal(err)
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(n.sender)
	return tx
}

func TestSubmitTransaction(t *testing.T) {
	n := newTestNode(t)

	rec := n.request(t, http.MethodPost, "/v1/airdrop", rpc.AirdropRequest{Address: n.sender.Address(), Lamports: 1000000000})
	if rec.Code != http.StatusOK {
		t.Fatalf("airdrop failed with %d: %s", rec.Code, rec.Body)
	}

	tx := n.processTx(t, sentinel.ProcessTransactionArgs{TransactionID: "tx-001", Amount: 5000, FraudScore: 87, IsFraud: true})
	rec = n.request(t, http.MethodPost, "/v1/transactions", tx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var resp rpc.TransactionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Receipt == nil || len(resp.Receipt.Events) != 1 {
		t.Fatalf("expected receipt with one event, got %+v", resp.Receipt)
	}

	tx = n.processTx(t, sentinel.ProcessTransactionArgs{TransactionID: "tx-001", Amount: 1})
	rec = n.request(t, http.MethodPost, "/v1/transactions", tx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body)
	}
	resp = rpc.TransactionResponse{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Code != sentinel.ErrAddressCollision.Code || resp.Receipt == nil || len(resp.Receipt.Logs) == 0 {
		t.Fatalf("unexpected failure response %+v", resp)
	}

	rec = n.request(t, http.MethodGet, "/v1/fraud/tx-001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected indexed alert, got %d: %s", rec.Code, rec.Body)
	}
}

func TestSubmitTransactionErrors(t *testing.T) {
	n := newTestNode(t)

	tx := n.processTx(t, sentinel.ProcessTransactionArgs{TransactionID: "tx-poor"})
	if rec := n.request(t, http.MethodPost, "/v1/transactions", tx); rec.Code != http.StatusPaymentRequired {
		t.Fatalf("expected 402, got %d: %s", rec.Code, rec.Body)
	}

	tx.Signatures[0][0] ^= 0xff
	if rec := n.request(t, http.MethodPost, "/v1/transactions", tx); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/transactions", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	n.server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetRecordAndProof(t *testing.T) {
	n := newTestNode(t)
	n.request(t, http.MethodPost, "/v1/airdrop", rpc.AirdropRequest{Address: n.sender.Address(), Lamports: 1000000000})
	n.request(t, http.MethodPost, "/v1/transactions", n.processTx(t, sentinel.ProcessTransactionArgs{TransactionID: "tx-002", Amount: 12, FraudScore: 4}))

	rec := n.request(t, http.MethodGet, "/v1/records/tx-002", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var record rpc.RecordResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &record); err != nil {
		t.Fatal(err)
	}
	if record.Record.Amount != 12 || record.Record.Sender != n.sender.Address() || record.Record.Timestamp != 1700000000 {
		t.Fatalf("unexpected record %+v", record.Record)
	}

	rec = n.request(t, http.MethodGet, "/v1/records/tx-002/proof", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var proof rpc.ProofResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &proof); err != nil {
		t.Fatal(err)
	}
	proven, ok := proof.Verify()
	if !ok {
		t.Fatal("expected proof to verify")
	}
	if proven.TransactionID != "tx-002" {
		t.Fatalf("unexpected proven record %+v", proven)
	}

	funded, _, err := sentinel.RecordAddress(sentinel.DefaultProgramID, "tx-funded")
	if err != nil {
		t.Fatal(err)
	}
	n.request(t, http.MethodPost, "/v1/airdrop", rpc.AirdropRequest{Address: funded, Lamports: 1})

	for path, code := range map[string]int{
		"/v1/records/tx-funded":                              http.StatusNotFound,
		"/v1/records/tx-funded/proof":                        http.StatusNotFound,
		"/v1/records/tx-missing":                             http.StatusNotFound,
		"/v1/records/tx-missing/proof":                       http.StatusNotFound,
		"/v1/fraud/tx-002":                                   http.StatusNotFound,
		"/v1/records/0123456789012345678901234567890123":     http.StatusBadRequest,
		"/v1/accounts/11111111111111111111111111111112extra": http.StatusBadRequest,
	} {
		if rec := n.request(t, http.MethodGet, path, nil); rec.Code != code {
			t.Fatalf("%s: expected %d, got %d", path, code, rec.Code)
		}
	}
}

func TestAirdropLimits(t *testing.T) {
	n := newTestNode(t)

	for _, lamports := range []uint64{0, rpc.MaxAirdropLamports + 1} {
		rec := n.request(t, http.MethodPost, "/v1/airdrop", rpc.AirdropRequest{Address: n.sender.Address(), Lamports: lamports})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %d lamports, got %d", lamports, rec.Code)
		}
	}
}

func TestListAlertsAndState(t *testing.T) {
	n := newTestNode(t)
	n.request(t, http.MethodPost, "/v1/airdrop", rpc.AirdropRequest{Address: n.sender.Address(), Lamports: 1000000000})
	for _, args := range []sentinel.ProcessTransactionArgs{
		{TransactionID: "tx-a", FraudScore: 95, IsFraud: true},
		{TransactionID: "tx-b", FraudScore: 60, IsFraud: true},
		{TransactionID: "tx-c", FraudScore: 10},
	} {
		if rec := n.request(t, http.MethodPost, "/v1/transactions", n.processTx(t, args)); rec.Code != http.StatusOK {
			t.Fatalf("%s failed with %d: %s", args.TransactionID, rec.Code, rec.Body)
		}
	}

	var alerts rpc.AlertsResponse
	rec := n.request(t, http.MethodGet, "/v1/fraud?limit=10", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts.Alerts) != 2 || alerts.Alerts[0].TransactionID != "tx-b" {
		t.Fatalf("unexpected alerts %+v", alerts.Alerts)
	}

	alerts = rpc.AlertsResponse{}
	rec = n.request(t, http.MethodGet, "/v1/fraud?min_score=90", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatal(err)
	}
	if len(alerts.Alerts) != 1 || alerts.Alerts[0].TransactionID != "tx-a" {
		t.Fatalf("unexpected alerts %+v", alerts.Alerts)
	}

	if rec := n.request(t, http.MethodGet, "/v1/fraud?limit=-1", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var state rpc.StateResponse
	rec = n.request(t, http.MethodGet, "/v1/state", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatal(err)
	}
	root, err := n.runtime.StateRoot()
	if err != nil {
		t.Fatal(err)
	}
	if state.Slot != 4 || state.StateRoot != root || state.ProgramID != sentinel.DefaultProgramID {
		t.Fatalf("unexpected state %+v", state)
	}
}

var errCorruptStore = errors.New("value log segment 3 is corrupt")

type brokenStore struct {
	*ledger.MemoryStore
}

func (brokenStore) GetAccount(addr ledger.Address) (*ledger.Account, error) {
	return nil, errors.Wrap(errCorruptStore, "error reading account")
}

func TestInternalErrorsAreNotExposed(t *testing.T) {
	r, err := ledger.NewRuntime(brokenStore{ledger.NewMemoryStore()}, csmt.NewInMemoryTreeDB(), ledger.FixedClock(1700000000))
	if err != nil {
		t.Fatal(err)
	}
	n := &testNode{runtime: r, server: rpc.NewServer(r, sentinel.DefaultProgramID, nil)}

	for _, path := range []string{"/v1/accounts/" + sentinel.DefaultProgramID.String(), "/v1/records/tx-001"} {
		rec := n.request(t, http.MethodGet, path, nil)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s: expected 500, got %d", path, rec.Code)
		}
		var resp rpc.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Message != http.StatusText(http.StatusInternalServerError) {
			t.Fatalf("%s: expected a generic message, got %q", path, resp.Message)
		}
	}
}
