package sentinel_test

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/phoreproject/sentinel/csmt"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
)

const testTimestamp = 1700000000

type harness struct {
	runtime *ledger.Runtime
	events  []ledger.Event
	lock    sync.Mutex
}

func newHarness(t *testing.T, verifier sentinel.AuthorityVerifier) *harness {
	t.Helper()

	r, err := ledger.NewRuntime(ledger.NewMemoryStore(), csmt.NewInMemoryTreeDB(), ledger.FixedClock(testTimestamp))
	if err != nil {
		t.Fatal(err)
	}
	r.RegisterProgram(sentinel.DefaultProgramID, sentinel.NewProgram(verifier))

	h := &harness{runtime: r}
	r.AddSink(ledger.EventSinkFunc(func(ctx context.Context, ev ledger.Event) error {
		h.lock.Lock()
		defer h.lock.Unlock()
		h.events = append(h.events, ev)
		return nil
	}))
	return h
}

func keypair(t *testing.T, b byte) *ledger.Keypair {
	t.Helper()
	k, err := ledger.KeypairFromSeed(bytes.Repeat([]byte{b}, 32))
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func (h *harness) fund(t *testing.T, k *ledger.Keypair, lamports uint64) {
	t.Helper()
	if _, err := h.runtime.Airdrop(context.Background(), k.Address(), lamports); err != nil {
		t.Fatal(err)
	}
}

func (h *harness) process(t *testing.T, sender *ledger.Keypair, receiver ledger.Address, args sentinel.ProcessTransactionArgs) (*ledger.Receipt, error) {
	t.Helper()

	ix, err := sentinel.ProcessTransactionInstruction(sentinel.DefaultProgramID, sender.Address(), receiver, args)
	if err != nil {
		return nil, err
	}
	tx := &ledger.Transaction{Instructions: []ledger.Instruction{ix}}
	tx.Sign(sender)
	return h.runtime.Execute(context.Background(), tx)
}

func (h *harness) record(t *testing.T, id string) *sentinel.TransactionRecord {
	t.Helper()
	r, _, err := sentinel.LoadRecord(h.runtime, sentinel.DefaultProgramID, id)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func (h *harness) eventCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.events)
}
