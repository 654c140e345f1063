package ledger

import (
	"context"
	"sync"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/csmt"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "ledger")

// Receipt describes the outcome of a transaction.
type Receipt struct {
	Slot      uint64         `json:"slot"`
	Signature string         `json:"signature"`
	Logs      []string       `json:"logs"`
	Events    []Event        `json:"events"`
	StateRoot chainhash.Hash `json:"state_root"`
	Err       string         `json:"err,omitempty"`
}

// Runtime executes transactions against an account store. Transactions run one at a time; each either commits
// all of its account changes and events or none of them.
type Runtime struct {
	store    AccountStore
	tree     csmt.Tree
	clock    Clock
	programs map[Address]Program
	sinks    []EventSink

	slot uint64
	seen map[string]struct{}

	lock      sync.Mutex
	sinksLock sync.RWMutex
}

// NewRuntime creates a runtime over store. treeDB holds the state commitment of the store and must have been built
// from the same accounts.
func NewRuntime(store AccountStore, treeDB csmt.TreeDatabase, clock Clock) (*Runtime, error) {
	slot, err := store.Slot()
	if err != nil {
		return nil, errors.Wrap(err, "error reading committed slot")
	}
	if clock == nil {
		clock = NTPClock{}
	}

	r := &Runtime{
		store:    store,
		tree:     csmt.NewTree(treeDB),
		clock:    clock,
		programs: make(map[Address]Program),
		slot:     slot,
		seen:     make(map[string]struct{}),
	}
	r.programs[SystemProgramID] = SystemProgram
	return r, nil
}

// RegisterProgram deploys p at id.
func (r *Runtime) RegisterProgram(id Address, p Program) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.programs[id] = p
}

// AddSink registers a sink for committed events.
func (r *Runtime) AddSink(s EventSink) {
	r.sinksLock.Lock()
	defer r.sinksLock.Unlock()
	r.sinks = append(r.sinks, s)
}

// Slot returns the last committed slot.
func (r *Runtime) Slot() uint64 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.slot
}

// StateRoot returns the root of the state tree.
func (r *Runtime) StateRoot() (chainhash.Hash, error) {
	root, err := r.tree.Hash()
	if err != nil {
		return chainhash.Hash{}, err
	}
	return *root, nil
}

// GetAccount returns the committed account at addr or nil.
func (r *Runtime) GetAccount(addr Address) (*Account, error) {
	return r.store.GetAccount(addr)
}

// AccountProof ties an account to a state root.
type AccountProof struct {
	Account   *Account
	Witness   *csmt.VerificationWitness
	StateRoot chainhash.Hash
}

// Prove returns the committed account at addr with a witness against the current state root.
func (r *Runtime) Prove(addr Address) (*AccountProof, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	a, err := r.store.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, errors.Wrapf(ErrAccountNotFound, "account %s", addr)
	}

	proof := &AccountProof{Account: a}
	err = r.tree.View(func(tx csmt.TreeTransactionAccess) error {
		root, err := tx.Hash()
		if err != nil {
			return err
		}
		proof.StateRoot = *root
		proof.Witness, err = tx.Prove(chainhash.Hash(addr))
		return err
	})
	if err != nil {
		return nil, err
	}
	return proof, nil
}

// VerifyAccount checks that witness proves a at addr under root.
func VerifyAccount(root chainhash.Hash, addr Address, a *Account, witness *csmt.VerificationWitness) bool {
	if witness == nil || a == nil {
		return false
	}
	if witness.Key != chainhash.Hash(addr) || witness.Value != a.Hash() {
		return false
	}
	return csmt.CheckWitness(witness, root)
}

// Execute verifies and runs tx. On failure the returned receipt still carries the program logs, and nothing is
// committed.
func (r *Runtime) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	receipt, err := r.execute(tx)
	if err != nil {
		return receipt, err
	}
	r.publish(ctx, receipt.Events)
	return receipt, nil
}

func (r *Runtime) execute(tx *Transaction) (*Receipt, error) {
	if err := tx.VerifySignatures(); err != nil {
		return nil, err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	txID := tx.ID()
	if _, found := r.seen[txID]; found {
		return nil, errors.Wrapf(ErrDuplicateTransaction, "transaction %s", txID)
	}

	slot := r.slot + 1
	state := newTxState(r.store, slot, r.clock.UnixTimestamp())
	receipt := &Receipt{Signature: txID}

	for _, ix := range tx.Instructions {
		program, found := r.programs[ix.ProgramID]
		if !found {
			err := errors.Wrapf(ErrUnknownProgram, "program %s", ix.ProgramID)
			receipt.Logs = state.logs
			receipt.Err = err.Error()
			return receipt, err
		}

		state.log("Program %s invoke [1]", ix.ProgramID)
		if err := program.ProcessInstruction(newInvokeContext(state, ix.ProgramID, ix.Accounts), ix.Accounts, ix.Data); err != nil {
			state.log("Program %s failed: %s", ix.ProgramID, err)
			receipt.Logs = state.logs
			receipt.Err = err.Error()
			return receipt, err
		}
		state.log("Program %s success", ix.ProgramID)
	}

	root, err := r.commit(state.changes(), slot)
	if err != nil {
		receipt.Logs = state.logs
		receipt.Err = err.Error()
		return receipt, err
	}

	r.slot = slot
	r.seen[txID] = struct{}{}

	for i := range state.events {
		state.events[i].TransactionID = txID
	}
	receipt.Slot = slot
	receipt.Logs = state.logs
	receipt.Events = state.events
	receipt.StateRoot = root

	log.WithFields(logrus.Fields{
		"slot":      slot,
		"signature": txID,
		"accounts":  len(state.dirty),
		"events":    len(state.events),
	}).Debug("committed transaction")

	return receipt, nil
}

// commit writes the accounts to the state tree and the store. The tree changes are dropped if the store write fails.
func (r *Runtime) commit(accounts map[Address]*Account, slot uint64) (chainhash.Hash, error) {
	var root chainhash.Hash
	err := r.tree.Update(func(tx csmt.TreeTransactionAccess) error {
		for addr, a := range accounts {
			if err := tx.Set(chainhash.Hash(addr), a.Hash()); err != nil {
				return err
			}
		}
		h, err := tx.Hash()
		if err != nil {
			return err
		}
		root = *h
		return r.store.Commit(accounts, slot)
	})
	if err != nil {
		return chainhash.Hash{}, errors.Wrap(err, "error committing state")
	}
	return root, nil
}

// Airdrop credits lamports to addr out of thin air.
func (r *Runtime) Airdrop(ctx context.Context, addr Address, lamports uint64) (*Receipt, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	slot := r.slot + 1
	state := newTxState(r.store, slot, r.clock.UnixTimestamp())
	a, err := state.load(addr)
	if err != nil {
		return nil, err
	}
	if a.Lamports+lamports < a.Lamports {
		return nil, errors.New("lamport overflow")
	}
	a.Lamports += lamports
	state.markDirty(addr)
	state.log("Airdrop %d lamports to %s", lamports, addr)

	root, err := r.commit(state.changes(), slot)
	if err != nil {
		return nil, err
	}
	r.slot = slot

	return &Receipt{
		Slot:      slot,
		Logs:      state.logs,
		StateRoot: root,
	}, nil
}

func (r *Runtime) publish(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}

	r.sinksLock.RLock()
	sinks := make([]EventSink, len(r.sinks))
	copy(sinks, r.sinks)
	r.sinksLock.RUnlock()

	for _, ev := range events {
		for _, s := range sinks {
			if err := s.Publish(ctx, ev); err != nil {
				log.WithError(err).WithFields(logrus.Fields{
					"event":       ev.Name,
					"transaction": ev.TransactionID,
				}).Warn("failed to publish event")
			}
		}
	}
}
