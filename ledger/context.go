package ledger

import (
	"encoding/base64"
	"fmt"

	"github.com/pkg/errors"
)

// txState is shared by every instruction of a transaction. Nothing in it reaches the store until the runtime commits.
type txState struct {
	store     AccountStore
	accounts  map[Address]*Account
	dirty     map[Address]struct{}
	logs      []string
	events    []Event
	slot      uint64
	timestamp int64
}

func newTxState(store AccountStore, slot uint64, timestamp int64) *txState {
	return &txState{
		store:     store,
		accounts:  make(map[Address]*Account),
		dirty:     make(map[Address]struct{}),
		slot:      slot,
		timestamp: timestamp,
	}
}

// load returns the overlay copy of the account, reading it from the store the first time. Accounts that were never
// written load as empty system-owned accounts.
func (s *txState) load(addr Address) (*Account, error) {
	if a, found := s.accounts[addr]; found {
		return a, nil
	}
	stored, err := s.store.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		stored = &Account{Owner: SystemProgramID}
	}
	s.accounts[addr] = stored
	return stored, nil
}

func (s *txState) markDirty(addr Address) {
	s.dirty[addr] = struct{}{}
}

func (s *txState) changes() map[Address]*Account {
	out := make(map[Address]*Account, len(s.dirty))
	for addr := range s.dirty {
		out[addr] = s.accounts[addr]
	}
	return out
}

func (s *txState) log(format string, args ...interface{}) {
	s.logs = append(s.logs, fmt.Sprintf(format, args...))
}

// InvokeContext is what a program sees while processing one instruction.
type InvokeContext struct {
	state     *txState
	programID Address
	metas     []AccountMeta
}

func newInvokeContext(state *txState, programID Address, metas []AccountMeta) *InvokeContext {
	return &InvokeContext{
		state:     state,
		programID: programID,
		metas:     metas,
	}
}

// ProgramID is the program being invoked.
func (c *InvokeContext) ProgramID() Address {
	return c.programID
}

// Slot is the slot the transaction will be committed in.
func (c *InvokeContext) Slot() uint64 {
	return c.state.slot
}

// UnixTimestamp is the runtime clock, sampled once per transaction.
func (c *InvokeContext) UnixTimestamp() int64 {
	return c.state.timestamp
}

// Log appends a program log line.
func (c *InvokeContext) Log(format string, args ...interface{}) {
	c.state.log("Program log: "+format, args...)
}

// Emit queues an event. It is only published if the transaction commits.
func (c *InvokeContext) Emit(name string, data []byte) {
	c.state.events = append(c.state.events, Event{
		ProgramID: c.programID,
		Name:      name,
		Data:      append([]byte{}, data...),
		Slot:      c.state.slot,
	})
	c.state.log("Program data: %s", base64.StdEncoding.EncodeToString(data))
}

func (c *InvokeContext) meta(addr Address) (AccountMeta, error) {
	for _, m := range c.metas {
		if m.Address == addr {
			return m, nil
		}
	}
	return AccountMeta{}, errors.Wrapf(ErrNotEnoughAccounts, "account %s was not passed to the instruction", addr)
}

// Account returns a copy of the account at addr. The account must be one of the instruction's accounts.
func (c *InvokeContext) Account(addr Address) (*Account, error) {
	if _, err := c.meta(addr); err != nil {
		return nil, err
	}
	a, err := c.state.load(addr)
	if err != nil {
		return nil, err
	}
	return a.Copy(), nil
}

// SetAccountData replaces the data of an account owned by the invoked program. The length may not change.
func (c *InvokeContext) SetAccountData(addr Address, data []byte) error {
	m, err := c.meta(addr)
	if err != nil {
		return err
	}
	if !m.IsWritable {
		return errors.Wrapf(ErrReadonlyAccount, "account %s", addr)
	}
	a, err := c.state.load(addr)
	if err != nil {
		return err
	}
	if a.Owner != c.programID {
		return errors.Wrapf(ErrExternalAccountData, "account %s is owned by %s", addr, a.Owner)
	}
	if len(data) != len(a.Data) {
		return errors.Wrapf(ErrAccountDataSizeChanged, "account %s has %d bytes, got %d", addr, len(a.Data), len(data))
	}
	copy(a.Data, data)
	c.state.markDirty(addr)
	return nil
}

// CreateAccount allocates space bytes at newAddr, funded with lamports from payer and assigned to owner. newAddr must
// either have signed the transaction or be the program address the invoked program derives from seeds.
func (c *InvokeContext) CreateAccount(payer Address, newAddr Address, seeds [][]byte, lamports uint64, space uint64, owner Address) error {
	payerMeta, err := c.meta(payer)
	if err != nil {
		return err
	}
	if !payerMeta.IsSigner {
		return errors.Wrapf(ErrMissingSigner, "payer %s", payer)
	}
	if !payerMeta.IsWritable {
		return errors.Wrapf(ErrReadonlyAccount, "payer %s", payer)
	}

	newMeta, err := c.meta(newAddr)
	if err != nil {
		return err
	}
	if !newMeta.IsWritable {
		return errors.Wrapf(ErrReadonlyAccount, "new account %s", newAddr)
	}
	if !newMeta.IsSigner {
		if seeds == nil {
			return errors.Wrapf(ErrMissingSigner, "new account %s", newAddr)
		}
		derived, err := CreateProgramAddress(seeds, c.programID)
		if err != nil {
			return err
		}
		if derived != newAddr {
			return errors.Wrapf(ErrMissingSigner, "seeds derive %s, not %s", derived, newAddr)
		}
	}

	return c.createAccount(payer, newAddr, lamports, space, owner)
}

func (c *InvokeContext) createAccount(payer Address, newAddr Address, lamports uint64, space uint64, owner Address) error {
	if space > MaxAccountDataSize {
		return errors.Wrapf(ErrInvalidAccountSpace, "requested %d bytes", space)
	}

	if payer == newAddr {
		return errors.Wrapf(ErrAccountAlreadyInUse, "account %s cannot fund itself", newAddr)
	}

	existing, err := c.state.load(newAddr)
	if err != nil {
		return err
	}
	if existing.InUse() {
		c.state.log("Create Account: account Address { address: %s, base: None } already in use", newAddr)
		return errors.Wrapf(ErrAccountAlreadyInUse, "account %s", newAddr)
	}

	// lamports already sent to the address count towards the requested balance
	var topUp uint64
	if existing.Lamports < lamports {
		topUp = lamports - existing.Lamports
	}

	from, err := c.state.load(payer)
	if err != nil {
		return err
	}
	if from.Lamports < topUp {
		c.state.log("Transfer: insufficient lamports %d, need %d", from.Lamports, topUp)
		return errors.Wrapf(ErrInsufficientFunds, "payer %s has %d lamports, needs %d", payer, from.Lamports, topUp)
	}

	from.Lamports -= topUp
	existing.Lamports += topUp
	existing.Data = make([]byte, space)
	existing.Owner = owner

	c.state.markDirty(payer)
	c.state.markDirty(newAddr)
	return nil
}

// Transfer moves lamports between two accounts. from must be a system-owned signer.
func (c *InvokeContext) Transfer(from Address, to Address, lamports uint64) error {
	fromMeta, err := c.meta(from)
	if err != nil {
		return err
	}
	if !fromMeta.IsSigner {
		return errors.Wrapf(ErrMissingSigner, "sender %s", from)
	}
	if !fromMeta.IsWritable {
		return errors.Wrapf(ErrReadonlyAccount, "sender %s", from)
	}
	toMeta, err := c.meta(to)
	if err != nil {
		return err
	}
	if !toMeta.IsWritable {
		return errors.Wrapf(ErrReadonlyAccount, "recipient %s", to)
	}

	src, err := c.state.load(from)
	if err != nil {
		return err
	}
	if src.Owner != SystemProgramID || len(src.Data) != 0 {
		return errors.Wrapf(ErrExternalAccountData, "sender %s carries data", from)
	}
	if src.Lamports < lamports {
		return errors.Wrapf(ErrInsufficientFunds, "sender %s has %d lamports, needs %d", from, src.Lamports, lamports)
	}
	dst, err := c.state.load(to)
	if err != nil {
		return err
	}
	if dst.Lamports+lamports < dst.Lamports {
		return errors.New("lamport overflow")
	}

	src.Lamports -= lamports
	dst.Lamports += lamports
	c.state.markDirty(from)
	c.state.markDirty(to)
	return nil
}
