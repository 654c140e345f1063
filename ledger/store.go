package ledger

import (
	"sync"
)

// AccountStore persists committed accounts.
type AccountStore interface {
	// GetAccount returns the account at addr or nil if nothing is stored there.
	GetAccount(addr Address) (*Account, error)

	// Commit atomically writes the accounts and the new slot.
	Commit(accounts map[Address]*Account, slot uint64) error

	// Slot returns the last committed slot.
	Slot() (uint64, error)

	// Close closes the store.
	Close() error
}

// MemoryStore is an AccountStore that keeps everything in memory.
type MemoryStore struct {
	accounts map[Address]*Account
	slot     uint64
	lock     sync.RWMutex
}

var _ AccountStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[Address]*Account)}
}

// GetAccount implements AccountStore.
func (m *MemoryStore) GetAccount(addr Address) (*Account, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	a, found := m.accounts[addr]
	if !found {
		return nil, nil
	}
	return a.Copy(), nil
}

// Commit implements AccountStore.
func (m *MemoryStore) Commit(accounts map[Address]*Account, slot uint64) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	for addr, a := range accounts {
		m.accounts[addr] = a.Copy()
	}
	m.slot = slot
	return nil
}

// Slot implements AccountStore.
func (m *MemoryStore) Slot() (uint64, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	return m.slot, nil
}

// Close implements AccountStore.
func (m *MemoryStore) Close() error {
	return nil
}
