package ledger

import (
	"encoding/binary"

	"github.com/dgraph-io/badger"
	"github.com/pkg/errors"
)

var accountPrefix = []byte("acct-")
var slotKey = []byte("meta-slot")

// BadgerStore is an AccountStore on top of badger.
type BadgerStore struct {
	db *badger.DB
}

var _ AccountStore = (*BadgerStore)(nil)

// NewBadgerStore wraps an open badger database.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// OpenBadgerStore opens a badger database in dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, errors.Wrapf(err, "error opening badger database at %s", dir)
	}
	return NewBadgerStore(db), nil
}

// DB returns the underlying badger database so other stores can share it.
func (b *BadgerStore) DB() *badger.DB {
	return b.db
}

func accountKey(addr Address) []byte {
	return append(append([]byte{}, accountPrefix...), addr[:]...)
}

// GetAccount implements AccountStore.
func (b *BadgerStore) GetAccount(addr Address) (*Account, error) {
	var out *Account
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(accountKey(addr))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		accountBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		out, err = DeserializeAccount(accountBytes)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "error getting account %s", addr)
	}
	return out, nil
}

// Commit implements AccountStore.
func (b *BadgerStore) Commit(accounts map[Address]*Account, slot uint64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		for addr, a := range accounts {
			if err := txn.Set(accountKey(addr), a.Serialize()); err != nil {
				return err
			}
		}
		var slotBytes [8]byte
		binary.BigEndian.PutUint64(slotBytes[:], slot)
		return txn.Set(slotKey, slotBytes[:])
	})
}

// Slot implements AccountStore.
func (b *BadgerStore) Slot() (uint64, error) {
	var slot uint64
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(slotKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		slotBytes, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if len(slotBytes) != 8 {
			return errors.New("corrupt slot entry")
		}
		slot = binary.BigEndian.Uint64(slotBytes)
		return nil
	})
	return slot, err
}

// Close implements AccountStore.
func (b *BadgerStore) Close() error {
	return b.db.Close()
}
