package ledger

import (
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

// PebbleStore is an AccountStore on top of pebble.
type PebbleStore struct {
	db *pebble.DB
}

var _ AccountStore = (*PebbleStore)(nil)

// OpenPebbleStore opens a pebble database in dir. opts may be nil.
func OpenPebbleStore(dir string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening pebble database at %s", dir)
	}
	return &PebbleStore{db: db}, nil
}

func (p *PebbleStore) get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// value is only valid until closer.Close()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// GetAccount implements AccountStore.
func (p *PebbleStore) GetAccount(addr Address) (*Account, error) {
	accountBytes, err := p.get(accountKey(addr))
	if err != nil {
		return nil, errors.Wrapf(err, "error getting account %s", addr)
	}
	if accountBytes == nil {
		return nil, nil
	}
	return DeserializeAccount(accountBytes)
}

// Commit implements AccountStore.
func (p *PebbleStore) Commit(accounts map[Address]*Account, slot uint64) error {
	batch := p.db.NewBatch()
	defer batch.Close()

	for addr, a := range accounts {
		if err := batch.Set(accountKey(addr), a.Serialize(), nil); err != nil {
			return err
		}
	}

	var slotBytes [8]byte
	binary.BigEndian.PutUint64(slotBytes[:], slot)
	if err := batch.Set(slotKey, slotBytes[:], nil); err != nil {
		return err
	}

	return batch.Commit(pebble.Sync)
}

// Slot implements AccountStore.
func (p *PebbleStore) Slot() (uint64, error) {
	slotBytes, err := p.get(slotKey)
	if err != nil {
		return 0, err
	}
	if slotBytes == nil {
		return 0, nil
	}
	if len(slotBytes) != 8 {
		return 0, errors.New("corrupt slot entry")
	}
	return binary.BigEndian.Uint64(slotBytes), nil
}

// Close implements AccountStore.
func (p *PebbleStore) Close() error {
	return p.db.Close()
}
