package csmt

import (
	"github.com/dgraph-io/badger"
	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

// BadgerTreeDB is a tree database implemented on top of badger. It only owns keys under its prefix so the badger
// instance can be shared with other stores.
type BadgerTreeDB struct {
	db     *badger.DB
	prefix []byte
}

var _ TreeDatabase = (*BadgerTreeDB)(nil)

// NewBadgerTreeDB creates a tree database using keys under prefix.
func NewBadgerTreeDB(db *badger.DB, prefix []byte) *BadgerTreeDB {
	return &BadgerTreeDB{db: db, prefix: prefix}
}

func (b *BadgerTreeDB) key(kind string, k []byte) []byte {
	out := make([]byte, 0, len(b.prefix)+len(kind)+len(k))
	out = append(out, b.prefix...)
	out = append(out, kind...)
	return append(out, k...)
}

func (b *BadgerTreeDB) rootKey() []byte {
	return b.key("root", nil)
}

// SetRoot sets the root of the database.
func (b *BadgerTreeDB) SetRoot(n *Node) error {
	rootHash := EmptyTree
	if n != nil {
		rootHash = n.GetHash()
	}

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.rootKey(), rootHash[:])
	})
}

// NewNode creates a new node with the given left and right children and adds it to the database.
func (b *BadgerTreeDB) NewNode(left *Node, right *Node, subtreeHash chainhash.Hash) (*Node, error) {
	n := newInnerNode(left, right, subtreeHash)
	return n, b.SetNode(n)
}

// NewSingleNode creates a new single node and adds it to the database.
func (b *BadgerTreeDB) NewSingleNode(key chainhash.Hash, value chainhash.Hash, subtreeHash chainhash.Hash) (*Node, error) {
	n := newSingleNode(key, value, subtreeHash)
	return n, b.SetNode(n)
}

// GetNode gets a node from the database.
func (b *BadgerTreeDB) GetNode(nodeHash chainhash.Hash) (*Node, error) {
	var n *Node

	err := b.db.View(func(txn *badger.Txn) error {
		nodeItem, err := txn.Get(b.key("tree-", nodeHash[:]))
		if err != nil {
			return errors.Wrapf(err, "error getting node %s", nodeHash)
		}

		nodeSer, err := nodeItem.ValueCopy(nil)
		if err != nil {
			return err
		}

		n, err = DeserializeNode(nodeSer)
		return err
	})

	return n, err
}

// SetNode sets a node in the database.
func (b *BadgerTreeDB) SetNode(n *Node) error {
	nodeHash := n.GetHash()

	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key("tree-", nodeHash[:]), n.Serialize())
	})
}

// Get gets a value from the key-value store.
func (b *BadgerTreeDB) Get(key chainhash.Hash) (*chainhash.Hash, error) {
	var val *chainhash.Hash

	err := b.db.View(func(txn *badger.Txn) error {
		valItem, err := txn.Get(b.key("kv-", key[:]))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		valBytes, err := valItem.ValueCopy(nil)
		if err != nil {
			return err
		}

		h, err := chainhash.BytesToHash(valBytes)
		if err != nil {
			return err
		}
		val = &h
		return nil
	})
	return val, err
}

// Set sets a value in the key-value store.
func (b *BadgerTreeDB) Set(key chainhash.Hash, value chainhash.Hash) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(b.key("kv-", key[:]), value[:])
	})
}

// Root gets the root node.
func (b *BadgerTreeDB) Root() (*Node, error) {
	var rootHash chainhash.Hash

	err := b.db.View(func(txn *badger.Txn) error {
		i, err := txn.Get(b.rootKey())
		if err == badger.ErrKeyNotFound {
			rootHash = EmptyTree
			return nil
		}
		if err != nil {
			return err
		}

		rootBytes, err := i.ValueCopy(nil)
		if err != nil {
			return err
		}
		rootHash, err = chainhash.BytesToHash(rootBytes)
		return err
	})
	if err != nil {
		return nil, err
	}

	if rootHash.IsEqual(&EmptyTree) {
		return nil, nil
	}

	return b.GetNode(rootHash)
}
