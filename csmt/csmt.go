package csmt

import (
	"sync"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

// ErrKeyNotFound is returned when proving a key that is not in the tree.
var ErrKeyNotFound = errors.New("key not found in tree")

func combineHashes(left *chainhash.Hash, right *chainhash.Hash) chainhash.Hash {
	return chainhash.HashH(append(left[:], right[:]...))
}

var emptyHash = chainhash.Hash{}
var emptyTrees [256]chainhash.Hash

// EmptyTree is the hash of an empty tree.
var EmptyTree = chainhash.Hash{}

func init() {
	emptyTrees[0] = emptyHash
	for i := range emptyTrees[1:] {
		emptyTrees[i+1] = combineHashes(&emptyTrees[i], &emptyTrees[i])
	}

	EmptyTree = emptyTrees[255]
}

// isRight checks if the key is in the left or right subtree at a certain level. Level 255 is the root level.
func isRight(key chainhash.Hash, level uint8) bool {
	return key[level/8]&(1<<uint(level%8)) != 0
}

// calculateSubtreeHashWithOneLeaf calculates the hash of a subtree with only a single leaf at a certain height.
func calculateSubtreeHashWithOneLeaf(key *chainhash.Hash, value *chainhash.Hash, atLevel uint8) chainhash.Hash {
	h := *value

	for i := uint8(0); i < atLevel; i++ {
		if isRight(*key, i+1) {
			h = combineHashes(&emptyTrees[i], &h)
		} else {
			h = combineHashes(&h, &emptyTrees[i])
		}
	}

	return h
}

func getChild(t TreeDatabase, h *chainhash.Hash) (*Node, error) {
	if h == nil {
		return nil, nil
	}
	return t.GetNode(*h)
}

func subtreeHash(n *Node, level uint8) chainhash.Hash {
	if n == nil {
		return emptyTrees[level]
	}
	return n.GetHash()
}

// insertIntoTree inserts a hashed key into the subtree rooted at root and returns the new subtree root. Existing nodes
// are never modified so older roots remain readable.
func insertIntoTree(t TreeDatabase, root *Node, key chainhash.Hash, value chainhash.Hash, level uint8) (*Node, error) {
	if root == nil {
		return t.NewSingleNode(key, value, calculateSubtreeHashWithOneLeaf(&key, &value, level))
	}

	var left, right *Node
	var err error

	if root.IsSingle() {
		rootKey := root.GetSingleKey()
		if rootKey.IsEqual(&key) {
			return t.NewSingleNode(key, value, calculateSubtreeHashWithOneLeaf(&key, &value, level))
		}

		if level == 0 {
			return nil, errors.Errorf("keys %s and %s collide at the leaf level", rootKey, key)
		}

		// push the existing key one level down
		rootValue := root.GetSingleValue()
		moved, err := insertIntoTree(t, nil, rootKey, rootValue, level-1)
		if err != nil {
			return nil, err
		}
		if isRight(rootKey, level) {
			right = moved
		} else {
			left = moved
		}
	} else {
		if left, err = getChild(t, root.Left()); err != nil {
			return nil, err
		}
		if right, err = getChild(t, root.Right()); err != nil {
			return nil, err
		}
	}

	if isRight(key, level) {
		right, err = insertIntoTree(t, right, key, value, level-1)
	} else {
		left, err = insertIntoTree(t, left, key, value, level-1)
	}
	if err != nil {
		return nil, err
	}

	lv := subtreeHash(left, level-1)
	rv := subtreeHash(right, level-1)

	return t.NewNode(left, right, combineHashes(&lv, &rv))
}

func treeHash(t TreeDatabase) (*chainhash.Hash, error) {
	r, err := t.Root()
	if err != nil {
		return nil, err
	}
	if r == nil {
		h := EmptyTree
		return &h, nil
	}
	h := r.GetHash()
	return &h, nil
}

func treeSet(t TreeDatabase, key chainhash.Hash, value chainhash.Hash) error {
	hk := chainhash.HashH(key[:])

	root, err := t.Root()
	if err != nil {
		return err
	}

	newRoot, err := insertIntoTree(t, root, hk, value, 255)
	if err != nil {
		return err
	}

	if err := t.SetRoot(newRoot); err != nil {
		return err
	}

	return t.Set(key, value)
}

// TreeTransactionAccess is the access a transaction callback gets to the tree.
type TreeTransactionAccess interface {
	Hash() (*chainhash.Hash, error)
	Get(key chainhash.Hash) (*chainhash.Hash, error)
	Set(key chainhash.Hash, value chainhash.Hash) error
	Prove(key chainhash.Hash) (*VerificationWitness, error)
}

// Tree is a sparse merkle tree over a TreeDatabase. Writes go through Update, which stages changes in a TreeTransaction
// and only flushes them if the callback succeeds.
type Tree struct {
	db   TreeDatabase
	lock *sync.RWMutex
}

// NewTree creates a tree backed by the given database.
func NewTree(d TreeDatabase) Tree {
	return Tree{
		db:   d,
		lock: new(sync.RWMutex),
	}
}

// Hash gets the root hash.
func (t *Tree) Hash() (*chainhash.Hash, error) {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return treeHash(t.db)
}

// Update runs cb in a transaction and commits it if cb returns nil.
func (t *Tree) Update(cb func(TreeTransactionAccess) error) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	tx, err := NewTreeTransaction(t.db)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		tx.Discard()
		return err
	}

	return tx.Flush()
}

// View runs cb in a read-only transaction. Changes made by cb are discarded.
func (t *Tree) View(cb func(TreeTransactionAccess) error) error {
	t.lock.RLock()
	defer t.lock.RUnlock()

	tx, err := NewTreeTransaction(t.db)
	if err != nil {
		return err
	}
	defer tx.Discard()

	return cb(tx)
}
