package csmt

import (
	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

var errTransactionDone = errors.New("tree transaction already committed or discarded")

// TreeTransaction stages tree changes in memory on top of an underlying database. Nothing reaches the underlying
// database until Flush.
type TreeTransaction struct {
	underlyingStore TreeDatabase

	root chainhash.Hash

	dirty   map[chainhash.Hash]Node
	dirtyKV map[chainhash.Hash]chainhash.Hash

	valid bool
}

var _ TreeDatabase = (*TreeTransaction)(nil)
var _ TreeTransactionAccess = (*TreeTransaction)(nil)

// NewTreeTransaction constructs a tree transaction on top of an underlying tree database.
func NewTreeTransaction(underlyingStore TreeDatabase) (*TreeTransaction, error) {
	rootHash := EmptyTree
	root, err := underlyingStore.Root()
	if err != nil {
		return nil, err
	}
	if root != nil {
		rootHash = root.GetHash()
	}
	return &TreeTransaction{
		underlyingStore: underlyingStore,
		root:            rootHash,
		dirty:           make(map[chainhash.Hash]Node),
		dirtyKV:         make(map[chainhash.Hash]chainhash.Hash),
		valid:           true,
	}, nil
}

// Root gets the current root of the transaction.
func (t *TreeTransaction) Root() (*Node, error) {
	if !t.valid {
		return nil, errTransactionDone
	}

	if t.root.IsEqual(&EmptyTree) {
		return nil, nil
	}

	return t.GetNode(t.root)
}

// SetRoot sets the root for the current transaction.
func (t *TreeTransaction) SetRoot(n *Node) error {
	if !t.valid {
		return errTransactionDone
	}

	if n == nil {
		t.root = EmptyTree
		return nil
	}

	nodeHash := n.GetHash()
	if _, found := t.dirty[nodeHash]; !found {
		t.dirty[nodeHash] = *n
	}
	t.root = nodeHash

	return nil
}

// NewNode creates a new inner node in the transaction cache.
func (t *TreeTransaction) NewNode(left *Node, right *Node, subtreeHash chainhash.Hash) (*Node, error) {
	if !t.valid {
		return nil, errTransactionDone
	}

	n := newInnerNode(left, right, subtreeHash)
	t.dirty[subtreeHash] = *n
	return n, nil
}

// NewSingleNode creates a new node with only a single KV-pair in the subtree.
func (t *TreeTransaction) NewSingleNode(key chainhash.Hash, value chainhash.Hash, subtreeHash chainhash.Hash) (*Node, error) {
	if !t.valid {
		return nil, errTransactionDone
	}

	n := newSingleNode(key, value, subtreeHash)
	t.dirty[subtreeHash] = *n
	return n, nil
}

// GetNode gets a node based on the subtree hash.
func (t *TreeTransaction) GetNode(c chainhash.Hash) (*Node, error) {
	if !t.valid {
		return nil, errTransactionDone
	}

	if n, found := t.dirty[c]; found {
		return &n, nil
	}
	return t.underlyingStore.GetNode(c)
}

// SetNode sets a node in the transaction.
func (t *TreeTransaction) SetNode(n *Node) error {
	if !t.valid {
		return errTransactionDone
	}

	t.dirty[n.GetHash()] = *n
	return nil
}

// Get gets a value from the transaction.
func (t *TreeTransaction) Get(key chainhash.Hash) (*chainhash.Hash, error) {
	if !t.valid {
		return nil, errTransactionDone
	}

	if val, found := t.dirtyKV[key]; found {
		return &val, nil
	}
	return t.underlyingStore.Get(key)
}

// Set inserts or updates key in the tree.
func (t *TreeTransaction) Set(key chainhash.Hash, val chainhash.Hash) error {
	if !t.valid {
		return errTransactionDone
	}

	return treeSet(kvOverlay{t}, key, val)
}

// Hash gets the root hash as of this transaction.
func (t *TreeTransaction) Hash() (*chainhash.Hash, error) {
	if !t.valid {
		return nil, errTransactionDone
	}
	return treeHash(t)
}

// Prove generates a verification witness for key as of this transaction.
func (t *TreeTransaction) Prove(key chainhash.Hash) (*VerificationWitness, error) {
	if !t.valid {
		return nil, errTransactionDone
	}
	return GenerateVerificationWitness(t, key)
}

// Discard drops all staged changes.
func (t *TreeTransaction) Discard() {
	t.valid = false
	t.dirty = nil
	t.dirtyKV = nil
}

// Flush writes the transaction to the underlying tree. Nodes are written before the root so a crash part way through
// leaves the old root intact.
func (t *TreeTransaction) Flush() error {
	if !t.valid {
		return errTransactionDone
	}

	for _, dirtyNode := range t.dirty {
		n := dirtyNode
		if err := t.underlyingStore.SetNode(&n); err != nil {
			return errors.Wrap(err, "error flushing tree node")
		}
	}

	for k, v := range t.dirtyKV {
		if err := t.underlyingStore.Set(k, v); err != nil {
			return errors.Wrap(err, "error flushing tree value")
		}
	}

	root, err := t.Root()
	if err != nil {
		return err
	}

	if err := t.underlyingStore.SetRoot(root); err != nil {
		return err
	}

	t.valid = false

	return nil
}

// kvOverlay routes treeSet's value write into the staged KV map instead of the recursive Set above.
type kvOverlay struct {
	*TreeTransaction
}

func (k kvOverlay) Set(key chainhash.Hash, val chainhash.Hash) error {
	k.dirtyKV[key] = val
	return nil
}
