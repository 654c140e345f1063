package csmt

import (
	"sync"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

// InMemoryTreeDB is a tree stored in memory.
type InMemoryTreeDB struct {
	root  chainhash.Hash
	nodes map[chainhash.Hash]Node
	kv    map[chainhash.Hash]chainhash.Hash
	lock  sync.RWMutex
}

var _ TreeDatabase = (*InMemoryTreeDB)(nil)

// NewInMemoryTreeDB creates a new in-memory tree database.
func NewInMemoryTreeDB() *InMemoryTreeDB {
	return &InMemoryTreeDB{
		root:  EmptyTree,
		nodes: make(map[chainhash.Hash]Node),
		kv:    make(map[chainhash.Hash]chainhash.Hash),
	}
}

// GetNode gets a node from the tree database.
func (i *InMemoryTreeDB) GetNode(nodeHash chainhash.Hash) (*Node, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	n, found := i.nodes[nodeHash]
	if !found {
		return nil, errors.Errorf("could not find node %s", nodeHash)
	}
	return &n, nil
}

// SetNode sets a node in the database.
func (i *InMemoryTreeDB) SetNode(n *Node) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.nodes[n.GetHash()] = *n
	return nil
}

// Root gets the root of the tree.
func (i *InMemoryTreeDB) Root() (*Node, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	if i.root.IsEqual(&EmptyTree) {
		return nil, nil
	}
	n, found := i.nodes[i.root]
	if !found {
		return nil, errors.Errorf("could not find root node %s", i.root)
	}
	return &n, nil
}

// SetRoot sets the root of the tree.
func (i *InMemoryTreeDB) SetRoot(n *Node) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	if n == nil {
		i.root = EmptyTree
		return nil
	}
	nodeHash := n.GetHash()
	if _, found := i.nodes[nodeHash]; !found {
		i.nodes[nodeHash] = *n
	}
	i.root = nodeHash
	return nil
}

// NewNode creates a new inner node.
func (i *InMemoryTreeDB) NewNode(left *Node, right *Node, subtreeHash chainhash.Hash) (*Node, error) {
	n := newInnerNode(left, right, subtreeHash)
	return n, i.SetNode(n)
}

// NewSingleNode creates a new node with only one key-value pair.
func (i *InMemoryTreeDB) NewSingleNode(key chainhash.Hash, value chainhash.Hash, subtreeHash chainhash.Hash) (*Node, error) {
	n := newSingleNode(key, value, subtreeHash)
	return n, i.SetNode(n)
}

// Get gets a value from the key-value store.
func (i *InMemoryTreeDB) Get(key chainhash.Hash) (*chainhash.Hash, error) {
	i.lock.RLock()
	defer i.lock.RUnlock()
	v, found := i.kv[key]
	if !found {
		return nil, nil
	}
	return &v, nil
}

// Set sets a value in the key-value store.
func (i *InMemoryTreeDB) Set(key chainhash.Hash, value chainhash.Hash) error {
	i.lock.Lock()
	defer i.lock.Unlock()
	i.kv[key] = value
	return nil
}
