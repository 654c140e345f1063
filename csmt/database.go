package csmt

import (
	"github.com/phoreproject/sentinel/chainhash"
)

// TreeDatabase is a database that keeps track of a tree and the key-value
// pairs stored in it. Nodes are content addressed by their subtree hash and
// are never deleted, so every historical root stays provable.
type TreeDatabase interface {
	// Root gets the root node or nil if the tree is empty.
	Root() (*Node, error)

	// SetRoot sets the root node.
	SetRoot(*Node) error

	// NewNode creates a new inner node, adds it to the tree database, and returns it.
	NewNode(left *Node, right *Node, subtreeHash chainhash.Hash) (*Node, error)

	// NewSingleNode creates a new node that represents a subtree with only a single key.
	NewSingleNode(key chainhash.Hash, value chainhash.Hash, subtreeHash chainhash.Hash) (*Node, error)

	// GetNode gets a node from the database.
	GetNode(chainhash.Hash) (*Node, error)

	// SetNode sets a node in the database.
	SetNode(*Node) error

	// Get gets a value from the key-value store. Returns nil if not present.
	Get(chainhash.Hash) (*chainhash.Hash, error)

	// Set sets a value in the key-value store.
	Set(chainhash.Hash, chainhash.Hash) error
}

func newInnerNode(left *Node, right *Node, subtreeHash chainhash.Hash) *Node {
	n := &Node{value: subtreeHash}
	if left != nil {
		lh := left.GetHash()
		n.left = &lh
	}
	if right != nil {
		rh := right.GetHash()
		n.right = &rh
	}
	return n
}

func newSingleNode(key chainhash.Hash, value chainhash.Hash, subtreeHash chainhash.Hash) *Node {
	return &Node{
		one:      true,
		oneKey:   &key,
		oneValue: &value,
		value:    subtreeHash,
	}
}
