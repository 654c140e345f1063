package csmt

import (
	"bytes"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

// Node is a node in the tree. A node is either a "single" node, which stands
// for a subtree holding exactly one key, or an inner node with up to two
// children referenced by their subtree hashes.
type Node struct {
	value chainhash.Hash

	one      bool
	oneKey   *chainhash.Hash
	oneValue *chainhash.Hash

	left  *chainhash.Hash
	right *chainhash.Hash
}

// GetHash gets the hash of the subtree rooted at this node.
func (n *Node) GetHash() chainhash.Hash {
	return n.value
}

// Left gets the subtree hash of the left child or nil.
func (n *Node) Left() *chainhash.Hash {
	return n.left
}

// Right gets the subtree hash of the right child or nil.
func (n *Node) Right() *chainhash.Hash {
	return n.right
}

// IsSingle returns true if there is only one key in this subtree.
func (n *Node) IsSingle() bool {
	return n.one
}

// GetSingleKey gets the hashed key of a single node.
func (n *Node) GetSingleKey() chainhash.Hash {
	return *n.oneKey
}

// GetSingleValue gets the value of a single node.
func (n *Node) GetSingleValue() chainhash.Hash {
	return *n.oneValue
}

const (
	flagSingle = 1 << iota
	flagLeft
	flagRight
)

// Serialize encodes the node for disk storage.
func (n *Node) Serialize() []byte {
	var buf bytes.Buffer
	var flags byte
	if n.one {
		flags |= flagSingle
	}
	if n.left != nil {
		flags |= flagLeft
	}
	if n.right != nil {
		flags |= flagRight
	}
	buf.WriteByte(flags)
	buf.Write(n.value[:])
	if n.one {
		buf.Write(n.oneKey[:])
		buf.Write(n.oneValue[:])
		return buf.Bytes()
	}
	if n.left != nil {
		buf.Write(n.left[:])
	}
	if n.right != nil {
		buf.Write(n.right[:])
	}
	return buf.Bytes()
}

// DeserializeNode decodes a node written by Serialize.
func DeserializeNode(b []byte) (*Node, error) {
	if len(b) < 1+chainhash.HashSize {
		return nil, errors.New("serialized node too short")
	}
	flags := b[0]
	n := &Node{one: flags&flagSingle != 0}
	copy(n.value[:], b[1:33])
	rest := b[33:]

	next := func() (*chainhash.Hash, error) {
		if len(rest) < chainhash.HashSize {
			return nil, errors.New("serialized node truncated")
		}
		h, err := chainhash.BytesToHash(rest[:chainhash.HashSize])
		if err != nil {
			return nil, err
		}
		rest = rest[chainhash.HashSize:]
		return &h, nil
	}

	var err error
	if n.one {
		if n.oneKey, err = next(); err != nil {
			return nil, err
		}
		if n.oneValue, err = next(); err != nil {
			return nil, err
		}
		return n, nil
	}
	if flags&flagLeft != 0 {
		if n.left, err = next(); err != nil {
			return nil, err
		}
	}
	if flags&flagRight != 0 {
		if n.right, err = next(); err != nil {
			return nil, err
		}
	}
	return n, nil
}
