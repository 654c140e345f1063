// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"encoding/hex"
	"fmt"
)

// HashSize of array used to store hashes.  See Hash.
const HashSize = 32

// MaxHashStringSize is the maximum length of a Hash hash string.
const MaxHashStringSize = HashSize * 2

// ErrHashStrSize describes an error that indicates the caller specified a hash
// string that has too many characters.
var ErrHashStrSize = fmt.Errorf("max hash string length is %v bytes", MaxHashStringSize)

// Hash is used in several of the ledger messages and common structures.  It
// typically represents the blake2b-256 of data.
type Hash [HashSize]byte

// String returns the Hash as the hexadecimal string.
func (hash Hash) String() string {
	return hex.EncodeToString(hash[:])
}

// MarshalText implements encoding.TextMarshaler.
func (hash Hash) MarshalText() ([]byte, error) {
	return []byte(hash.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (hash *Hash) UnmarshalText(text []byte) error {
	h, err := NewHashFromStr(string(text))
	if err != nil {
		return err
	}
	*hash = *h
	return nil
}

// CloneBytes returns a copy of the bytes which represent the hash as a byte
// slice.
func (hash *Hash) CloneBytes() []byte {
	newHash := make([]byte, HashSize)
	copy(newHash, hash[:])

	return newHash
}

// SetBytes sets the bytes which represent the hash.  An error is returned if
// the number of bytes passed in is not HashSize.
func (hash *Hash) SetBytes(newHash []byte) error {
	nhlen := len(newHash)
	if nhlen != HashSize {
		return fmt.Errorf("invalid hash length of %v, want %v", nhlen,
			HashSize)
	}
	copy(hash[:], newHash)

	return nil
}

// IsEqual returns true if target is the same as hash.
func (hash *Hash) IsEqual(target *Hash) bool {
	if hash == nil && target == nil {
		return true
	}
	if hash == nil || target == nil {
		return false
	}
	return *hash == *target
}

// NewHashFromStr creates a Hash from a hex hash string.
func NewHashFromStr(hash string) (*Hash, error) {
	if len(hash) > MaxHashStringSize {
		return nil, ErrHashStrSize
	}
	b, err := hex.DecodeString(hash)
	if err != nil {
		return nil, err
	}
	var out Hash
	if err := out.SetBytes(b); err != nil {
		return nil, err
	}
	return &out, nil
}
