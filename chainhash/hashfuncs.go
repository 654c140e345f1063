// Copyright (c) 2015 The Decred developers
// Copyright (c) 2016-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package chainhash

import (
	"errors"

	"golang.org/x/crypto/blake2b"
)

// HashB calculates hash(b) and returns the resulting bytes.
func HashB(b []byte) []byte {
	hash := blake2b.Sum256(b)
	return hash[:]
}

// HashH calculates hash(b) and returns the resulting bytes as a Hash.
func HashH(b []byte) Hash {
	return Hash(blake2b.Sum256(b))
}

// HashConcat hashes the concatenation of all of the given byte slices.
func HashConcat(parts ...[]byte) Hash {
	size := 0
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return HashH(buf)
}

// Discriminator returns the first 8 bytes of hash(name). It is used to tag
// serialized accounts, instructions and events with their type.
func Discriminator(name string) [8]byte {
	var out [8]byte
	h := HashH([]byte(name))
	copy(out[:], h[:8])
	return out
}

// BytesToHash converts a byte array to a hash.
func BytesToHash(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, errors.New("expected hash to be length 32")
	}
	var out Hash
	copy(out[:], b)
	return out, nil
}
