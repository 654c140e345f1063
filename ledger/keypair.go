package ledger

import (
	"crypto/ed25519"
	"io"

	"github.com/pkg/errors"
)

// Keypair is an ed25519 key whose public half is an account address.
type Keypair struct {
	private ed25519.PrivateKey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair(rand io.Reader) (*Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	return &Keypair{private: priv}, nil
}

// KeypairFromSeed derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Errorf("expected seed of length %d, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{private: ed25519.NewKeyFromSeed(seed)}, nil
}

// Seed returns the private seed of the keypair.
func (k *Keypair) Seed() []byte {
	return k.private.Seed()
}

// Address returns the public key as an address.
func (k *Keypair) Address() Address {
	var out Address
	copy(out[:], k.private.Public().(ed25519.PublicKey))
	return out
}

// Sign signs msg.
func (k *Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.private, msg)
}

// VerifySignature checks an ed25519 signature made by the key behind addr.
func VerifySignature(addr Address, msg []byte, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(addr[:]), msg, sig)
}
