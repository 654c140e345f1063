package ledger

import (
	"filippo.io/edwards25519"
	"github.com/btcsuite/btcutil/base58"
	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

const (
	// AddressSize is the length of an address in bytes.
	AddressSize = 32

	// MaxSeedLength is the longest a single derivation seed may be.
	MaxSeedLength = 32

	// MaxSeeds is the most seeds a program address may be derived from.
	MaxSeeds = 16
)

var programAddressMarker = []byte("ProgramDerivedAddress")

// Address identifies an account. Addresses of keypairs are ed25519 public keys; program derived addresses are
// guaranteed not to be.
type Address [AddressSize]byte

// SystemProgramID is the address of the built-in system program.
var SystemProgramID = Address{}

// String encodes the address in base58.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	b := base58.Decode(s)
	if len(b) != AddressSize {
		return Address{}, errors.Errorf("invalid address %q", s)
	}
	var out Address
	copy(out[:], b)
	return out, nil
}

// IsOnCurve reports whether the address is a valid ed25519 point, i.e. could have a private key.
func IsOnCurve(a Address) bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}

// CreateProgramAddress hashes the seeds with the program ID. It fails if the result lands on the curve.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, ErrMaxSeedsExceeded
	}

	parts := make([][]byte, 0, len(seeds)+2)
	for _, s := range seeds {
		if len(s) > MaxSeedLength {
			return Address{}, errors.Wrapf(ErrMaxSeedLengthExceeded, "seed of length %d", len(s))
		}
		parts = append(parts, s)
	}
	parts = append(parts, programID[:], programAddressMarker)

	out := Address(chainhash.HashConcat(parts...))
	if IsOnCurve(out) {
		return Address{}, ErrInvalidSeeds
	}
	return out, nil
}

// FindProgramAddress finds the first bump, counting down from 255, for which seeds || bump yields a valid program
// address. The result only depends on the seeds and the program ID.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, ErrMaxSeedsExceeded
	}

	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}

		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if errors.Cause(err) != ErrInvalidSeeds {
			return Address{}, 0, err
		}
	}

	return Address{}, 0, ErrInvalidSeeds
}

// MustParseAddress is ParseAddress for constants. It panics on invalid input.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}
