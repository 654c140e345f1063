package csmt

import (
	"github.com/phoreproject/sentinel/chainhash"
	"github.com/pkg/errors"
)

// VerificationWitness allows anyone holding only a state root to verify that a key maps to a value.
type VerificationWitness struct {
	Key             chainhash.Hash
	Value           chainhash.Hash
	WitnessBitfield chainhash.Hash
	Witnesses       []chainhash.Hash
	LastLevel       uint8
}

// GenerateVerificationWitness walks the tree towards key and collects the sibling hashes along the path.
func GenerateVerificationWitness(t TreeDatabase, key chainhash.Hash) (*VerificationWitness, error) {
	hk := chainhash.HashH(key[:])

	current, err := t.Root()
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrKeyNotFound
	}

	vw := &VerificationWitness{Key: key}
	w := make([]chainhash.Hash, 0)
	level := uint8(255)

	for !current.IsSingle() {
		var next, sibling *chainhash.Hash
		if isRight(hk, level) {
			next, sibling = current.Right(), current.Left()
		} else {
			next, sibling = current.Left(), current.Right()
		}

		if sibling != nil {
			w = append(w, *sibling)
			vw.WitnessBitfield[level/8] |= 1 << uint(level%8)
		}

		if next == nil {
			return nil, ErrKeyNotFound
		}

		current, err = t.GetNode(*next)
		if err != nil {
			return nil, err
		}

		level--
	}

	if singleKey := current.GetSingleKey(); !singleKey.IsEqual(&hk) {
		return nil, ErrKeyNotFound
	}

	// CalculateRoot consumes witnesses from the bottom of the tree up
	for i := len(w)/2 - 1; i >= 0; i-- {
		opp := len(w) - 1 - i
		w[i], w[opp] = w[opp], w[i]
	}

	vw.Value = current.GetSingleValue()
	vw.Witnesses = w
	vw.LastLevel = level

	return vw, nil
}

// CalculateRoot calculates the root of the tree with the given witness information.
func CalculateRoot(key chainhash.Hash, value chainhash.Hash, witnessBitfield chainhash.Hash, witnesses []chainhash.Hash, lastLevel uint8) (*chainhash.Hash, error) {
	hk := chainhash.HashH(key[:])
	h := calculateSubtreeHashWithOneLeaf(&hk, &value, lastLevel)

	currentWitness := 0

	for i := uint16(lastLevel) + 1; i <= 255; i++ {
		hashToAdd := emptyTrees[i-1]
		if witnessBitfield[i/8]&(1<<uint8(i%8)) != 0 {
			if currentWitness >= len(witnesses) {
				return nil, errors.New("not enough witnesses")
			}
			hashToAdd = witnesses[currentWitness]
			currentWitness++
		}

		if isRight(hk, uint8(i)) {
			h = combineHashes(&hashToAdd, &h)
		} else {
			h = combineHashes(&h, &hashToAdd)
		}
	}

	if currentWitness != len(witnesses) {
		return nil, errors.New("too many witnesses")
	}

	return &h, nil
}

// CheckWitness checks that the witness proves its key/value pair under root.
func CheckWitness(vw *VerificationWitness, root chainhash.Hash) bool {
	h, err := CalculateRoot(vw.Key, vw.Value, vw.WitnessBitfield, vw.Witnesses, vw.LastLevel)
	if err != nil {
		return false
	}
	return h.IsEqual(&root)
}
