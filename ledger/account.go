package ledger

import (
	"bytes"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/utils"
	"github.com/pkg/errors"
)

// Account is the state stored at an address.
type Account struct {
	Owner    Address
	Lamports uint64
	Data     []byte
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	data := make([]byte, len(a.Data))
	copy(data, a.Data)
	return &Account{
		Owner:    a.Owner,
		Lamports: a.Lamports,
		Data:     data,
	}
}

// InUse is true once an account has been allocated: it holds data or has been assigned to a program. A system
// account that only holds lamports can still be allocated.
func (a *Account) InUse() bool {
	return a != nil && (len(a.Data) != 0 || a.Owner != SystemProgramID)
}

// Serialize encodes the account for storage.
func (a *Account) Serialize() []byte {
	var buf bytes.Buffer
	w := utils.NewWriter(&buf)
	w.WriteBytes(a.Owner[:])
	w.WriteUint64(a.Lamports)
	w.WriteVarBytes(a.Data)
	return buf.Bytes()
}

// DeserializeAccount decodes an account written by Serialize.
func DeserializeAccount(b []byte) (*Account, error) {
	r := utils.NewReader(bytes.NewReader(b))
	a := new(Account)
	if err := r.ReadBytes(a.Owner[:]); err != nil {
		return nil, errors.Wrap(err, "error reading account owner")
	}
	lamports, err := r.ReadUint64()
	if err != nil {
		return nil, errors.Wrap(err, "error reading account lamports")
	}
	a.Lamports = lamports
	data, err := r.ReadVarBytes(MaxAccountDataSize)
	if err != nil {
		return nil, errors.Wrap(err, "error reading account data")
	}
	a.Data = data
	return a, nil
}

// Hash is the state tree leaf committed for the account.
func (a *Account) Hash() chainhash.Hash {
	return chainhash.HashH(a.Serialize())
}
