package ledger

import (
	"bytes"
	"encoding/hex"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/utils"
	"github.com/pkg/errors"
)

// AccountMeta references an account from an instruction.
type AccountMeta struct {
	Address    Address `json:"address"`
	IsSigner   bool    `json:"is_signer"`
	IsWritable bool    `json:"is_writable"`
}

// Instruction is a single program invocation.
type Instruction struct {
	ProgramID Address       `json:"program_id"`
	Accounts  []AccountMeta `json:"accounts"`
	Data      []byte        `json:"data"`
}

// Transaction is a list of instructions executed atomically.
type Transaction struct {
	Instructions []Instruction `json:"instructions"`
	Signers      []Address     `json:"signers"`
	Nonce        uint64        `json:"nonce"`
	Signatures   [][]byte      `json:"signatures"`
}

// Message returns the bytes every signer signs.
func (t *Transaction) Message() []byte {
	var buf bytes.Buffer
	w := utils.NewWriter(&buf)
	w.WriteUint64(t.Nonce)
	w.WriteUint32(uint32(len(t.Signers)))
	for _, s := range t.Signers {
		w.WriteBytes(s[:])
	}
	w.WriteUint32(uint32(len(t.Instructions)))
	for _, ix := range t.Instructions {
		w.WriteBytes(ix.ProgramID[:])
		w.WriteUint32(uint32(len(ix.Accounts)))
		for _, m := range ix.Accounts {
			w.WriteBytes(m.Address[:])
			w.WriteBool(m.IsSigner)
			w.WriteBool(m.IsWritable)
		}
		w.WriteVarBytes(ix.Data)
	}
	digest := chainhash.HashH(buf.Bytes())
	return digest[:]
}

// Sign sets the signers and signatures from the given keypairs. The first keypair pays for the transaction.
func (t *Transaction) Sign(keys ...*Keypair) {
	msgSigners := make([]Address, len(keys))
	for i, k := range keys {
		msgSigners[i] = k.Address()
	}
	t.Signers = msgSigners

	msg := t.Message()
	t.Signatures = make([][]byte, len(keys))
	for i, k := range keys {
		t.Signatures[i] = k.Sign(msg)
	}
}

// VerifySignatures checks every signer signed the message and every account marked as a signer is one of them.
func (t *Transaction) VerifySignatures() error {
	if len(t.Signers) == 0 {
		return errors.Wrap(ErrMissingSigner, "transaction has no signers")
	}
	if len(t.Signatures) != len(t.Signers) {
		return errors.Wrapf(ErrInvalidSignature, "expected %d signatures, got %d", len(t.Signers), len(t.Signatures))
	}

	msg := t.Message()
	signed := make(map[Address]struct{}, len(t.Signers))
	for i, s := range t.Signers {
		if !VerifySignature(s, msg, t.Signatures[i]) {
			return errors.Wrapf(ErrInvalidSignature, "bad signature for %s", s)
		}
		signed[s] = struct{}{}
	}

	for _, ix := range t.Instructions {
		for _, m := range ix.Accounts {
			if !m.IsSigner {
				continue
			}
			if _, ok := signed[m.Address]; !ok {
				return errors.Wrapf(ErrMissingSigner, "account %s", m.Address)
			}
		}
	}

	return nil
}

// ID is the hex encoding of the first signature, which identifies the transaction.
func (t *Transaction) ID() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return hex.EncodeToString(t.Signatures[0])
}
