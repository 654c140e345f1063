package sentinel

import (
	"bytes"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/utils"
	"github.com/pkg/errors"
)

// maxInstructionField bounds variable length instruction arguments. Anything longer than the record limits but
// shorter than this decodes and is then rejected with ErrOversizeField.
const maxInstructionField = 1232

var processTransactionDiscriminator = chainhash.Discriminator("global:process_transaction")

// ProcessTransactionArgs are the arguments of the process_transaction instruction.
type ProcessTransactionArgs struct {
	TransactionID string `json:"transaction_id"`
	Amount        uint64 `json:"amount"`
	FraudScore    uint8  `json:"fraud_score"`
	IsFraud       bool   `json:"is_fraud"`
	Signature     []byte `json:"signature"`
}

// Encode returns the instruction data for the arguments.
func (a *ProcessTransactionArgs) Encode() []byte {
	var buf bytes.Buffer
	w := utils.NewWriter(&buf)
	w.WriteBytes(processTransactionDiscriminator[:])
	w.WriteString(a.TransactionID)
	w.WriteUint64(a.Amount)
	w.WriteUint8(a.FraudScore)
	w.WriteBool(a.IsFraud)
	w.WriteVarBytes(a.Signature)
	return buf.Bytes()
}

// DecodeProcessTransactionArgs decodes process_transaction instruction data.
func DecodeProcessTransactionArgs(data []byte) (*ProcessTransactionArgs, error) {
	r := utils.NewReader(bytes.NewReader(data))

	var disc [8]byte
	if err := r.ReadBytes(disc[:]); err != nil {
		return nil, errors.Wrap(ledger.ErrInvalidInstructionData, "missing instruction discriminator")
	}
	if disc != processTransactionDiscriminator {
		return nil, errors.Wrap(ledger.ErrInvalidInstructionData, "unknown instruction")
	}

	var err error
	a := new(ProcessTransactionArgs)
	if a.TransactionID, err = r.ReadString(maxInstructionField); err != nil {
		return nil, errors.Wrapf(ledger.ErrInvalidInstructionData, "transaction id: %s", err)
	}
	if a.Amount, err = r.ReadUint64(); err != nil {
		return nil, errors.Wrapf(ledger.ErrInvalidInstructionData, "amount: %s", err)
	}
	if a.FraudScore, err = r.ReadUint8(); err != nil {
		return nil, errors.Wrapf(ledger.ErrInvalidInstructionData, "fraud score: %s", err)
	}
	if a.IsFraud, err = r.ReadBool(); err != nil {
		return nil, errors.Wrapf(ledger.ErrInvalidInstructionData, "fraud flag: %s", err)
	}
	if a.Signature, err = r.ReadVarBytes(maxInstructionField); err != nil {
		return nil, errors.Wrapf(ledger.ErrInvalidInstructionData, "signature: %s", err)
	}
	return a, nil
}

// ProcessTransactionInstruction builds a process_transaction instruction. sender pays for the record and must sign
// the transaction.
func ProcessTransactionInstruction(programID ledger.Address, sender ledger.Address, receiver ledger.Address, args ProcessTransactionArgs) (ledger.Instruction, error) {
	recordAddr, _, err := RecordAddress(programID, args.TransactionID)
	if err != nil {
		return ledger.Instruction{}, err
	}

	return ledger.Instruction{
		ProgramID: programID,
		Accounts: []ledger.AccountMeta{
			{Address: recordAddr, IsWritable: true},
			{Address: sender, IsSigner: true, IsWritable: true},
			{Address: receiver},
			{Address: ledger.SystemProgramID},
		},
		Data: args.Encode(),
	}, nil
}
