package ledger

import (
	"bytes"

	"github.com/phoreproject/sentinel/utils"
	"github.com/pkg/errors"
)

// System program instruction tags.
const (
	SystemCreateAccount uint32 = 0
	SystemTransfer      uint32 = 2
)

// SystemProgram allocates accounts and moves lamports. It is registered at SystemProgramID by every runtime.
var SystemProgram Program = ProgramFunc(processSystemInstruction)

func processSystemInstruction(ctx *InvokeContext, accounts []AccountMeta, data []byte) error {
	r := utils.NewReader(bytes.NewReader(data))
	tag, err := r.ReadUint32()
	if err != nil {
		return errors.Wrap(ErrInvalidInstructionData, err.Error())
	}

	switch tag {
	case SystemCreateAccount:
		if len(accounts) < 2 {
			return ErrNotEnoughAccounts
		}
		lamports, err := r.ReadUint64()
		if err != nil {
			return errors.Wrap(ErrInvalidInstructionData, err.Error())
		}
		space, err := r.ReadUint64()
		if err != nil {
			return errors.Wrap(ErrInvalidInstructionData, err.Error())
		}
		var owner Address
		if err := r.ReadBytes(owner[:]); err != nil {
			return errors.Wrap(ErrInvalidInstructionData, err.Error())
		}
		return ctx.CreateAccount(accounts[0].Address, accounts[1].Address, nil, lamports, space, owner)
	case SystemTransfer:
		if len(accounts) < 2 {
			return ErrNotEnoughAccounts
		}
		lamports, err := r.ReadUint64()
		if err != nil {
			return errors.Wrap(ErrInvalidInstructionData, err.Error())
		}
		return ctx.Transfer(accounts[0].Address, accounts[1].Address, lamports)
	default:
		return errors.Wrapf(ErrInvalidInstructionData, "unknown system instruction %d", tag)
	}
}

// CreateAccountInstruction builds a system instruction allocating newAddr. Both payer and newAddr must sign.
func CreateAccountInstruction(payer Address, newAddr Address, lamports uint64, space uint64, owner Address) Instruction {
	var buf bytes.Buffer
	w := utils.NewWriter(&buf)
	w.WriteUint32(SystemCreateAccount)
	w.WriteUint64(lamports)
	w.WriteUint64(space)
	w.WriteBytes(owner[:])

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Address: payer, IsSigner: true, IsWritable: true},
			{Address: newAddr, IsSigner: true, IsWritable: true},
		},
		Data: buf.Bytes(),
	}
}

// TransferInstruction builds a system instruction moving lamports from one account to another.
func TransferInstruction(from Address, to Address, lamports uint64) Instruction {
	var buf bytes.Buffer
	w := utils.NewWriter(&buf)
	w.WriteUint32(SystemTransfer)
	w.WriteUint64(lamports)

	return Instruction{
		ProgramID: SystemProgramID,
		Accounts: []AccountMeta{
			{Address: from, IsSigner: true, IsWritable: true},
			{Address: to, IsWritable: true},
		},
		Data: buf.Bytes(),
	}
}
