package sentinel

import (
	"github.com/phoreproject/sentinel/ledger"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "sentinel")

// Program records oracle verdicts. It implements ledger.Program.
type Program struct {
	verifier AuthorityVerifier
}

var _ ledger.Program = (*Program)(nil)

// NewProgram creates the program. A nil verifier trusts the signer.
func NewProgram(verifier AuthorityVerifier) *Program {
	if verifier == nil {
		verifier = NoopVerifier{}
	}
	return &Program{verifier: verifier}
}

// createRequest is a decoded process_transaction call.
type createRequest struct {
	args     *ProcessTransactionArgs
	record   ledger.AccountMeta
	sender   ledger.AccountMeta
	receiver ledger.AccountMeta
}

// ProcessInstruction implements ledger.Program.
func (p *Program) ProcessInstruction(ctx *ledger.InvokeContext, accounts []ledger.AccountMeta, data []byte) error {
	args, err := DecodeProcessTransactionArgs(data)
	if err != nil {
		return err
	}
	if len(accounts) < 3 {
		return errors.Wrapf(ledger.ErrNotEnoughAccounts, "process_transaction needs 3 accounts, got %d", len(accounts))
	}

	req := &createRequest{
		args:     args,
		record:   accounts[0],
		sender:   accounts[1],
		receiver: accounts[2],
	}

	if err := p.verifier.Verify(req.sender.Address, args); err != nil {
		return err
	}

	record, err := createRecord(ctx, req)
	if err != nil {
		return err
	}

	emitIfFraud(ctx, record)

	log.WithFields(logrus.Fields{
		"transaction": record.TransactionID,
		"score":       record.FraudScore,
		"fraud":       record.IsFraud,
	}).Debug("recorded transaction")
	return nil
}

// createRecord allocates the record account at the address derived from the transaction id and fills it in. The
// allocation fails if anything already lives there, so a transaction id can only ever be recorded once.
func createRecord(ctx *ledger.InvokeContext, req *createRequest) (*TransactionRecord, error) {
	addr, bump, err := RecordAddress(ctx.ProgramID(), req.args.TransactionID)
	if err != nil {
		return nil, err
	}
	if addr != req.record.Address {
		return nil, errors.Wrapf(ErrAddressMismatch, "expected %s, got %s", addr, req.record.Address)
	}

	record := &TransactionRecord{
		TransactionID: req.args.TransactionID,
		Amount:        req.args.Amount,
		Sender:        req.sender.Address,
		Receiver:      req.receiver.Address,
		FraudScore:    req.args.FraudScore,
		IsFraud:       req.args.IsFraud,
		Timestamp:     ctx.UnixTimestamp(),
		Signature:     req.args.Signature,
	}
	data, err := record.Serialize()
	if err != nil {
		return nil, err
	}

	seeds := append(RecordSeeds(record.TransactionID), []byte{bump})
	err = ctx.CreateAccount(record.Sender, addr, seeds, ledger.MinimumBalance(RecordSpace), RecordSpace, ctx.ProgramID())
	switch errors.Cause(err) {
	case nil:
	case ledger.ErrAccountAlreadyInUse:
		return nil, errors.Wrapf(ErrAddressCollision, "transaction %s", record.TransactionID)
	case ledger.ErrInsufficientFunds:
		return nil, errors.Wrapf(ErrFundingFailure, "%s", err)
	default:
		return nil, err
	}

	if err := ctx.SetAccountData(addr, data); err != nil {
		return nil, err
	}
	return record, nil
}
