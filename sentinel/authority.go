package sentinel

import (
	"crypto/ed25519"
	"fmt"

	"github.com/phoreproject/sentinel/ledger"
	"github.com/pkg/errors"
)

// AuthorityVerifier decides whether a process_transaction request may be recorded.
type AuthorityVerifier interface {
	Verify(sender ledger.Address, args *ProcessTransactionArgs) error
}

// NoopVerifier accepts every request. Whoever signs the transaction is trusted as the oracle.
type NoopVerifier struct{}

// Verify implements AuthorityVerifier.
func (NoopVerifier) Verify(ledger.Address, *ProcessTransactionArgs) error {
	return nil
}

// OracleMessage is the message an oracle signs for a verdict.
func OracleMessage(transactionID string, fraudScore uint8, isFraud bool) []byte {
	return []byte(fmt.Sprintf("%s:%d:%t", transactionID, fraudScore, isFraud))
}

// OracleVerifier only accepts requests whose signature is an oracle's signature over the verdict.
type OracleVerifier struct {
	oracles map[ledger.Address]struct{}
}

// NewOracleVerifier creates a verifier trusting the given oracle keys.
func NewOracleVerifier(oracles ...ledger.Address) *OracleVerifier {
	v := &OracleVerifier{oracles: make(map[ledger.Address]struct{})}
	for _, o := range oracles {
		v.oracles[o] = struct{}{}
	}
	return v
}

// Verify implements AuthorityVerifier.
func (v *OracleVerifier) Verify(sender ledger.Address, args *ProcessTransactionArgs) error {
	if len(args.Signature) != ed25519.SignatureSize {
		return errors.Wrapf(ErrUnauthorized, "signature is %d bytes", len(args.Signature))
	}

	msg := OracleMessage(args.TransactionID, args.FraudScore, args.IsFraud)

	for o := range v.oracles {
		if ledger.VerifySignature(o, msg, args.Signature) {
			return nil
		}
	}
	return errors.Wrapf(ErrUnauthorized, "no oracle signed verdict for %s", args.TransactionID)
}
