package sentinel

import (
	"github.com/phoreproject/sentinel/ledger"
	"github.com/pkg/errors"
)

// RecordSeed namespaces record addresses.
const RecordSeed = "transaction"

// DefaultProgramID is where the sentinel program is deployed unless configured otherwise.
var DefaultProgramID = ledger.MustParseAddress("Fg6PaFpoGXkYsidMpWTK6W2BeZ7FEfcYkg476zPFsLnS")

// RecordSeeds returns the seeds of the record address for transactionID, without the bump.
func RecordSeeds(transactionID string) [][]byte {
	return [][]byte{[]byte(RecordSeed), []byte(transactionID)}
}

// RecordAddress derives where the record for transactionID lives. The address only depends on the program and the
// transaction id.
func RecordAddress(programID ledger.Address, transactionID string) (ledger.Address, uint8, error) {
	if transactionID == "" {
		return ledger.Address{}, 0, ErrInvalidTransactionID
	}
	if len(transactionID) > MaxTransactionIDLength {
		return ledger.Address{}, 0, errors.Wrapf(ErrOversizeField, "transaction id is %d bytes, limit is %d (%s)",
			len(transactionID), MaxTransactionIDLength, ledger.ErrMaxSeedLengthExceeded)
	}

	addr, bump, err := ledger.FindProgramAddress(RecordSeeds(transactionID), programID)
	if err != nil {
		if errors.Cause(err) == ledger.ErrMaxSeedLengthExceeded {
			return ledger.Address{}, 0, errors.Wrap(ErrOversizeField, err.Error())
		}
		return ledger.Address{}, 0, err
	}
	return addr, bump, nil
}
