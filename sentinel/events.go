package sentinel

import (
	"bytes"

	"github.com/phoreproject/sentinel/chainhash"
	"github.com/phoreproject/sentinel/utils"
	"github.com/pkg/errors"
)

// FraudDetectedEvent is the ledger event name of FraudDetected.
const FraudDetectedEvent = "FraudDetected"

var fraudDetectedDiscriminator = chainhash.Discriminator("event:FraudDetected")

// FraudDetected is emitted when a record is created with its fraud flag set.
type FraudDetected struct {
	TransactionID string `json:"transaction_id"`
	FraudScore    uint8  `json:"fraud_score"`
}

// Encode returns the event payload.
func (f *FraudDetected) Encode() []byte {
	var buf bytes.Buffer
	w := utils.NewWriter(&buf)
	w.WriteBytes(fraudDetectedDiscriminator[:])
	w.WriteString(f.TransactionID)
	w.WriteUint8(f.FraudScore)
	return buf.Bytes()
}

// DecodeFraudDetected decodes an event payload written by Encode.
func DecodeFraudDetected(data []byte) (*FraudDetected, error) {
	r := utils.NewReader(bytes.NewReader(data))

	var disc [8]byte
	if err := r.ReadBytes(disc[:]); err != nil {
		return nil, errors.Wrap(err, "error reading event discriminator")
	}
	if disc != fraudDetectedDiscriminator {
		return nil, errors.New("payload is not a FraudDetected event")
	}

	var err error
	out := new(FraudDetected)
	if out.TransactionID, err = r.ReadString(MaxTransactionIDLength); err != nil {
		return nil, errors.Wrap(err, "error reading transaction id")
	}
	if out.FraudScore, err = r.ReadUint8(); err != nil {
		return nil, errors.Wrap(err, "error reading fraud score")
	}
	return out, nil
}
