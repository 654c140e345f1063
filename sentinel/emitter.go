package sentinel

import (
	"github.com/phoreproject/sentinel/ledger"
)

// emitIfFraud signals a fraud verdict. Nothing is frozen or reverted; consumers of the event decide what to do.
func emitIfFraud(ctx *ledger.InvokeContext, record *TransactionRecord) {
	if !record.IsFraud {
		ctx.Log("Transaction Verified. Status: Safe.")
		return
	}

	ctx.Log("FRAUD DETECTED! Transaction blocked.")
	ev := FraudDetected{
		TransactionID: record.TransactionID,
		FraudScore:    record.FraudScore,
	}
	ctx.Emit(FraudDetectedEvent, ev.Encode())
}
