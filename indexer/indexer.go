package indexer

import (
	"context"

	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/notifier"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "indexer")

// Indexer stores fraud alerts of one program.
type Indexer struct {
	db        *Database
	programID ledger.Address
}

// NewIndexer creates an indexer for alerts emitted by programID.
func NewIndexer(db *Database, programID ledger.Address) *Indexer {
	return &Indexer{db: db, programID: programID}
}

// Database returns the alert database.
func (i *Indexer) Database() *Database {
	return i.db
}

// Handle indexes a single alert. Alerts from other programs and repeated deliveries are ignored.
func (i *Indexer) Handle(alert *notifier.Alert) error {
	if alert.ProgramID != i.programID {
		return nil
	}

	recordAddr, _, err := sentinel.RecordAddress(i.programID, alert.TransactionID)
	if err != nil {
		return err
	}

	inserted, err := i.db.Save(&FraudAlert{
		TransactionID: alert.TransactionID,
		FraudScore:    alert.FraudScore,
		Slot:          alert.Slot,
		Signature:     alert.Signature,
		ProgramID:     alert.ProgramID.String(),
		RecordAddress: recordAddr.String(),
	})
	if err != nil {
		return err
	}
	if inserted {
		log.WithFields(logrus.Fields{
			"transaction": alert.TransactionID,
			"score":       alert.FraudScore,
			"slot":        alert.Slot,
		}).Info("indexed fraud alert")
	}
	return nil
}

// Run indexes alerts until alerts is closed or ctx is cancelled. On cancellation the alerts already buffered in the
// channel are still indexed.
func (i *Indexer) Run(ctx context.Context, alerts <-chan *notifier.Alert) {
	for {
		select {
		case <-ctx.Done():
			i.drain(alerts)
			return
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			i.handleLogged(alert)
		}
	}
}

func (i *Indexer) drain(alerts <-chan *notifier.Alert) {
	for {
		select {
		case alert, ok := <-alerts:
			if !ok {
				return
			}
			i.handleLogged(alert)
		default:
			return
		}
	}
}

func (i *Indexer) handleLogged(alert *notifier.Alert) {
	if err := i.Handle(alert); err != nil {
		log.WithError(err).WithField("transaction", alert.TransactionID).Error("failed to index alert")
	}
}

// PublishAlert indexes alert synchronously. It lets the indexer be used directly as a notifier.AlertSink.
func (i *Indexer) PublishAlert(ctx context.Context, alert *notifier.Alert) error {
	return i.Handle(alert)
}
