package notifier

import (
	"context"

	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var log = logrus.New().WithField("module", "notifier")

// ErrNotFraudEvent is returned by ParseAlert for events other than FraudDetected.
var ErrNotFraudEvent = errors.New("event is not a fraud alert")

// Alert is a committed FraudDetected event as delivered to subscribers.
type Alert struct {
	TransactionID string         `json:"transaction_id"`
	FraudScore    uint8          `json:"fraud_score"`
	ProgramID     ledger.Address `json:"program_id"`
	Slot          uint64         `json:"slot"`
	Signature     string         `json:"signature"`
}

// ParseAlert decodes a FraudDetected ledger event.
func ParseAlert(ev ledger.Event) (*Alert, error) {
	if ev.Name != sentinel.FraudDetectedEvent {
		return nil, ErrNotFraudEvent
	}
	payload, err := sentinel.DecodeFraudDetected(ev.Data)
	if err != nil {
		return nil, errors.Wrap(err, "error decoding fraud alert")
	}
	return &Alert{
		TransactionID: payload.TransactionID,
		FraudScore:    payload.FraudScore,
		ProgramID:     ev.ProgramID,
		Slot:          ev.Slot,
		Signature:     ev.TransactionID,
	}, nil
}

// AlertSink receives decoded fraud alerts.
type AlertSink interface {
	PublishAlert(ctx context.Context, alert *Alert) error
}

// Sink adapts an AlertSink to ledger.EventSink. Events that are not fraud alerts are skipped.
type Sink struct {
	AlertSink
}

var _ ledger.EventSink = Sink{}

// Publish implements ledger.EventSink.
func (s Sink) Publish(ctx context.Context, ev ledger.Event) error {
	alert, err := ParseAlert(ev)
	if err == ErrNotFraudEvent {
		return nil
	}
	if err != nil {
		return err
	}
	return s.PublishAlert(ctx, alert)
}
