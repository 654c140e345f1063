package notifier

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSink writes alerts to a logrus logger.
type LogSink struct {
	Logger logrus.FieldLogger
}

// PublishAlert implements AlertSink.
func (l LogSink) PublishAlert(ctx context.Context, alert *Alert) error {
	logger := l.Logger
	if logger == nil {
		logger = log
	}
	logger.WithFields(logrus.Fields{
		"transaction": alert.TransactionID,
		"score":       alert.FraudScore,
		"slot":        alert.Slot,
		"signature":   alert.Signature,
	}).Warn("fraud detected")
	return nil
}
