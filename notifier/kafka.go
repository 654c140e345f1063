package notifier

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// KafkaWriter is the part of kafka.Writer the sink uses.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes alerts to a Kafka topic, keyed by transaction id.
type KafkaSink struct {
	writer KafkaWriter
}

// NewKafkaWriter creates an asynchronous writer for topic. Delivery failures are logged and dropped.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    true,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				log.WithError(err).WithField("messages", len(messages)).Warn("failed to deliver alerts to kafka")
			}
		},
	}
}

// NewKafkaSink creates a sink writing to w.
func NewKafkaSink(w KafkaWriter) *KafkaSink {
	return &KafkaSink{writer: w}
}

// PublishAlert implements AlertSink.
func (k *KafkaSink) PublishAlert(ctx context.Context, alert *Alert) error {
	value, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "error encoding alert")
	}

	msg := kafka.Message{
		Key:   []byte(alert.TransactionID),
		Value: value,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "error publishing alert for %s to kafka", alert.TransactionID)
	}
	return nil
}

// Close closes the underlying writer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}
