package notifier_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/go-test/deep"
	"github.com/phoreproject/sentinel/ledger"
	"github.com/phoreproject/sentinel/notifier"
	"github.com/phoreproject/sentinel/sentinel"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func fraudEvent(id string, score uint8) ledger.Event {
	payload := sentinel.FraudDetected{TransactionID: id, FraudScore: score}
	return ledger.Event{
		ProgramID:     sentinel.DefaultProgramID,
		Name:          sentinel.FraudDetectedEvent,
		Data:          payload.Encode(),
		Slot:          12,
		TransactionID: "sig-" + id,
	}
}

func TestParseAlert(t *testing.T) {
	alert, err := notifier.ParseAlert(fraudEvent("tx-001", 87))
	if err != nil {
		t.Fatal(err)
	}

	expected := &notifier.Alert{
		TransactionID: "tx-001",
		FraudScore:    87,
		ProgramID:     sentinel.DefaultProgramID,
		Slot:          12,
		Signature:     "sig-tx-001",
	}
	if diff := deep.Equal(alert, expected); diff != nil {
		t.Fatal(diff)
	}

	if _, err := notifier.ParseAlert(ledger.Event{Name: "Other"}); err != notifier.ErrNotFraudEvent {
		t.Fatalf("expected ErrNotFraudEvent, got %v", err)
	}
	if _, err := notifier.ParseAlert(ledger.Event{Name: sentinel.FraudDetectedEvent, Data: []byte{1}}); err == nil {
		t.Fatal("expected garbage payload to fail")
	}
}

type recordingSink struct {
	alerts []*notifier.Alert
}

func (r *recordingSink) PublishAlert(ctx context.Context, alert *notifier.Alert) error {
	r.alerts = append(r.alerts, alert)
	return nil
}

func TestSinkSkipsOtherEvents(t *testing.T) {
	rec := &recordingSink{}
	s := notifier.Sink{AlertSink: rec}

	if err := s.Publish(context.Background(), ledger.Event{Name: "NoteStored"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Publish(context.Background(), fraudEvent("tx-002", 91)); err != nil {
		t.Fatal(err)
	}

	if len(rec.alerts) != 1 || rec.alerts[0].TransactionID != "tx-002" {
		t.Fatalf("unexpected alerts %+v", rec.alerts)
	}
}

type fakeKafkaWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSink(t *testing.T) {
	w := &fakeKafkaWriter{}
	k := notifier.NewKafkaSink(w)
	s := notifier.Sink{AlertSink: k}

	if err := s.Publish(context.Background(), fraudEvent("tx-003", 77)); err != nil {
		t.Fatal(err)
	}
	if len(w.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(w.messages))
	}
	if string(w.messages[0].Key) != "tx-003" {
		t.Fatalf("expected message keyed by transaction id, got %s", w.messages[0].Key)
	}

	var alert notifier.Alert
	if err := json.Unmarshal(w.messages[0].Value, &alert); err != nil {
		t.Fatal(err)
	}
	if alert.TransactionID != "tx-003" || alert.FraudScore != 77 || alert.ProgramID != sentinel.DefaultProgramID {
		t.Fatalf("unexpected alert %+v", alert)
	}

	w.err = errors.New("broker down")
	if err := s.Publish(context.Background(), fraudEvent("tx-004", 77)); errors.Cause(err) != w.err {
		t.Fatalf("expected broker error, got %v", err)
	}

	if err := k.Close(); err != nil || !w.closed {
		t.Fatal("expected writer to be closed")
	}
}

type fakeRedis struct {
	channel  string
	messages [][]byte
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.messages = append(f.messages, message.([]byte))
	return redis.NewIntResult(1, nil)
}

func TestRedisSink(t *testing.T) {
	r := &fakeRedis{}
	s := notifier.Sink{AlertSink: notifier.NewRedisSink(r, "sentinel:fraud")}

	if err := s.Publish(context.Background(), fraudEvent("tx-005", 99)); err != nil {
		t.Fatal(err)
	}
	if r.channel != "sentinel:fraud" || len(r.messages) != 1 {
		t.Fatalf("unexpected publish to %q (%d messages)", r.channel, len(r.messages))
	}

	var alert notifier.Alert
	if err := json.Unmarshal(r.messages[0], &alert); err != nil {
		t.Fatal(err)
	}
	if alert.TransactionID != "tx-005" || alert.FraudScore != 99 {
		t.Fatalf("unexpected alert %+v", alert)
	}
}

func TestLogSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	s := notifier.Sink{AlertSink: notifier.LogSink{Logger: logger}}

	if err := s.Publish(context.Background(), fraudEvent("tx-006", 88)); err != nil {
		t.Fatal(err)
	}

	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatal("expected a warning to be logged")
	}
	if entry.Data["transaction"] != "tx-006" {
		t.Fatalf("unexpected log fields %v", entry.Data)
	}
}

func TestChannelSink(t *testing.T) {
	c := notifier.NewChannelSink()
	a, unsubscribeA := c.Subscribe(4)
	b, unsubscribeB := c.Subscribe(1)
	defer unsubscribeA()

	s := notifier.Sink{AlertSink: c}
	for _, id := range []string{"tx-1", "tx-2"} {
		if err := s.Publish(context.Background(), fraudEvent(id, 60)); err != nil {
			t.Fatal(err)
		}
	}

	if got := (<-a).TransactionID; got != "tx-1" {
		t.Fatalf("expected tx-1, got %s", got)
	}
	if got := (<-a).TransactionID; got != "tx-2" {
		t.Fatalf("expected tx-2, got %s", got)
	}

	// b only had room for one alert
	if got := (<-b).TransactionID; got != "tx-1" {
		t.Fatalf("expected tx-1, got %s", got)
	}
	select {
	case alert := <-b:
		t.Fatalf("expected second alert to be dropped, got %+v", alert)
	default:
	}

	unsubscribeB()
	unsubscribeB()
	if _, ok := <-b; ok {
		t.Fatal("expected channel to be closed after unsubscribe")
	}
}

func TestChannelSinkConcurrentPublish(t *testing.T) {
	c := notifier.NewChannelSink()
	ch, unsubscribe := c.Subscribe(100)
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.PublishAlert(context.Background(), &notifier.Alert{TransactionID: "tx"})
		}()
	}
	wg.Wait()

	if len(ch) != 100 {
		t.Fatalf("expected 100 alerts, got %d", len(ch))
	}
}
