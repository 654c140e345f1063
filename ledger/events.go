package ledger

import (
	"context"
)

// Event is a notification emitted by a program. Events are only delivered for committed transactions.
type Event struct {
	ProgramID     Address `json:"program_id"`
	Name          string  `json:"name"`
	Data          []byte  `json:"data"`
	Slot          uint64  `json:"slot"`
	TransactionID string  `json:"transaction_id"`
}

// EventSink receives committed events. Delivery is best effort: the runtime logs a failed Publish and moves on.
type EventSink interface {
	Publish(ctx context.Context, ev Event) error
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(ctx context.Context, ev Event) error

// Publish implements EventSink.
func (f EventSinkFunc) Publish(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}
