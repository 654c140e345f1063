package notifier

import (
	"context"
	"sync"
)

// ChannelSink fans alerts out to in-process subscribers. A subscriber that falls behind misses alerts.
type ChannelSink struct {
	subscribers map[uint64]chan *Alert
	nextID      uint64
	lock        sync.RWMutex
}

// NewChannelSink creates a sink with no subscribers.
func NewChannelSink() *ChannelSink {
	return &ChannelSink{subscribers: make(map[uint64]chan *Alert)}
}

// Subscribe returns a channel receiving alerts and a function that unsubscribes and closes it.
func (c *ChannelSink) Subscribe(buffer int) (<-chan *Alert, func()) {
	c.lock.Lock()
	defer c.lock.Unlock()

	id := c.nextID
	c.nextID++
	ch := make(chan *Alert, buffer)
	c.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.lock.Lock()
			defer c.lock.Unlock()
			delete(c.subscribers, id)
			close(ch)
		})
	}
}

// PublishAlert implements AlertSink.
func (c *ChannelSink) PublishAlert(ctx context.Context, alert *Alert) error {
	c.lock.RLock()
	defer c.lock.RUnlock()

	for id, ch := range c.subscribers {
		select {
		case ch <- alert:
		default:
			log.WithField("subscriber", id).WithField("transaction", alert.TransactionID).Warn("subscriber is full, dropping alert")
		}
	}
	return nil
}
