package notifier

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher is the part of a redis client the sink uses.
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes alerts on a redis pub/sub channel.
type RedisSink struct {
	client  RedisPublisher
	channel string
}

// NewRedisSink creates a sink publishing on channel.
func NewRedisSink(client RedisPublisher, channel string) *RedisSink {
	return &RedisSink{client: client, channel: channel}
}

// PublishAlert implements AlertSink.
func (r *RedisSink) PublishAlert(ctx context.Context, alert *Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return errors.Wrap(err, "error encoding alert")
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return errors.Wrapf(err, "error publishing alert for %s to redis", alert.TransactionID)
	}
	return nil
}
