package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantfold/polypilot/internal/domain"
)

// eventStream is the single stream carrying trading lifecycle events.
const eventStream = "polypilot:events"

// streamMaxLen caps the stream length, enforced approximately via XADD MAXLEN ~.
const streamMaxLen int64 = 10000

// EventBus implements domain.EventBus on a Redis stream. Events are durable
// and ordered; consumers read them with XREAD outside this process.
type EventBus struct {
	rdb *redis.Client
}

// NewEventBus creates an EventBus backed by the given Client.
func NewEventBus(c *Client) *EventBus {
	return &EventBus{rdb: c.Underlying()}
}

// Publish appends one event to the stream.
func (b *EventBus) Publish(ctx context.Context, event string, payload []byte) error {
	args := &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event":   event,
			"payload": payload,
		},
	}
	if err := b.rdb.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis: publish %s: %w", event, err)
	}
	return nil
}

var _ domain.EventBus = (*EventBus)(nil)
