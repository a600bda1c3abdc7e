package realtime

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-console/internal/observability"
)

// RedisSource receives push events published on a Redis channel.
type RedisSource struct {
	client  *redis.Client
	channel string
	backoff Backoff
	logger  *zap.Logger
}

// NewRedisSource creates a source subscribed to channel.
func NewRedisSource(client *redis.Client, channel string, backoff Backoff, logger *zap.Logger) *RedisSource {
	return &RedisSource{client: client, channel: channel, backoff: backoff, logger: observability.OrNop(logger)}
}

// Run subscribes and resubscribes until ctx ends.
func (r *RedisSource) Run(ctx context.Context, deliver func([]byte), state func(bool)) error {
	for {
		err := r.listen(ctx, deliver, state)
		state(false)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		delay := r.backoff.Next()
		r.logger.Warn("redis subscription interrupted, retrying", zap.String("channel", r.channel), zap.Error(err), zap.Duration("backoff", delay))
		if !wait(ctx, delay) {
			return ctx.Err()
		}
	}
}

func (r *RedisSource) listen(ctx context.Context, deliver func([]byte), state func(bool)) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	state(true)
	r.backoff.Reset()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription %s closed", r.channel)
			}
			deliver([]byte(msg.Payload))
		}
	}
}
