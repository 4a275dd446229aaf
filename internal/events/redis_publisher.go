package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher mirrors every dispatched event onto a redis pub/sub channel
// for external consumers. Delivery is best-effort: a publish failure is
// logged and never fails the originating operation.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisPublisher builds the publisher.
func NewRedisPublisher(client *redis.Client, channel string, logger *zap.Logger) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// RegisterAll subscribes the publisher to every event type.
func (p *RedisPublisher) RegisterAll(dispatcher Dispatcher) {
	if p == nil || p.client == nil || dispatcher == nil {
		return
	}
	for _, eventType := range []EventType{
		EventTicketCreated,
		EventTicketStatusChanged,
		EventTicketRouted,
		EventMessageAppended,
		EventIntakeFailed,
	} {
		dispatcher.Subscribe(eventType, p.publish)
	}
}

func (p *RedisPublisher) publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("marshal event for redis", zap.Error(err), zap.String("event_type", string(event.Type)))
		return nil
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		p.logger.Warn("publish event to redis", zap.Error(err), zap.String("event_type", string(event.Type)))
	}
	return nil
}
