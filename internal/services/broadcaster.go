package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"chaindice-backend/internal/models"
)

// EventPublisher fans placed/settled events out to subscribers. Publishing
// is best-effort: a lost event never blocks or fails a settlement.
type EventPublisher interface {
	PublishBetPlaced(ctx context.Context, event models.BetEvent)
	PublishBetSettled(ctx context.Context, event models.BetEvent)
}

type RedisBroadcaster struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisBroadcaster(client *redis.Client, log *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{client: client, log: log}
}

func (b *RedisBroadcaster) PublishBetPlaced(ctx context.Context, event models.BetEvent) {
	event.Type = "bet_placed"
	b.publish(ctx, event)
}

func (b *RedisBroadcaster) PublishBetSettled(ctx context.Context, event models.BetEvent) {
	event.Type = "bet_settled"
	b.publish(ctx, event)
}

func (b *RedisBroadcaster) publish(ctx context.Context, event models.BetEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		b.log.Warn("failed to marshal bet event", zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, ChannelBetEvents, data).Err(); err != nil {
		b.log.Warn("failed to publish bet event", zap.String("bet_id", event.BetID), zap.Error(err))
	}
}

// BetFeed is the consumer side of the broadcast channel, typically the
// websocket hub.
type BetFeed interface {
	Broadcast(event models.BetEvent)
}

// StartSubscriber bridges the Redis event channel into a feed until the
// context ends or the subscription closes.
func StartSubscriber(ctx context.Context, client *redis.Client, feed BetFeed, log *zap.Logger) {
	sub := client.Subscribe(ctx, ChannelBetEvents)
	go func() {
		defer sub.Close()
		forwardEvents(ctx, sub.Channel(), feed, log)
	}()
}

func forwardEvents(ctx context.Context, ch <-chan *redis.Message, feed BetFeed, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event models.BetEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("failed to unmarshal bet event", zap.Error(err))
				continue
			}
			feed.Broadcast(event)
		}
	}
}
