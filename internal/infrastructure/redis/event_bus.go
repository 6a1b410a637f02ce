package redis

import (
	"context"
	"encoding/json"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const transitionChannel = "auction_status_events"

// RedisTransitionBus fans status transitions out to every gateway instance
// over pub/sub, so each instance can broadcast into its own rooms.
type RedisTransitionBus struct {
	client *redis.Client
	log    logger.Logger
}

func NewRedisTransitionBus(client *redis.Client, log logger.Logger) *RedisTransitionBus {
	return &RedisTransitionBus{client: client, log: log}
}

func (r *RedisTransitionBus) PublishTransition(ctx context.Context, t *domain.StatusTransition) error {
	data, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, transitionChannel, data).Err()
}

func (r *RedisTransitionBus) SubscribeTransitions(ctx context.Context, handler domain.TransitionHandler) error {
	pubsub := r.client.Subscribe(ctx, transitionChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()

	r.log.Info("Subscribed to auction status events")

	for {
		select {
		case msg := <-ch:
			var transition domain.StatusTransition
			if err := json.Unmarshal([]byte(msg.Payload), &transition); err != nil {
				r.log.Error("Failed to parse status event", "payload", msg.Payload, "error", err)
				continue
			}
			if err := handler(&transition); err != nil {
				r.log.Error("Failed to handle status event",
					"auction_id", transition.AuctionID, "error", err)
			}

		case <-ctx.Done():
			r.log.Info("Status event subscriber stopped")
			return ctx.Err()
		}
	}
}
