package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// envelope wraps an event with the publishing instance id.
type envelope struct {
	Event      Event  `json:"event"`
	InstanceID string `json:"instance_id"`
}

// RedisBridge relays realtime events between service instances through Redis Pub/Sub.
type RedisBridge struct {
	client     *redis.Client
	channel    string
	logger     *zap.Logger
	instanceID string
}

// NewRedisBridge creates a bridge publishing on channel.
func NewRedisBridge(client *redis.Client, channel string, logger *zap.Logger) *RedisBridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisBridge{
		client:     client,
		channel:    channel,
		logger:     logger,
		instanceID: uuid.NewString(),
	}
}

// InstanceID identifies this process on the channel.
func (b *RedisBridge) InstanceID() string {
	return b.instanceID
}

// Publish sends event to the other instances.
func (b *RedisBridge) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(envelope{Event: event, InstanceID: b.instanceID})
	if err != nil {
		return fmt.Errorf("marshal realtime event: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		b.logger.Error("failed to publish realtime event",
			zap.String("event_type", string(event.Type)),
			zap.Error(err),
		)
		return fmt.Errorf("publish realtime event: %w", err)
	}
	return nil
}

// Run subscribes until ctx is cancelled, reconnecting with exponential backoff.
// Events published by this instance are skipped.
func (b *RedisBridge) Run(ctx context.Context, deliver func(Event)) error {
	backoff := time.Second
	maxBackoff := 30 * time.Second

	for {
		err := b.subscribe(ctx, deliver)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		b.logger.Warn("realtime subscription disconnected, reconnecting",
			zap.String("channel", b.channel),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
	}
}

func (b *RedisBridge) subscribe(ctx context.Context, deliver func(Event)) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.channel, err)
	}
	b.logger.Info("subscribed to realtime channel", zap.String("channel", b.channel))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var env envelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("failed to unmarshal realtime event", zap.Error(err))
				continue
			}
			if env.InstanceID == b.instanceID {
				continue
			}
			deliver(env.Event)
		}
	}
}
