package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketKeyPrefix = "helpdesk:ticket:"

// TicketCache keeps short-lived copies of ticket rows in Redis.
type TicketCache interface {
	Get(ctx context.Context, id string) (*domain.Ticket, bool, error)
	Set(ctx context.Context, ticket *domain.Ticket) error
	Invalidate(ctx context.Context, id string) error
}

type redisTicketCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTicketCache returns a Redis-backed cache. A nil client yields a cache that never hits.
func NewTicketCache(client *redis.Client, ttl time.Duration) TicketCache {
	if client == nil {
		return noopTicketCache{}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &redisTicketCache{client: client, ttl: ttl}
}

func (c *redisTicketCache) Get(ctx context.Context, id string) (*domain.Ticket, bool, error) {
	data, err := c.client.Get(ctx, ticketKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read cached ticket: %w", err)
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(data, &ticket); err != nil {
		// corrupt entry; drop it and report a miss
		_ = c.client.Del(ctx, ticketKeyPrefix+id).Err()
		return nil, false, nil
	}
	return &ticket, true, nil
}

func (c *redisTicketCache) Set(ctx context.Context, ticket *domain.Ticket) error {
	data, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("marshal ticket: %w", err)
	}
	return c.client.Set(ctx, ticketKeyPrefix+ticket.ID, data, c.ttl).Err()
}

func (c *redisTicketCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, ticketKeyPrefix+id).Err()
}

type noopTicketCache struct{}

func (noopTicketCache) Get(context.Context, string) (*domain.Ticket, bool, error) {
	return nil, false, nil
}
func (noopTicketCache) Set(context.Context, *domain.Ticket) error { return nil }
func (noopTicketCache) Invalidate(context.Context, string) error { return nil }
