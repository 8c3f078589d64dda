package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedPrefix = "address:processed:"

// ProcessedEvents implements kafka.IdempotencyStore using Redis keys that
// expire after ttl.
type ProcessedEvents struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProcessedEvents creates a Redis-backed idempotency store.
func NewProcessedEvents(client *redis.Client, ttl time.Duration) *ProcessedEvents {
	return &ProcessedEvents{client: client, ttl: ttl}
}

// Contains reports whether eventID has been recorded.
func (p *ProcessedEvents) Contains(ctx context.Context, eventID string) (bool, error) {
	n, err := p.client.Exists(ctx, processedPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists processed event: %w", err)
	}
	return n > 0, nil
}

// Add records eventID.
func (p *ProcessedEvents) Add(ctx context.Context, eventID string) error {
	if err := p.client.Set(ctx, processedPrefix+eventID, 1, p.ttl).Err(); err != nil {
		return fmt.Errorf("redis set processed event: %w", err)
	}
	return nil
}
