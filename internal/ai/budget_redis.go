package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const budgetKeyPrefix = "tutor:budget:"

// RedisBudget tracks token usage in Redis so that several server instances
// share one budget per session. A limit of 0 means unlimited.
type RedisBudget struct {
	client *redis.Client
	limit  int64
	ttl    time.Duration
}

// NewRedisBudget creates a Redis-backed tracker. Usage counters expire ttl
// after the last recorded call; ttl 0 keeps them forever.
func NewRedisBudget(client *redis.Client, limit int64, ttl time.Duration) *RedisBudget {
	return &RedisBudget{client: client, limit: limit, ttl: ttl}
}

func (b *RedisBudget) Check(ctx context.Context, sessionID string) (bool, error) {
	if b.limit <= 0 {
		return true, nil
	}
	used, err := b.used(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return used < b.limit, nil
}

func (b *RedisBudget) Record(ctx context.Context, sessionID string, tokens int) error {
	if tokens < 0 {
		return fmt.Errorf("tokens must be non-negative, got %d", tokens)
	}

	key := budgetKeyPrefix + sessionID
	pipe := b.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(tokens))
	if b.ttl > 0 {
		pipe.Expire(ctx, key, b.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording token usage: %w", err)
	}
	return nil
}

func (b *RedisBudget) Usage(ctx context.Context, sessionID string) (int64, int64, error) {
	used, err := b.used(ctx, sessionID)
	if err != nil {
		return 0, 0, err
	}
	return used, b.limit, nil
}

func (b *RedisBudget) used(ctx context.Context, sessionID string) (int64, error) {
	n, err := b.client.Get(ctx, budgetKeyPrefix+sessionID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading token usage: %w", err)
	}
	return n, nil
}
