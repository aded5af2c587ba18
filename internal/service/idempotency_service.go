package service

import (
	"context"
	"time"

	"crowdgov/internal/domain"
	"crowdgov/pkg/redis"
)

// RedisIdempotency records used Idempotency-Key values in Redis with SETNX
type RedisIdempotency struct {
	redis *redis.Client
	ttl   time.Duration
}

var _ IdempotencyService = (*RedisIdempotency)(nil)

// NewRedisIdempotency creates the service. A nil client accepts every key.
func NewRedisIdempotency(client *redis.Client, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = redis.TTLIdempotency
	}
	return &RedisIdempotency{redis: client, ttl: ttl}
}

// TryLock attempts to acquire an idempotency lock for the given key.
// Returns true if acquired (first time), false if the key already exists (duplicate within TTL).
func (s *RedisIdempotency) TryLock(ctx context.Context, principal domain.Principal, key string) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	idemKey := s.redis.KeyBuilder.KeyIdempotency(principal.String(), key)
	return s.redis.SetNX(ctx, idemKey, "1", s.ttl)
}

// Release drops the lock so the same key can be retried
func (s *RedisIdempotency) Release(ctx context.Context, principal domain.Principal, key string) error {
	if s.redis == nil {
		return nil
	}
	return s.redis.Delete(ctx, s.redis.KeyBuilder.KeyIdempotency(principal.String(), key))
}
