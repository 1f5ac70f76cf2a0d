package middleware

import (
	"context"
	"encoding/json"
	"shareit/pkg/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "shareit:idempotency:"

// RedisIdempotencyStore shares replay state between server replicas.
// Redis failures degrade to "not cached" rather than failing the request.
type RedisIdempotencyStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisIdempotencyStore(client redis.UniversalClient, ttl time.Duration, log *logger.Logger) *RedisIdempotencyStore {
	return &RedisIdempotencyStore{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func (s *RedisIdempotencyStore) Get(ctx context.Context, key string) (*CachedResponse, bool) {
	raw, err := s.client.Get(ctx, idempotencyKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.log.Warn("idempotency lookup failed", "key", key, "error", err)
		return nil, false
	}

	var cached CachedResponse
	if err := json.Unmarshal(raw, &cached); err != nil {
		s.log.Warn("idempotency entry is corrupt", "key", key, "error", err)
		return nil, false
	}
	return &cached, true
}

func (s *RedisIdempotencyStore) Set(ctx context.Context, key string, response *CachedResponse) {
	response.CreatedAt = time.Now()
	raw, err := json.Marshal(response)
	if err != nil {
		s.log.Warn("idempotency entry not encodable", "key", key, "error", err)
		return
	}

	if err := s.client.Set(ctx, idempotencyKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		s.log.Warn("idempotency store failed", "key", key, "error", err)
	}
}

// Stop is a no-op; the redis client is owned by pkg/client.
func (s *RedisIdempotencyStore) Stop() {}
