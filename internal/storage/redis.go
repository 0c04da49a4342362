package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore tracks result freshness per keyword. A keyword scraped within
// the TTL is served from the product store instead of being re-scraped.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// MarkScraped records a completed run for a keyword with a TTL.
func (s *RedisStore) MarkScraped(ctx context.Context, query string, ttl time.Duration) error {
	return s.client.Set(ctx, freshnessKey(query), "1", ttl).Err()
}

// IsFresh reports whether a keyword was scraped within its TTL.
func (s *RedisStore) IsFresh(ctx context.Context, query string) (bool, error) {
	n, err := s.client.Exists(ctx, freshnessKey(query)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func freshnessKey(query string) string {
	return fmt.Sprintf("scraped:%s", query)
}
