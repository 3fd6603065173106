// Package pdfcache keeps rendered entry PDFs in Redis so repeat downloads and
// syncs of an unchanged entry skip the layout engine.
package pdfcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultTTL = 24 * time.Hour

// RedisStore implements export.Cache using Redis
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore creates a new Redis-backed PDF cache
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a cache from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "pdf:",
		ttl:    ttl,
	}
}

func (s *RedisStore) key(contentKey string) string {
	return s.prefix + contentKey
}

// Get returns the cached PDF for a content key. The bool is false on a miss.
func (s *RedisStore) Get(ctx context.Context, contentKey string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, s.key(contentKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cached pdf: %w", err)
	}
	return data, true, nil
}

// Set stores a rendered PDF under its content key.
func (s *RedisStore) Set(ctx context.Context, contentKey string, data []byte) error {
	if err := s.client.Set(ctx, s.key(contentKey), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cache pdf: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
