// Package redis shares downloaded dataset bodies between dashboard replicas.
package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "school-dashboard:body:"

// BodyStore keeps dataset bodies in Redis keyed by a hash of their URL.
type BodyStore struct {
	rdb *redis.Client
}

// NewBodyStore connects to Redis and verifies the connection.
func NewBodyStore(ctx context.Context, addr, password string, db int) (*BodyStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return &BodyStore{rdb: rdb}, nil
}

// Get returns the stored body for url. A missing key is not an error.
func (s *BodyStore) Get(ctx context.Context, url string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key(url)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Set stores body for url. A zero ttl keeps the key until it is overwritten.
func (s *BodyStore) Set(ctx context.Context, url string, body []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key(url), body, ttl).Err()
}

// CheckReadiness pings Redis.
func (s *BodyStore) CheckReadiness(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the connection pool.
func (s *BodyStore) Close() error {
	return s.rdb.Close()
}

func key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return keyPrefix + hex.EncodeToString(sum[:])
}
