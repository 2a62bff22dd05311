// Package redisstore is a Redis-backed inbox slot store.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

const logPrefix = "redisstore:store"

// DefaultKeyPrefix namespaces slot keys.
const DefaultKeyPrefix = "coretime:inbox:"

// Store keeps each slot in one Redis key. Swaps are single commands (SET ... GET and
// GETDEL), so concurrent allocators sharing the keys observe each value once.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

// New creates a Store on an existing client. An empty prefix uses DefaultKeyPrefix.
func New(client *redis.Client, keyPrefix string) *Store {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &Store{client: client, keyPrefix: keyPrefix}
}

// Connect parses a redis:// URL, pings the server and returns a Store.
func Connect(ctx context.Context, url, keyPrefix string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s - invalid redis url: %w", logPrefix, err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s - failed to ping redis at %s: %w", logPrefix, opts.Addr, err)
	}
	slog.Info(fmt.Sprintf("%s - Connected to Redis at %s", logPrefix, opts.Addr))
	return New(client, keyPrefix), nil
}

// SwapSlot implements inbox.SlotStore.
func (s *Store) SwapSlot(ctx context.Context, slot string, payload []byte) ([]byte, error) {
	key := s.keyPrefix + slot
	if payload == nil {
		prev, err := s.client.GetDel(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%s - GETDEL %s: %w", logPrefix, key, err)
		}
		return prev, nil
	}

	prev, err := s.client.SetArgs(ctx, key, payload, redis.SetArgs{Get: true}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - SET %s: %w", logPrefix, key, err)
	}
	return []byte(prev), nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Clear removes the given slots.
func (s *Store) Clear(ctx context.Context, slots ...string) error {
	keys := make([]string, 0, len(slots))
	for _, slot := range slots {
		keys = append(keys, s.keyPrefix+slot)
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}
