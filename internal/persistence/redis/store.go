// Package redis persists records as plain Redis string keys under a
// namespace prefix.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/ticketdesk/internal/persistence"
)

var _ persistence.KeyValueStore = (*Store)(nil)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	// Prefix namespaces every key, e.g. "ticketdesk:".
	Prefix string
}

// Store implements persistence.KeyValueStore with a go-redis client.
type Store struct {
	client *goredis.Client
	prefix string
}

// Open dials Redis and verifies the connection with a PING.
func Open(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", opts.Addr, err)
	}

	return New(client, opts.Prefix), nil
}

// New wraps an existing client.
func New(client *goredis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(key string) string {
	return s.prefix + key
}

// Get returns the record stored under key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return "", persistence.ErrNotFound
		}
		return "", mapError("get", key, err)
	}
	return value, nil
}

// Set stores value under key without expiry.
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return mapError("set", key, err)
	}
	return nil
}

// Remove deletes the record stored under key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.key(key)).Err(); err != nil {
		return mapError("remove", key, err)
	}
	return nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

func mapError(op, key string, err error) error {
	if errors.Is(err, goredis.ErrClosed) {
		return fmt.Errorf("redis: %s %s: %w", op, key, persistence.ErrClosed)
	}
	return fmt.Errorf("redis: %s %s: %w", op, key, err)
}
