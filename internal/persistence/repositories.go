package persistence

import "context"

// KeyValueStore persists opaque string records under string keys. Get
// reports absent keys with ErrNotFound; Remove of an absent key succeeds.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
