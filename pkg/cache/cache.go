// Package cache stores computed optical-depth grids, line profiles and
// luminosities keyed by a hash of the inputs that produced them.
//
// Three backends implement [Cache]: [FileCache] for the CLI, [RedisCache]
// for the API server and [NullCache] when caching is off. A [Keyer] turns a
// wind-configuration hash plus stage options into a key.
package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Cache stores serialised results under string keys. Implementations must be
// safe for concurrent use.
//
// A miss is reported as (nil, false, nil); errors are reserved for backend
// failures. Callers treat a failing cache as a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// GetJSON decodes the entry at key into v. It returns ErrCacheMiss when the
// key is absent. An entry that no longer decodes is deleted and reported as
// a miss.
func GetJSON(ctx context.Context, c Cache, key string, v any) error {
	data, ok, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCacheMiss
	}
	if err := json.Unmarshal(data, v); err != nil {
		_ = c.Delete(ctx, key)
		return ErrCacheMiss
	}
	return nil
}

// SetJSON encodes v and stores it at key. It returns the size of the
// stored entry.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) (int, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return 0, err
	}
	if err := c.Set(ctx, key, data, ttl); err != nil {
		return 0, err
	}
	return len(data), nil
}
