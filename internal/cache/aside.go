package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Aside implements the cache-aside pattern. On a hit the cached JSON is
// unmarshaled into dest and load is skipped. On a miss load runs, and its
// result is cached best-effort. Cache failures never fail the read path.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, load func() error) error {
	if client != nil {
		if raw, err := client.Get(ctx, key).Bytes(); err == nil {
			if err := json.Unmarshal(raw, dest); err == nil {
				return nil
			}
			// Corrupt entry; drop it and fall through to the loader.
			client.Del(ctx, key)
		}
	}

	if err := load(); err != nil {
		return err
	}

	if client != nil {
		if raw, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, raw, ttl)
		}
	}
	return nil
}
