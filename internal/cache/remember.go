package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Remember returns the value stored under key, or computes it with fn and
// stores it for ttl. Errors from fn are returned without caching anything.
// Entries that no longer decode are treated as misses.
func Remember[T any](
	ctx context.Context,
	c Cache,
	key string,
	ttl time.Duration,
	fn func(context.Context) (T, error),
) (T, error) {
	var value T

	data, err := c.Get(ctx, key)

	switch {
	case err == nil:
		if jsonErr := json.Unmarshal(data, &value); jsonErr == nil {
			return value, nil
		}
	case !errors.Is(err, ErrMiss):
		return value, fmt.Errorf("failed to read cache key %s: %w", key, err)
	}

	value, err = fn(ctx)
	if err != nil {
		return value, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return value, fmt.Errorf("failed to encode cache key %s: %w", key, err)
	}

	if err := c.Set(ctx, key, encoded, ttl); err != nil {
		return value, fmt.Errorf("failed to write cache key %s: %w", key, err)
	}

	return value, nil
}
