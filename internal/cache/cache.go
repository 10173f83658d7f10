// Package cache stores schema lookups between runs
package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrMiss is returned by Get when a key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache defines the interface for cache stores
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Size(ctx context.Context) (int64, error)
	Cleanup(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// Entry represents a cache entry with metadata
type Entry struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Size      int64     `json:"size"`
}

// Expired reports whether the entry is past its expiry at now
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries" yaml:"total_entries"`
	TotalSize    int64   `json:"total_size"    yaml:"total_size"`
	HitRate      float64 `json:"hit_rate"      yaml:"hit_rate"`
	MissRate     float64 `json:"miss_rate"     yaml:"miss_rate"`
	Hits         int64   `json:"hits"          yaml:"hits"`
	Misses       int64   `json:"misses"        yaml:"misses"`
}

// counters tracks hits and misses for stores that share readers
type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) hit()  { c.hits.Add(1) }
func (c *counters) miss() { c.misses.Add(1) }

func (c *counters) reset() {
	c.hits.Store(0)
	c.misses.Store(0)
}

// snapshot fills in counters and rates
func (c *counters) snapshot(entries, size int64) *Stats {
	stats := &Stats{
		TotalEntries: entries,
		TotalSize:    size,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
	}

	total := stats.Hits + stats.Misses
	if total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
		stats.MissRate = float64(stats.Misses) / float64(total)
	}

	return stats
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
