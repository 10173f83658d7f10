package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/kyleking/gem-support/internal/cache"
	"github.com/kyleking/gem-support/internal/config"
	"github.com/kyleking/gem-support/internal/errors"
)

func CacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the schema lookup cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache size and hit rates",
				Action: action(runCacheStats),
			},
			{
				Name:   "cleanup",
				Usage:  "Remove expired entries",
				Action: action(runCacheCleanup),
			},
			{
				Name:   "clear",
				Usage:  "Remove every entry",
				Action: action(runCacheClear),
			},
		},
	}
}

// newCacheStore builds the store named by cfg.Store
func newCacheStore(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Store {
	case "memory":
		return cache.NewMemoryCache(0), nil
	case "file", "":
		cleanupFreq, err := time.ParseDuration(cfg.CleanupFreq)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrTypeConfig, "invalid cache cleanup frequency %q", cfg.CleanupFreq)
		}

		store, err := cache.NewFileCache(cfg.Directory, cfg.MaxSizeMB, 0, cleanupFreq)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrTypeCache, "failed to open cache").
				WithSuggestion("Check that --cache-dir is writable")
		}

		return store, nil
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unknown cache store %q", cfg.Store)
	}
}

// withCache opens the configured store for the duration of fn
func withCache(rt *runtime, fn func(cache.Cache) error) (err error) {
	store, err := newCacheStore(rt.cfg.Cache)
	if err != nil {
		return err
	}

	defer func() {
		if closeErr := store.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, errors.ErrTypeCache, "failed to close cache")
		}
	}()

	return fn(store)
}

func runCacheStats(ctx context.Context, _ *cli.Command, rt *runtime) error {
	return withCache(rt, func(store cache.Cache) error {
		stats, err := store.GetStats(ctx)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeCache, "failed to read cache stats")
		}

		return rt.print(rt.formatter.FormatStats(stats))
	})
}

func runCacheCleanup(ctx context.Context, _ *cli.Command, rt *runtime) error {
	return withCache(rt, func(store cache.Cache) error {
		if err := store.Cleanup(ctx); err != nil {
			return errors.Wrap(err, errors.ErrTypeCache, "failed to clean up cache")
		}

		_, err := fmt.Fprintln(rt.out, "expired entries removed")

		return err
	})
}

func runCacheClear(ctx context.Context, _ *cli.Command, rt *runtime) error {
	return withCache(rt, func(store cache.Cache) error {
		if err := store.Clear(ctx); err != nil {
			return errors.Wrap(err, errors.ErrTypeCache, "failed to clear cache")
		}

		rt.logger.Infof("cleared %s schema cache", rt.cfg.Cache.Store)

		_, err := fmt.Fprintln(rt.out, "cache cleared")

		return err
	})
}
