package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemember(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)

	calls := 0
	fn := func(context.Context) ([]string, error) {
		calls++
		return []string{"id", "email"}, nil
	}

	first, err := Remember(ctx, c, "gem_users_columns", time.Hour, fn)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "email"}, first)

	second, err := Remember(ctx, c, "gem_users_columns", time.Hour, fn)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestRemember_ErrorNotCached(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)
	boom := errors.New("connection refused")

	_, err := Remember(ctx, c, "gem_all_tables", time.Hour, func(context.Context) ([]string, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = c.Get(ctx, "gem_all_tables")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRemember_UndecodableEntryRecomputed(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(time.Hour)
	require.NoError(t, c.Set(ctx, "gem_users_table_exists", []byte("not json"), time.Hour))

	got, err := Remember(ctx, c, "gem_users_table_exists", time.Hour, func(context.Context) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
	assert.True(t, got)

	raw, err := c.Get(ctx, "gem_users_table_exists")
	require.NoError(t, err)
	assert.Equal(t, "true", string(raw))
}

type failingCache struct {
	*MemoryCache
}

func (failingCache) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func TestRemember_StoreErrorPropagates(t *testing.T) {
	c := failingCache{NewMemoryCache(time.Hour)}

	_, err := Remember(context.Background(), c, "k", time.Hour, func(context.Context) (int, error) {
		t.Fatal("fn must not run when the store fails")
		return 0, nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk on fire")
}
