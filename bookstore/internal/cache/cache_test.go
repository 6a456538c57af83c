package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Astemirdum/bookstore-service/bookstore/internal/cache"
	"github.com/Astemirdum/bookstore-service/bookstore/internal/model"
)

func newCache(t *testing.T) (*cache.RedisPopularCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewRedisPopularCache(client, time.Minute), mr
}

func TestRedisPopularCache_SetGet(t *testing.T) {
	t.Parallel()
	c, _ := newCache(t)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, 10)
	require.NoError(t, err)
	require.False(t, ok)

	books := []model.Book{
		{ID: "b1", Title: "Dune", Author: "Frank Herbert", Views: 42, Rating: 4.5, TotalRatings: 2},
		{ID: "b2", Title: "Solaris", Author: "Stanislaw Lem", Views: 7},
	}
	require.NoError(t, c.Set(ctx, 10, books))

	got, ok, err := c.Get(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, books, got)

	_, ok, err = c.Get(ctx, 5)
	require.NoError(t, err)
	require.False(t, ok, "limits are cached independently")
}

func TestRedisPopularCache_Invalidate(t *testing.T) {
	t.Parallel()
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 10, []model.Book{{ID: "b1"}}))
	require.NoError(t, c.Set(ctx, 3, []model.Book{{ID: "b1"}}))
	require.NoError(t, c.Invalidate(ctx))

	for _, limit := range []int{10, 3} {
		_, ok, err := c.Get(ctx, limit)
		require.NoError(t, err)
		require.False(t, ok)
	}
}

func TestRedisPopularCache_Expires(t *testing.T) {
	t.Parallel()
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 10, []model.Book{{ID: "b1"}}))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, 10)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestRedisPopularCache_TTLPerLimit(t *testing.T) {
	t.Parallel()
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 10, []model.Book{{ID: "b1"}}))
	mr.FastForward(40 * time.Second)
	require.NoError(t, c.Set(ctx, 5, []model.Book{{ID: "b1"}}))
	mr.FastForward(30 * time.Second)

	_, ok, err := c.Get(ctx, 10)
	require.NoError(t, err)
	require.False(t, ok, "a later write for another limit must not extend this one")

	_, ok, err = c.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestNop(t *testing.T) {
	t.Parallel()
	var c cache.PopularCache = cache.Nop{}
	require.NoError(t, c.Set(context.Background(), 10, []model.Book{{ID: "b1"}}))
	_, ok, err := c.Get(context.Background(), 10)
	require.NoError(t, err)
	require.False(t, ok)
}
