//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/Gunvolt24/yote/internal/domain"
	"github.com/Gunvolt24/yote/internal/testutil"
)

// startRedis — настоящий Redis в контейнере и клиент к нему.
func startRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	env, stop, err := testutil.StartRedisTC(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stop(context.Background()) })

	client := redis.NewClient(&redis.Options{Addr: env.Addr})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// Два экземпляра сервиса видят одни и те же записи.
func TestProductCache_SharedBetweenInstances_TC(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	prefix := "itc:" + testutil.UniqSuffix() + ":"

	a := NewProductCache(client, prefix, time.Minute, noopLogger{})
	b := NewProductCache(client, prefix, time.Minute, noopLogger{})

	p := testutil.MakeProduct(testutil.WithCreator("owner"))
	require.NoError(t, a.Set(ctx, &p))

	got, ok := b.Get(ctx, p.ID)
	require.True(t, ok)
	require.Equal(t, p.Title, got.Title)
	require.Equal(t, "owner", got.CreatedBy)

	ttl, err := client.TTL(ctx, prefix+p.ID).Result()
	require.NoError(t, err)
	require.Greater(t, ttl, time.Duration(0))
	require.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, b.Delete(ctx, p.ID))
	_, ok = a.Get(ctx, p.ID)
	require.False(t, ok)
}

func TestProductCache_WarmUpPipeline_TC(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	prefix := "itc:" + testutil.UniqSuffix() + ":"
	c := NewProductCache(client, prefix, time.Minute, noopLogger{})

	p1 := testutil.MakeProduct()
	p2 := testutil.MakeProduct()
	require.NoError(t, c.WarmUp(ctx, []*domain.Product{&p1, nil, &p2}))

	keys, err := client.Keys(ctx, prefix+"*").Result()
	require.NoError(t, err)
	require.ElementsMatch(t, []string{prefix + p1.ID, prefix + p2.ID}, keys)
}
