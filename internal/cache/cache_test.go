package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func clients(t *testing.T) map[string]Client {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return map[string]Client{
		"memory": NewMemory("test:"),
		"redis":  NewRedisFromClient(rdb, "test:"),
	}
}

func TestClientContract(t *testing.T) {
	ctx := context.Background()
	for name, c := range clients(t) {
		t.Run(name, func(t *testing.T) {
			_, err := c.Get(ctx, "missing")
			require.True(t, IsNotFound(err))

			require.NoError(t, c.Set(ctx, "k", "v", 0))
			v, err := c.Get(ctx, "k")
			require.NoError(t, err)
			require.Equal(t, "v", v)

			ok, err := c.Exists(ctx, "k")
			require.NoError(t, err)
			require.True(t, ok)

			require.NoError(t, c.Delete(ctx, "k"))
			ok, err = c.Exists(ctx, "k")
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, c.Ping(ctx))
			st, err := c.Stats(ctx)
			require.NoError(t, err)
			require.Equal(t, name, st.Driver)
		})
	}
}

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("")
	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisPrefixAndTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	c := NewRedisFromClient(rdb, "cv:")

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	require.True(t, mr.Exists("cv:k"))
	mr.FastForward(2 * time.Minute)
	_, err := c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestNewRedisPingFails(t *testing.T) {
	_, err := New(context.Background(), Config{Driver: "redis", Addr: "127.0.0.1:1"})
	require.Error(t, err)
}
