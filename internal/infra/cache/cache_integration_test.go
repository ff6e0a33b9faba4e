//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := New(fmt.Sprintf("%s:%s", host, port.Port()))
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, Ping(ctx, rdb))
	return rdb
}

func TestRedis(t *testing.T) {
	rdb := setupRedis(t)
	ctx := context.Background()

	t.Run("json cache", func(t *testing.T) {
		c := NewResellCache(rdb)
		var got map[string]string
		ok, err := c.Get(ctx, "abc", &got)
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, c.Set(ctx, "abc", map[string]string{"slug": "abc"}))
		ok, err = c.Get(ctx, "abc", &got)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc", got["slug"])

		require.NoError(t, c.Delete(ctx, "abc"))
		ok, _ = c.Get(ctx, "abc", &got)
		assert.False(t, ok)
	})

	t.Run("login limiter locks after max failures", func(t *testing.T) {
		l := NewLoginLimiter(rdb)
		for i := 0; i < MaxLoginFailures-1; i++ {
			require.NoError(t, l.Fail(ctx, "A@x.dz"))
		}
		locked, _, err := l.Locked(ctx, "a@x.dz")
		require.NoError(t, err)
		assert.False(t, locked)

		require.NoError(t, l.Fail(ctx, "a@x.dz"))
		locked, ttl, err := l.Locked(ctx, "a@x.dz")
		require.NoError(t, err)
		assert.True(t, locked)
		assert.Greater(t, ttl, time.Duration(0))

		require.NoError(t, l.Reset(ctx, "a@x.dz"))
		locked, _, _ = l.Locked(ctx, "a@x.dz")
		assert.False(t, locked)
	})

	t.Run("chat hub", func(t *testing.T) {
		h := NewChatHub(rdb)
		sctx, cancel := context.WithCancel(ctx)
		defer cancel()

		ch, stop, err := h.Subscribe(sctx, 7)
		require.NoError(t, err)
		defer stop()

		require.NoError(t, h.Publish(ctx, 7, []byte(`{"body":"salam"}`)))
		select {
		case m := <-ch:
			assert.JSONEq(t, `{"body":"salam"}`, string(m))
		case <-time.After(5 * time.Second):
			t.Fatal("message not delivered")
		}
	})

	t.Run("deduper", func(t *testing.T) {
		d := NewDeduper(rdb, "notifier")
		first, err := d.FirstSeen(ctx, "ev-1")
		require.NoError(t, err)
		assert.True(t, first)
		first, _ = d.FirstSeen(ctx, "ev-1")
		assert.False(t, first)
		require.NoError(t, d.Forget(ctx, "ev-1"))
		first, _ = d.FirstSeen(ctx, "ev-1")
		assert.True(t, first)
	})
}
