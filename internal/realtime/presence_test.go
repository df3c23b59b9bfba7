package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercisePresence(t *testing.T, p Presence) {
	ctx := context.Background()

	first, err := p.Add(ctx, 1, "Ada")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = p.Add(ctx, 1, "Ada")
	require.NoError(t, err)
	assert.False(t, first)

	_, err = p.Add(ctx, 2, "Bob")
	require.NoError(t, err)

	users, err := p.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []OnlineUser{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Bob"}}, users)

	last, err := p.Remove(ctx, 1)
	require.NoError(t, err)
	assert.False(t, last)

	online, err := p.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.True(t, online)

	last, err = p.Remove(ctx, 1)
	require.NoError(t, err)
	assert.True(t, last)

	online, err = p.IsOnline(ctx, 1)
	require.NoError(t, err)
	assert.False(t, online)
}

func TestMemoryPresence(t *testing.T) {
	exercisePresence(t, NewMemoryPresence())

	last, err := NewMemoryPresence().Remove(context.Background(), 77)
	require.NoError(t, err)
	assert.False(t, last)
}

func newRedisPresence(t *testing.T) (*RedisPresence, *redis.Client) {
	t.Helper()
	srv := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisPresence(rdb, "teamhub:presence"), rdb
}

func TestRedisPresence(t *testing.T) {
	p, rdb := newRedisPresence(t)
	exercisePresence(t, p)

	names, err := rdb.HGetAll(context.Background(), "teamhub:presence:names").Result()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"2": "Bob"}, names)
}

func TestRedisPresence_RemoveUnknownUser(t *testing.T) {
	p, rdb := newRedisPresence(t)
	ctx := context.Background()

	last, err := p.Remove(ctx, 77)
	require.NoError(t, err)
	assert.False(t, last)

	exists, err := rdb.HExists(ctx, "teamhub:presence:conns", "77").Result()
	require.NoError(t, err)
	assert.False(t, exists)

	first, err := p.Add(ctx, 77, "Zed")
	require.NoError(t, err)
	assert.True(t, first)
}

// Two instances share one store. One keeps a socket open while the other
// churns connections for the same user.
func TestRedisPresence_InterleavedInstances(t *testing.T) {
	srv := miniredis.RunT(t)
	ctx := context.Background()

	clients := make([]*RedisPresence, 2)
	for i := range clients {
		rdb := redis.NewClient(&redis.Options{Addr: srv.Addr()})
		t.Cleanup(func() { _ = rdb.Close() })
		clients[i] = NewRedisPresence(rdb, "teamhub:presence")
	}

	_, err := clients[0].Add(ctx, 1, "Ada")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := clients[1].Add(ctx, 1, "Ada")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := clients[0].Add(ctx, 1, "Ada")
			assert.NoError(t, err)
			_, err = clients[0].Remove(ctx, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for i := 0; i < 20; i++ {
		last, err := clients[1].Remove(ctx, 1)
		require.NoError(t, err)
		assert.False(t, last)
	}

	for _, p := range clients {
		online, err := p.IsOnline(ctx, 1)
		require.NoError(t, err)
		assert.True(t, online)

		users, err := p.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []OnlineUser{{ID: 1, Name: "Ada"}}, users)
	}

	last, err := clients[0].Remove(ctx, 1)
	require.NoError(t, err)
	assert.True(t, last)
}
