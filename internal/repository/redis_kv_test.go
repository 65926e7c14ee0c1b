package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapRedis serves the handful of commands RedisKVStore issues from a map.
type mapRedis struct {
	redis.Cmdable
	data map[string]string
	down bool
}

func newMapRedis() *mapRedis { return &mapRedis{data: map[string]string{}} }

var errConnRefused = errors.New("dial tcp: connection refused")

func (m *mapRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if m.down {
		return redis.NewStringResult("", errConnRefused)
	}
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mapRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if m.down {
		return redis.NewStatusResult("", errConnRefused)
	}
	m.data[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (m *mapRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := m.data[k]; ok {
			delete(m.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (m *mapRedis) Ping(_ context.Context) *redis.StatusCmd {
	if m.down {
		return redis.NewStatusResult("", errConnRefused)
	}
	return redis.NewStatusResult("PONG", nil)
}

func TestRedisKVStore_RoundTripWithPrefix(t *testing.T) {
	backend := newMapRedis()
	store := NewRedisKVStore(backend, "coursetrack:")
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "completedLessons_c1", `["a","b"]`))
	assert.Equal(t, `["a","b"]`, backend.data["coursetrack:completedLessons_c1"])

	got, err := store.Get(ctx, "completedLessons_c1")
	require.NoError(t, err)
	assert.Equal(t, `["a","b"]`, got)

	require.NoError(t, store.Delete(ctx, "completedLessons_c1"))
	_, err = store.Get(ctx, "completedLessons_c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisKVStore_BackendDown(t *testing.T) {
	backend := newMapRedis()
	backend.down = true
	store := NewRedisKVStore(backend, "")
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Error(t, store.Set(ctx, "k", "v"))
	assert.Error(t, store.Ping(ctx))
}
