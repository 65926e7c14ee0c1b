package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisKVStore implements KVStore on a Redis server. Keys are stored under an
// optional prefix so several tools can share one database.
type RedisKVStore struct {
	rdb    redis.Cmdable
	prefix string
}

// NewRedisKVStore wraps an existing client.
func NewRedisKVStore(rdb redis.Cmdable, prefix string) *RedisKVStore {
	return &RedisKVStore{rdb: rdb, prefix: prefix}
}

// DialRedis connects and pings a Redis server.
func DialRedis(ctx context.Context, addr, password string, database int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       database,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", fmt.Errorf("kv entry %q: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("reading redis key: %w", err)
	}
	return v, nil
}

func (s *RedisKVStore) Set(ctx context.Context, key, value string) error {
	if err := s.rdb.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("writing redis key: %w", err)
	}
	return nil
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("deleting redis key: %w", err)
	}
	return nil
}

func (s *RedisKVStore) Ping(ctx context.Context) error {
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return nil
}
