package kvstore

import (
	"context"
	"errors"

	"github.com/go-redis/redis/v8"
)

// RedisStore keeps values as redis strings. Reads always return the raw
// encoded string.
type RedisStore struct {
	handle *RedisHandle
}

func NewRedisStore(handle *RedisHandle) *RedisStore {
	return &RedisStore{handle: handle}
}

func (s *RedisStore) Get(ctx context.Context, key string) (any, error) {
	rdb, err := s.handle.Client()
	if err != nil {
		return nil, err
	}

	val, err := rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value any) error {
	rdb, err := s.handle.Client()
	if err != nil {
		return err
	}
	// no expiration, notes live until deleted
	return rdb.Set(ctx, key, value, 0).Err()
}

func (s *RedisStore) Del(ctx context.Context, key string) (int64, error) {
	rdb, err := s.handle.Client()
	if err != nil {
		return 0, err
	}
	return rdb.Del(ctx, key).Result()
}

func (s *RedisStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	rdb, err := s.handle.Client()
	if err != nil {
		return nil, err
	}
	return rdb.Keys(ctx, pattern).Result()
}

func (s *RedisStore) MGet(ctx context.Context, keys ...string) ([]any, error) {
	if len(keys) == 0 {
		return []any{}, nil
	}

	rdb, err := s.handle.Client()
	if err != nil {
		return nil, err
	}
	return rdb.MGet(ctx, keys...).Result()
}
