package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	apperrors "sudooom.im.social/pkg/errors"
)

// RedisStore Redis 键值存储实现（默认后端）
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Get 读取 key
func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil // key 不存在，不是错误
	}
	if err != nil {
		return "", false, apperrors.ErrStoreUnavailable.Wrap(err)
	}
	return value, true, nil
}

// Set 写入 key
func (s *RedisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return apperrors.ErrStoreUnavailable.Wrap(err)
	}
	return nil
}
