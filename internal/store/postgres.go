package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "sudooom.im.social/pkg/errors"
)

// PostgresStore PostgreSQL 键值存储实现（可选后端）
// 使用单张 KV 表，和 Redis 后端对引擎完全等价
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore 创建 PostgreSQL 存储并初始化 KV 表
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS social_kv (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		)`)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable.Wrap(err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Get 读取 key
func (s *PostgresStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT v FROM social_kv WHERE k = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, apperrors.ErrStoreUnavailable.Wrap(err)
	}
	return value, true, nil
}

// Set 写入 key（upsert）
func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO social_kv (k, v) VALUES ($1, $2)
		ON CONFLICT (k) DO UPDATE SET v = EXCLUDED.v`, key, value)
	if err != nil {
		return apperrors.ErrStoreUnavailable.Wrap(err)
	}
	return nil
}
