package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisProvider 基于Redis的缓存
type RedisProvider struct {
	rdb *redis.Client
}

// NewRedisProvider 初始化Redis连接并检测可用性
func NewRedisProvider(ctx context.Context, addr, password string, db int) (*RedisProvider, error) {
	if addr == "" {
		addr = "localhost:6379"
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	return &RedisProvider{rdb: rdb}, nil
}

// NewRedisProviderFromClient 使用已有的客户端
func NewRedisProviderFromClient(rdb *redis.Client) *RedisProvider {
	return &RedisProvider{rdb: rdb}
}

func (p *RedisProvider) Get(ctx context.Context, key string, dest any) error {
	data, err := p.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (p *RedisProvider) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration < 0 {
		expiration = 0
	}
	return p.rdb.Set(ctx, key, data, expiration).Err()
}

func (p *RedisProvider) Delete(ctx context.Context, key string) error {
	return p.rdb.Del(ctx, key).Err()
}

func (p *RedisProvider) Close() error {
	return p.rdb.Close()
}
