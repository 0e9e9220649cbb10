package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fran0220/stock-scanner/internal/config"
)

// ErrMiss 缓存未命中或已过期
var ErrMiss = errors.New("cache miss")

// Provider 缓存提供者，值以JSON序列化存储
type Provider interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// New 根据配置创建缓存提供者
func New(ctx context.Context, cfg config.CacheConfig) (Provider, error) {
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryProvider(), nil
	case "redis":
		return NewRedisProvider(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case "sqlite":
		return NewSQLiteProvider(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("不支持的缓存类型: %s", cfg.Driver)
	}
}
