package cache

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryProvider 进程内缓存
type MemoryProvider struct {
	items *gocache.Cache
}

// NewMemoryProvider 创建进程内缓存，每分钟清理一次过期条目
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{items: gocache.New(gocache.NoExpiration, time.Minute)}
}

func (p *MemoryProvider) Get(_ context.Context, key string, dest any) error {
	v, ok := p.items.Get(key)
	if !ok {
		return ErrMiss
	}
	data, ok := v.([]byte)
	if !ok || len(data) == 0 {
		return ErrMiss
	}
	return json.Unmarshal(data, dest)
}

// Set expiration<=0 表示永不过期
func (p *MemoryProvider) Set(_ context.Context, key string, value any, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = gocache.NoExpiration
	}
	p.items.Set(key, data, expiration)
	return nil
}

func (p *MemoryProvider) Delete(_ context.Context, key string) error {
	p.items.Delete(key)
	return nil
}

func (p *MemoryProvider) Close() error {
	p.items.Flush()
	return nil
}
