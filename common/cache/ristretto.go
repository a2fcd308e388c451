package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// GeneralCache 通用本地缓存，每个条目成本记为 1，maxEntries 即容量上限
type GeneralCache struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

// NewGeneralCache 创建通用缓存
// maxEntries: 最多保留的条目数
// ttl: 默认过期时间，0 表示不过期
func NewGeneralCache(maxEntries int64, ttl time.Duration) (*GeneralCache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("缓存容量必须大于 0")
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxEntries * 10, // 官方建议计数器为容量的 10 倍
		MaxCost:     maxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 ristretto 缓存失败: %w", err)
	}

	return &GeneralCache{
		cache: cache,
		ttl:   ttl,
	}, nil
}

// Set 设置缓存，使用默认 TTL；写入是异步的，Wait 之后才保证可读
func (c *GeneralCache) Set(key string, value interface{}) bool {
	return c.cache.SetWithTTL(key, value, 1, c.ttl)
}

// Get 获取缓存
func (c *GeneralCache) Get(key string) (interface{}, bool) {
	return c.cache.Get(key)
}

// Wait 等待缓冲区写入完成
func (c *GeneralCache) Wait() {
	c.cache.Wait()
}

// Close 关闭缓存
func (c *GeneralCache) Close() {
	c.cache.Close()
}
