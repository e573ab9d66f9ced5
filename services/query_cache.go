package services

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// QueryCache 查询结果缓存 (用于列表类只读接口, 不参与实时推送)
type QueryCache struct {
	cache map[string]*CacheEntry
	mu    sync.RWMutex
	ttl   time.Duration
	group singleflight.Group
	now   func() time.Time
}

// CacheEntry 缓存条目
type CacheEntry struct {
	Data      interface{}
	ExpiresAt time.Time
}

// NewQueryCache 创建查询缓存
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{
		cache: make(map[string]*CacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get 获取缓存
func (c *QueryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return nil, false
	}

	// 检查是否过期
	if c.now().After(entry.ExpiresAt) {
		return nil, false
	}

	return entry.Data, true
}

// Set 设置缓存, 顺便清理过期条目
func (c *QueryCache) Set(key string, data interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.cache {
		if now.After(entry.ExpiresAt) {
			delete(c.cache, k)
		}
	}

	c.cache[key] = &CacheEntry{
		Data:      data,
		ExpiresAt: now.Add(c.ttl),
	}
}

// GetOrLoad 命中缓存直接返回, 否则加载; 并发的相同 key 只加载一次
func (c *QueryCache) GetOrLoad(key string, load func() (interface{}, error)) (interface{}, error) {
	if data, ok := c.Get(key); ok {
		return data, nil
	}

	data, err, _ := c.group.Do(key, func() (interface{}, error) {
		data, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, data)
		return data, nil
	})
	return data, err
}

// Delete 删除缓存
func (c *QueryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
}

// Size 获取缓存大小
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.cache)
}
