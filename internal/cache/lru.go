package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// item 包装缓存数据和过期时间
type item struct {
	data      []byte
	expiresAt time.Time
}

// LRU 进程内缓存，容量满时淘汰最久未用的键
type LRU struct {
	cache *lru.Cache[string, item]
	now   func() time.Time
}

func NewLRU(size int) (*LRU, error) {
	l, err := lru.New[string, item](size)
	if err != nil {
		return nil, err
	}
	return &LRU{cache: l, now: time.Now}, nil
}

func (c *LRU) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, ok := c.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	if c.now().After(val.expiresAt) {
		c.cache.Remove(key)
		return nil, false, nil
	}
	return val.data, true, nil
}

func (c *LRU) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.cache.Add(key, item{data: value, expiresAt: c.now().Add(ttl)})
	return nil
}

func (c *LRU) Delete(_ context.Context, key string) error {
	c.cache.Remove(key)
	return nil
}
