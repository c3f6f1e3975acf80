package services

import (
	"context"
	"sync"
	"time"
)

// TipEntry 缓存的 AI 提示。BasisVersion 为计算时的面经总数
type TipEntry struct {
	Value        string    `json:"tip"`
	ComputedAt   time.Time `json:"computedAt"`
	BasisVersion int64     `json:"basisVersion"`
}

// TipCache 在面经总数变化或超过 ttl 后重新计算提示。
// 重新计算失败时继续返回旧值
type TipCache struct {
	mu    sync.Mutex
	entry *TipEntry
	ttl   time.Duration
	now   func() time.Time
}

func NewTipCache(ttl time.Duration) *TipCache {
	return &TipCache{ttl: ttl, now: time.Now}
}

func (c *TipCache) fresh(basis int64) bool {
	return c.entry != nil &&
		c.entry.BasisVersion == basis &&
		c.now().Sub(c.entry.ComputedAt) < c.ttl
}

// Get 返回 basis 对应的提示，必要时调用 compute。stale 表示返回的是过期值
func (c *TipCache) Get(ctx context.Context, basis int64, compute func(ctx context.Context) (string, error)) (entry TipEntry, stale bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fresh(basis) {
		return *c.entry, false, nil
	}

	value, err := compute(ctx)
	if err != nil {
		if c.entry != nil {
			return *c.entry, true, err
		}
		return TipEntry{}, false, err
	}

	c.entry = &TipEntry{Value: value, ComputedAt: c.now(), BasisVersion: basis}
	return *c.entry, false, nil
}

// Invalidate 丢弃缓存，下一次 Get 重新计算
func (c *TipCache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}
