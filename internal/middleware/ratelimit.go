package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const rateLimitClients = 10000

// RateLimiter 按客户端 IP 的令牌桶限流，最近活跃的 IP 保存在 LRU 中
type RateLimiter struct {
	limiters *lru.Cache[string, *rate.Limiter]
	rps      rate.Limit
	burst    int
}

func NewRateLimiter(rps float64, burst int) (*RateLimiter, error) {
	cache, err := lru.New[string, *rate.Limiter](rateLimitClients)
	if err != nil {
		return nil, err
	}
	return &RateLimiter{limiters: cache, rps: rate.Limit(rps), burst: burst}, nil
}

func (r *RateLimiter) limiter(key string) *rate.Limiter {
	if l, ok := r.limiters.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(r.rps, r.burst)
	// 并发首次请求时以先写入的为准
	if prev, ok, _ := r.limiters.PeekOrAdd(key, l); ok {
		return prev
	}
	return l
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			c.Header("Retry-After", "1")
			abort(c, http.StatusTooManyRequests, "Too many requests, please slow down")
			return
		}
		c.Next()
	}
}
