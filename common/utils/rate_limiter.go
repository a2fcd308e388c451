package utils

import (
	"sync"
	"time"
)

// RateLimiter 令牌桶限流，每个长连接一个
type RateLimiter struct {
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建一个新的限流器
// rate: 每秒补充的令牌数
// burst: 桶的容量
func NewRateLimiter(rate int, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		rate:     float64(rate),
		capacity: float64(burst),
		tokens:   float64(burst),
		now:      time.Now,
	}
	rl.lastRefill = rl.now()
	return rl
}

// SetRate 热更新速率，已有令牌保留
func (rl *RateLimiter) SetRate(rate int, burst int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if burst < 1 {
		burst = 1
	}
	rl.rate = float64(rate)
	rl.capacity = float64(burst)
	rl.tokens = min(rl.tokens, rl.capacity)
}

// Allow 判断当前请求是否允许通过
func (rl *RateLimiter) Allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	// rate <= 0 表示不限流
	if rl.rate <= 0 {
		return true
	}

	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
	rl.lastRefill = now

	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}
