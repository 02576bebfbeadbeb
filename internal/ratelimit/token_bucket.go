package ratelimit

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// TokenBucket 令牌桶限流器，qpm <= 0 时不限流
type TokenBucket struct {
	rate           float64 // 每秒生成的令牌数
	capacity       float64
	tokens         float64
	lastRefillTime time.Time
	mutex          sync.Mutex
	retryWaitTime  time.Duration
	maxRetries     int
	now            func() time.Time
}

// NewTokenBucket 创建令牌桶，capacity <= 0 时取 qpm 的一半
func NewTokenBucket(qpm int, capacity int) *TokenBucket {
	if capacity <= 0 {
		capacity = qpm / 2
		if capacity <= 0 {
			capacity = 1
		}
	}

	tb := &TokenBucket{
		rate:          float64(qpm) / 60.0,
		capacity:      float64(capacity),
		tokens:        float64(capacity), // 初始填满
		retryWaitTime: 500 * time.Millisecond,
		maxRetries:    2,
		now:           time.Now,
	}
	tb.lastRefillTime = tb.now()
	return tb
}

// WithRetryPolicy 设置重试策略
func (tb *TokenBucket) WithRetryPolicy(waitTime time.Duration, maxRetries int) *TokenBucket {
	tb.retryWaitTime = waitTime
	tb.maxRetries = maxRetries
	return tb
}

func (tb *TokenBucket) unlimited() bool {
	return tb.rate <= 0
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()
	tb.lastRefillTime = now

	tb.tokens += elapsed * tb.rate
	if tb.tokens > tb.capacity {
		tb.tokens = tb.capacity
	}
}

// Allow 非阻塞地尝试消耗一个令牌
func (tb *TokenBucket) Allow() bool {
	if tb.unlimited() {
		return true
	}
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.refill()
	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// Wait 阻塞直到拿到令牌或 ctx 结束
func (tb *TokenBucket) Wait(ctx context.Context) error {
	if tb.unlimited() {
		return ctx.Err()
	}
	for {
		tb.mutex.Lock()
		tb.refill()
		if tb.tokens >= 1.0 {
			tb.tokens -= 1.0
			tb.mutex.Unlock()
			return nil
		}
		waitTime := time.Duration((1.0 - tb.tokens) / tb.rate * float64(time.Second))
		tb.mutex.Unlock()

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// RetryWithBackoff 先等令牌再执行 fn，可重试的错误按指数退避重试
func (tb *TokenBucket) RetryWithBackoff(ctx context.Context, fn func() error) error {
	var err error
	for retry := 0; retry <= tb.maxRetries; retry++ {
		if err = tb.Wait(ctx); err != nil {
			return err
		}

		err = fn()
		if err == nil {
			return nil
		}
		if !IsRetryableError(err) || retry >= tb.maxRetries {
			return err
		}

		timer := time.NewTimer(tb.retryWaitTime * time.Duration(1<<uint(retry)))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

var retryableMarkers = []string{
	"timeout",
	"connection reset",
	"EOF",
	"connection refused",
	"状态码: 429",
	"状态码: 502",
	"状态码: 503",
	"rate limit",
	"no such host",
}

// IsRetryableError 网络抖动和限流类错误可以重试，调用方取消不重试
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := err.Error()
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
