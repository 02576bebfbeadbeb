package ratelimit

import (
	"context"

	"github.com/cloudwego/eino/components/embedding"
)

// LimitedEmbedder 对向量服务的调用做限流和重试
type LimitedEmbedder struct {
	original    embedding.Embedder
	rateLimiter *TokenBucket
}

var _ embedding.Embedder = (*LimitedEmbedder)(nil)

// NewLimitedEmbedder 包装一个 Embedder，qpm <= 0 时只做重试不限流
func NewLimitedEmbedder(original embedding.Embedder, qpm int) *LimitedEmbedder {
	return &LimitedEmbedder{
		original:    original,
		rateLimiter: NewTokenBucket(qpm, qpm/2),
	}
}

// WithBucket 替换内部令牌桶
func (l *LimitedEmbedder) WithBucket(tb *TokenBucket) *LimitedEmbedder {
	l.rateLimiter = tb
	return l
}

// Unwrap 返回被包装的 Embedder
func (l *LimitedEmbedder) Unwrap() embedding.Embedder {
	return l.original
}

// EmbedStrings 代理 EmbedStrings
func (l *LimitedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	var vectors [][]float64
	err := l.rateLimiter.RetryWithBackoff(ctx, func() error {
		var embedErr error
		vectors, embedErr = l.original.EmbedStrings(ctx, texts, opts...)
		return embedErr
	})
	return vectors, err
}
