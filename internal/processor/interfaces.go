package processor

import (
	"context"
	"time"

	"hiring-portal/internal/storage"

	"github.com/cloudwego/eino/components/embedding"
)

//
// 文本提取相关接口
//

// TextExtractor PDF 文本提取器。文档无法打开时返回空串而不是错误，
// 由调用方统一做"空内容"检查
type TextExtractor interface {
	// ExtractFromFile 从本地 PDF 文件提取全部页文本
	ExtractFromFile(ctx context.Context, filePath string) (string, error)

	// ExtractFromBytes 从内存中的 PDF 提取，uri 仅用于日志
	ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error)
}

//
// 向量嵌入相关接口
//

// TextEmbedder 文本向量化接口 (符合 cloudwego/eino 规范)
type TextEmbedder interface {
	embedding.Embedder
}

// ModelVersioner 能报告模型名称的 embedder，用于 JD 向量缓存的版本校验
type ModelVersioner interface {
	Model() string
}

//
// 岗位画像相关接口
//

// ProfileCache 岗位画像和 JD 向量缓存，Redis 实现
type ProfileCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, v any, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	GetJobVector(ctx context.Context, jobID uint64) (*storage.CachedVector, error)
	SetJobVector(ctx context.Context, jobID uint64, entry storage.CachedVector, expiration time.Duration) error
}

var _ ProfileCache = (*storage.Redis)(nil)
