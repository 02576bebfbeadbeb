package processor

import (
	"context"
	"fmt"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/ratelimit"
)

// BuildTextExtractor 根据配置返回 PDF 文本提取器实现
func BuildTextExtractor(ctx context.Context, cfg config.ExtractorConfig) (TextExtractor, error) {
	log := logger.Component("extractor_init")
	switch cfg.Type {
	case "eino":
		log.Info().Msg("使用 Eino 作为 PDF 解析器")
		return parser.NewEinoExtractor(ctx)
	case "", "pages":
		log.Info().Msg("使用逐页 PDF 解析器")
		return parser.NewPageExtractor(), nil
	case "tika":
		log.Info().Str("server", cfg.TikaURL).Msg("使用 Tika 服务作为 PDF 解析器")
		return parser.NewTikaExtractor(cfg.TikaURL, config.GetDuration(cfg.TikaTimeout, parser.DefaultTikaTimeout))
	default:
		return nil, fmt.Errorf("不支持的 PDF 解析器类型 %q", cfg.Type)
	}
}

// BuildEmbedder 创建 OpenAI 兼容的向量模型，配置了 qpm 时加上令牌桶限流
func BuildEmbedder(cfg config.EmbeddingConfig) (TextEmbedder, error) {
	embedder, err := parser.NewOpenAIEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建向量模型失败: %w", err)
	}
	if cfg.QPM > 0 {
		logger.Info().Int("qpm", cfg.QPM).Str("model", cfg.Model).Msg("向量模型已启用限流")
		return ratelimit.NewLimitedEmbedder(embedder, cfg.QPM), nil
	}
	return embedder, nil
}
