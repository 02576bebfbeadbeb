package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"hiring-portal/internal/logger"

	"github.com/cloudwego/eino-ext/components/document/parser/pdf"
	einoParser "github.com/cloudwego/eino/components/document/parser"
	"github.com/rs/zerolog"
)

const defaultEinoTimeout = 30 * time.Second

// EinoExtractor 基于 Eino PDF Parser 的文本提取器，按页解析后以换行连接。
// 解析失败返回空文本，与 PageExtractor 的约定一致。
type EinoExtractor struct {
	parser  *pdf.PDFParser
	timeout time.Duration
	log     zerolog.Logger
}

// EinoOption EinoExtractor 的配置选项
type EinoOption func(*EinoExtractor)

// WithEinoTimeout 单次解析的超时时间
func WithEinoTimeout(d time.Duration) EinoOption {
	return func(e *EinoExtractor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEinoExtractor 初始化 Eino PDF 提取器
func NewEinoExtractor(ctx context.Context, options ...EinoOption) (*EinoExtractor, error) {
	p, err := pdf.NewPDFParser(ctx, &pdf.Config{
		ToPages: true, // 每页一个文档，方便保持页序
	})
	if err != nil {
		return nil, fmt.Errorf("创建 Eino PDF 解析器失败: %w", err)
	}

	extractor := &EinoExtractor{
		parser:  p,
		timeout: defaultEinoTimeout,
		log:     logger.Component("pdf_eino"),
	}
	for _, option := range options {
		option(extractor)
	}
	return extractor, nil
}

// ExtractFromFile 从 PDF 文件提取文本
func (e *EinoExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开 PDF 文件 %s 失败: %w", filePath, err)
	}
	defer file.Close()

	return e.ExtractFromReader(ctx, file, filePath)
}

// ExtractFromBytes 从字节数组提取文本
func (e *EinoExtractor) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	return e.ExtractFromReader(ctx, bytes.NewReader(data), uri)
}

// ExtractFromReader 从 io.Reader 提取文本
func (e *EinoExtractor) ExtractFromReader(ctx context.Context, reader io.Reader, uri string) (string, error) {
	startTime := time.Now()

	parseCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	docs, err := e.parser.Parse(parseCtx, reader,
		einoParser.WithURI(uri),
		einoParser.WithExtraMeta(map[string]any{
			"extraction_time": startTime.Format(time.RFC3339),
		}),
	)
	if err != nil {
		// 调用方取消时向上返回，其余解析错误视为无法打开
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		e.log.Warn().Err(err).Str("uri", uri).Dur("elapsed", time.Since(startTime)).Msg("Eino 解析 PDF 失败，返回空文本")
		return "", nil
	}

	pages := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc == nil {
			pages = append(pages, "")
			continue
		}
		pages = append(pages, doc.Content)
	}
	text := strings.Join(pages, "\n")

	e.log.Debug().
		Str("uri", uri).
		Int("pages", len(docs)).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(startTime)).
		Msg("PDF 文本提取完成")
	return text, nil
}
