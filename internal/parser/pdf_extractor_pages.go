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

	"github.com/dslipak/pdf"
	"github.com/rs/zerolog"
)

// PageExtractor 逐页提取 PDF 文本。
// 单页失败(包括解析库 panic)按空字符串处理；整个文档无法打开时返回空文本而不是错误，
// 调用方只需要做一次"内容为空"的检查。
type PageExtractor struct {
	log zerolog.Logger
}

// NewPageExtractor 创建逐页提取器
func NewPageExtractor() *PageExtractor {
	return &PageExtractor{log: logger.Component("pdf_pages")}
}

// ExtractFromFile 从本地文件提取文本，只有文件本身无法读取时返回错误
func (e *PageExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("打开 PDF 文件 %s 失败: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("读取 PDF 文件信息失败: %w", err)
	}
	return e.ExtractFromReader(ctx, f, info.Size())
}

// ExtractFromBytes 从内存中的 PDF 提取文本
func (e *PageExtractor) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	e.log.Debug().Str("uri", uri).Int("bytes", len(data)).Msg("从内存提取 PDF 文本")
	return e.ExtractFromReader(ctx, bytes.NewReader(data), int64(len(data)))
}

// ExtractFromReader 按页顺序提取并以换行连接
func (e *PageExtractor) ExtractFromReader(ctx context.Context, r io.ReaderAt, size int64) (string, error) {
	start := time.Now()

	reader, ok := e.open(r, size)
	if !ok {
		return "", nil
	}

	numPages := e.numPages(reader)
	pages := make([]string, 0, numPages)
	failed := 0
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := pageText(reader, i)
		if err != nil {
			failed++
			e.log.Warn().Err(err).Int("page", i).Msg("PDF 单页提取失败，按空白页处理")
		}
		pages = append(pages, text)
	}

	out := strings.Join(pages, "\n")
	e.log.Debug().
		Int("pages", numPages).
		Int("failed_pages", failed).
		Int("chars", len(out)).
		Dur("elapsed", time.Since(start)).
		Msg("PDF 文本提取完成")
	return out, nil
}

func (e *PageExtractor) open(r io.ReaderAt, size int64) (reader *pdf.Reader, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn().Interface("panic", rec).Msg("PDF 文档无法打开")
			reader, ok = nil, false
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		e.log.Warn().Err(err).Msg("PDF 文档无法打开")
		return nil, false
	}
	return reader, true
}

func (e *PageExtractor) numPages(reader *pdf.Reader) (n int) {
	defer func() {
		if rec := recover(); rec != nil {
			e.log.Warn().Interface("panic", rec).Msg("读取 PDF 页数失败")
			n = 0
		}
	}()
	return reader.NumPage()
}

// pageText 提取单页文本，解析库的 panic 转成错误
func pageText(reader *pdf.Reader, index int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("第 %d 页解析 panic: %v", index, rec)
		}
	}()

	page := reader.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
