package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"hiring-portal/internal/logger"

	"github.com/cloudwego/hertz/pkg/app/client"
	"github.com/cloudwego/hertz/pkg/protocol"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

// DefaultTikaTimeout 单次 Tika 请求的默认超时
const DefaultTikaTimeout = 60 * time.Second

// TikaExtractor 把 PDF 交给 Apache Tika 服务提取纯文本
type TikaExtractor struct {
	serverURL string
	client    *client.Client
	timeout   time.Duration
	log       zerolog.Logger
}

// NewTikaExtractor 创建 Tika 提取器，serverURL 形如 http://localhost:9998
func NewTikaExtractor(serverURL string, timeout time.Duration) (*TikaExtractor, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("tika 服务地址不能为空")
	}
	if timeout <= 0 {
		timeout = DefaultTikaTimeout
	}
	c, err := client.NewClient(client.WithDialTimeout(5 * time.Second))
	if err != nil {
		return nil, fmt.Errorf("创建 Tika 客户端失败: %w", err)
	}
	return &TikaExtractor{
		serverURL: strings.TrimRight(serverURL, "/"),
		client:    c,
		timeout:   timeout,
		log:       logger.Component("pdf_tika"),
	}, nil
}

// ExtractFromFile 读取本地文件后交给 Tika
func (e *TikaExtractor) ExtractFromFile(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("打开 PDF 文件 %s 失败: %w", filePath, err)
	}
	return e.ExtractFromBytes(ctx, data, filePath)
}

// ExtractFromBytes PUT /tika 取纯文本。Tika 认定文档无法解析(422)时返回空文本
func (e *TikaExtractor) ExtractFromBytes(ctx context.Context, data []byte, uri string) (string, error) {
	start := time.Now()

	req := protocol.AcquireRequest()
	resp := protocol.AcquireResponse()
	defer protocol.ReleaseRequest(req)
	defer protocol.ReleaseResponse(resp)

	req.SetRequestURI(e.serverURL + "/tika")
	req.SetMethod(consts.MethodPut)
	req.Header.Set("Content-Type", "application/pdf")
	req.Header.Set("Accept", "text/plain")
	if uri != "" {
		req.Header.Set("X-Tika-Resource-Name", uri)
	}
	req.SetBody(data)

	if err := e.client.DoTimeout(ctx, req, resp, e.timeout); err != nil {
		return "", fmt.Errorf("请求 Tika 服务失败: %w", err)
	}

	switch code := resp.StatusCode(); {
	case code == consts.StatusUnprocessableEntity:
		e.log.Warn().Str("uri", uri).Msg("Tika 无法解析该文档")
		return "", nil
	case code != consts.StatusOK:
		return "", fmt.Errorf("tika 服务返回状态码 %d", code)
	}

	text := strings.TrimSpace(string(resp.Body()))
	e.log.Debug().
		Str("uri", uri).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Tika 文本提取完成")
	return text, nil
}
