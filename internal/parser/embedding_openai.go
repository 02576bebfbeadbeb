package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
)

const (
	defaultEmbeddingModel   = "all-MiniLM-L6-v2"
	defaultEmbeddingBaseURL = "http://localhost:8081/v1/embeddings"
	defaultEmbeddingTimeout = 30 * time.Second
)

// ErrEmptyEmbedding 服务返回的向量为空或数量不符
var ErrEmptyEmbedding = errors.New("embedding service returned no vectors")

// OpenAIEmbedder 调用 OpenAI 兼容的 /embeddings 接口，实现 eino embedding.Embedder。
// 同一个模型和输入的向量是确定的，JD 向量因此可以缓存。
type OpenAIEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	batchSize  int
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ embedding.Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAIEmbedder 根据配置创建 Embedder。api_key 可以为空(本地部署的向量服务)。
func NewOpenAIEmbedder(cfg config.EmbeddingConfig) (*OpenAIEmbedder, error) {
	model := cfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultEmbeddingBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("embedding base_url 必须是 http(s) 地址: %q", baseURL)
	}
	timeout := defaultEmbeddingTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}

	return &OpenAIEmbedder{
		apiKey:     cfg.APIKey,
		model:      model,
		dimensions: cfg.Dimensions,
		batchSize:  cfg.BatchSize,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        logger.Component("embedder"),
	}, nil
}

// Model 当前使用的模型名，作为缓存向量的版本标识
func (e *OpenAIEmbedder) Model() string {
	return e.model
}

// Dimensions 配置的向量维度，0 表示由服务决定
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	Dimensions     int      `json:"dimensions,omitempty"`
	EncodingFormat string   `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
	Error *embeddingAPIError `json:"error,omitempty"`
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingAPIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// EmbedStrings 将文本转换为向量，返回顺序与输入一致
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	options := embedding.GetCommonOptions(&embedding.Options{}, opts...)
	model := e.model
	if options.Model != nil && *options.Model != "" {
		model = *options.Model
	}

	batch := e.batchSize
	if batch <= 0 {
		batch = len(texts)
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batch {
		end := start + batch
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := e.embedBatch(ctx, model, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, model string, texts []string) ([][]float64, error) {
	startTime := time.Now()

	payload, err := json.Marshal(embeddingRequest{
		Input:          texts,
		Model:          model,
		Dimensions:     e.dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var parsed embeddingResponse
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Error != nil && parsed.Error.Message != "" {
			return nil, fmt.Errorf("向量服务调用失败, 状态码: %d, 类型: %s, 错误: %s", resp.StatusCode, parsed.Error.Type, parsed.Error.Message)
		}
		return nil, fmt.Errorf("向量服务调用失败, 状态码: %d, 响应: %s", resp.StatusCode, truncateBody(body))
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", decodeErr)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("向量服务返回错误: 类型=%s, 消息=%s", parsed.Error.Type, parsed.Error.Message)
	}
	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: 期望 %d 个, 实际 %d 个", ErrEmptyEmbedding, len(texts), len(parsed.Data))
	}

	// 服务端不保证顺序，按 index 还原
	sort.SliceStable(parsed.Data, func(i, j int) bool {
		return parsed.Data[i].Index < parsed.Data[j].Index
	})
	vectors := make([][]float64, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("%w: 第 %d 个向量为空", ErrEmptyEmbedding, i)
		}
		vectors[i] = d.Embedding
	}

	e.log.Debug().
		Str("model", model).
		Int("texts", len(texts)).
		Int("dim", len(vectors[0])).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Dur("elapsed", time.Since(startTime)).
		Msg("向量生成完成")
	return vectors, nil
}

func truncateBody(body []byte) string {
	const maxLen = 512
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "..."
}
