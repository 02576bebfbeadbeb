package processor

import (
	"context"
	"fmt"
	"math"
	"strings"

	"hiring-portal/internal/config"
	"hiring-portal/internal/tracing"
	"hiring-portal/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("hiring-portal/processor")

// Weights 打分权重。关键词两档之和、综合两项之和都应为 1
type Weights struct {
	HighPriority   float64
	NormalPriority float64
	Semantic       float64
	Keyword        float64
	ExcerptLength  int
}

// DefaultWeights 0.7/0.3 关键词分档，0.6/0.4 综合
func DefaultWeights() Weights {
	return Weights{
		HighPriority:   0.7,
		NormalPriority: 0.3,
		Semantic:       0.6,
		Keyword:        0.4,
		ExcerptLength:  300,
	}
}

// WeightsFromConfig 配置里未填的项用默认值
func WeightsFromConfig(cfg config.ScoringConfig) Weights {
	w := DefaultWeights()
	if cfg.HighPriorityWeight != 0 || cfg.NormalPriorityWeight != 0 {
		w.HighPriority, w.NormalPriority = cfg.HighPriorityWeight, cfg.NormalPriorityWeight
	}
	if cfg.SemanticWeight != 0 || cfg.KeywordWeight != 0 {
		w.Semantic, w.Keyword = cfg.SemanticWeight, cfg.KeywordWeight
	}
	if cfg.ExcerptLength > 0 {
		w.ExcerptLength = cfg.ExcerptLength
	}
	return w
}

// Scorer 计算简历与 JD 的语义相似度、关键词分和综合分。
// 输入都是 Normalizer 处理过的文本
type Scorer struct {
	embedder TextEmbedder
	weights  Weights
}

// NewScorer 创建打分器
func NewScorer(embedder TextEmbedder, weights Weights) *Scorer {
	return &Scorer{embedder: embedder, weights: weights}
}

// Weights 当前使用的权重
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Round4 四舍五入到 4 位小数
func Round4(x float64) float64 {
	return math.Round(x*1e4) / 1e4
}

// Semantic 两段文本向量的余弦相似度，不做截断
func (s *Scorer) Semantic(ctx context.Context, resumeNorm, jdNorm string) (float64, error) {
	vectors, err := s.embed(ctx, resumeNorm, jdNorm)
	if err != nil {
		return 0, err
	}
	return s.cosineScore(vectors[0], vectors[1])
}

func (s *Scorer) semanticWithJDVector(ctx context.Context, resumeNorm string, jdVec []float64) (float64, error) {
	vectors, err := s.embed(ctx, resumeNorm)
	if err != nil {
		return 0, err
	}
	return s.cosineScore(vectors[0], jdVec)
}

func (s *Scorer) embed(ctx context.Context, texts ...string) ([][]float64, error) {
	if s.embedder == nil {
		return nil, NewExternalModelError("embed", fmt.Errorf("embedder 未初始化"))
	}
	ctx, span := tracer.Start(ctx, "Scorer.embed")
	defer span.End()
	span.SetAttributes(attribute.Int("embedding.texts", len(texts)))

	vectors, err := s.embedder.EmbedStrings(ctx, texts)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		return nil, NewExternalModelError("embed", err)
	}
	if len(vectors) != len(texts) {
		err = fmt.Errorf("返回 %d 个向量，期望 %d 个", len(vectors), len(texts))
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		return nil, NewExternalModelError("embed", err)
	}
	for i, v := range vectors {
		if len(v) == 0 {
			err = fmt.Errorf("第 %d 个向量为空", i)
			tracing.RecordError(span, err, tracing.ErrorTypeModel)
			return nil, NewExternalModelError("embed", err)
		}
	}
	return vectors, nil
}

func (s *Scorer) cosineScore(a, b []float64) (float64, error) {
	sim, err := cosine(a, b)
	if err != nil {
		return 0, NewExternalModelError("cosine", err)
	}
	return Round4(sim), nil
}

// cosine 零向量的相似度记为 0
func cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("向量维度不一致: %d != %d", len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}

// KeywordScore 同时出现在简历和 JD 中的关键词按档加权，某档为空时该档记 0
func (s *Scorer) KeywordScore(resumeNorm, jdNorm string, high, normal []string) float64 {
	resumeTokens := tokenSet(resumeNorm)
	jdTokens := tokenSet(jdNorm)

	hit := func(keywords []string) float64 {
		set := keywordSet(keywords)
		if len(set) == 0 {
			return 0
		}
		n := 0
		for kw := range set {
			if _, ok := resumeTokens[kw]; !ok {
				continue
			}
			if _, ok := jdTokens[kw]; ok {
				n++
			}
		}
		return float64(n) / float64(len(set))
	}

	return Round4(s.weights.HighPriority*hit(high) + s.weights.NormalPriority*hit(normal))
}

// Overall 语义分和关键词分的加权和
func (s *Scorer) Overall(semantic, keyword float64) float64 {
	return Round4(s.weights.Semantic*semantic + s.weights.Keyword*keyword)
}

// Score 完整打分，简历和 JD 都现场向量化
func (s *Scorer) Score(ctx context.Context, resumeNorm, jdNorm string, high, normal []string) (types.MatchResult, error) {
	return s.ScoreWithJDVector(ctx, resumeNorm, jdNorm, nil, high, normal)
}

// ScoreWithJDVector jdVec 非空时复用缓存的 JD 向量，只向量化简历
func (s *Scorer) ScoreWithJDVector(ctx context.Context, resumeNorm, jdNorm string, jdVec []float64, high, normal []string) (types.MatchResult, error) {
	var (
		sem float64
		err error
	)
	if len(jdVec) > 0 {
		sem, err = s.semanticWithJDVector(ctx, resumeNorm, jdVec)
	} else {
		sem, err = s.Semantic(ctx, resumeNorm, jdNorm)
	}
	if err != nil {
		return types.MatchResult{}, err
	}

	kw := s.KeywordScore(resumeNorm, jdNorm, high, normal)
	return types.MatchResult{
		SemanticSimilarity: sem,
		KeywordMatchScore:  kw,
		ResumeOverallScore: s.Overall(sem, kw),
		ResumeExcerpt:      excerpt(resumeNorm, s.weights.ExcerptLength),
		JDExcerpt:          excerpt(jdNorm, s.weights.ExcerptLength),
	}, nil
}

func tokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			set[kw] = struct{}{}
		}
	}
	return set
}

// excerpt 按 rune 截取前 n 个字符
func excerpt(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
