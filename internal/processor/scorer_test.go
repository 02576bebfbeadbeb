package processor

import (
	"context"
	"errors"
	"testing"

	"hiring-portal/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWeightsPinned(t *testing.T) {
	w := DefaultWeights()
	assert.Equal(t, 0.7, w.HighPriority)
	assert.Equal(t, 0.3, w.NormalPriority)
	assert.Equal(t, 0.6, w.Semantic)
	assert.Equal(t, 0.4, w.Keyword)
	assert.Equal(t, 300, w.ExcerptLength)
}

func TestWeightsFromConfig(t *testing.T) {
	assert.Equal(t, DefaultWeights(), WeightsFromConfig(config.ScoringConfig{}))

	w := WeightsFromConfig(config.ScoringConfig{SemanticWeight: 0.5, KeywordWeight: 0.5, ExcerptLength: 100})
	assert.Equal(t, 0.5, w.Semantic)
	assert.Equal(t, 0.5, w.Keyword)
	assert.Equal(t, 0.7, w.HighPriority)
	assert.Equal(t, 100, w.ExcerptLength)
}

func TestRound4(t *testing.T) {
	assert.Equal(t, 0.1235, Round4(0.123456))
	assert.Equal(t, 0.1234, Round4(0.12344))
	assert.Equal(t, -0.5, Round4(-0.5))
}

func TestKeywordScore(t *testing.T) {
	s := NewScorer(&fakeEmbedder{}, DefaultWeights())

	t.Run("两档都为空时为0", func(t *testing.T) {
		assert.Equal(t, 0.0, s.KeywordScore("go kubernetes", "go kubernetes", nil, nil))
		assert.Equal(t, 0.0, s.KeywordScore("go kubernetes", "go kubernetes", []string{}, []string{" "}))
	})

	t.Run("只统计简历和JD都包含的关键词", func(t *testing.T) {
		// high: go, kubernetes 都命中 → 1；normal: sql 命中 docker 未命中 → 0.5
		got := s.KeywordScore("jane go kubernetes sql docker", "go engineer kubernetes sql", []string{"go", "kubernetes"}, []string{"sql", "docker"})
		assert.Equal(t, 0.85, got)
	})

	t.Run("关键词大小写和重复", func(t *testing.T) {
		got := s.KeywordScore("python", "python", []string{"Python", "python", "java"}, nil)
		assert.Equal(t, 0.35, got)
	})

	t.Run("只有普通档", func(t *testing.T) {
		got := s.KeywordScore("sql", "sql", nil, []string{"sql"})
		assert.Equal(t, 0.3, got)
	})
}

func TestOverallFormula(t *testing.T) {
	s := NewScorer(&fakeEmbedder{}, DefaultWeights())
	pairs := [][2]float64{{0, 0}, {1, 1}, {0.8123, 0.35}, {0.33333, 0.66667}, {-0.2, 0.5}}
	for _, p := range pairs {
		assert.Equal(t, Round4(0.6*p[0]+0.4*p[1]), s.Overall(p[0], p[1]), "%v", p)
	}
	// 不截断
	assert.Equal(t, -0.12, s.Overall(-0.2, 0))
}

func TestCosine(t *testing.T) {
	got, err := cosine([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-12)

	got, err = cosine([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = cosine([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	_, err = cosine([]float64{1}, []float64{1, 2})
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	ctx := context.Background()
	emb := &fakeEmbedder{}
	s := NewScorer(emb, DefaultWeights())

	resume := "jane doe go kubernetes sql engineer acme"
	jd := "need go engineer kubernetes sql experience"
	res, err := s.Score(ctx, resume, jd, []string{"go", "kubernetes"}, []string{"sql", "docker"})
	require.NoError(t, err)

	sim, _ := cosine(letterVector(resume), letterVector(jd))
	assert.Equal(t, Round4(sim), res.SemanticSimilarity)
	assert.Equal(t, 0.85, res.KeywordMatchScore)
	assert.Equal(t, Round4(0.6*res.SemanticSimilarity+0.4*0.85), res.ResumeOverallScore)
	assert.Equal(t, resume, res.ResumeExcerpt)
	assert.Equal(t, jd, res.JDExcerpt)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, 2, emb.texts)
}

func TestScoreWithJDVectorEmbedsResumeOnly(t *testing.T) {
	emb := &fakeEmbedder{}
	s := NewScorer(emb, DefaultWeights())

	jd := "go engineer"
	res, err := s.ScoreWithJDVector(context.Background(), "go engineer", jd, letterVector(jd), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.SemanticSimilarity)
	assert.Equal(t, 1, emb.texts)
}

func TestScoreModelFailure(t *testing.T) {
	s := NewScorer(&fakeEmbedder{err: errors.New("upstream 503")}, DefaultWeights())
	_, err := s.Score(context.Background(), "a b", "c d", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExternalModel)
	assert.Equal(t, KindExternalModel, KindOf(err))
	assert.Equal(t, 500, StatusCodeOf(err))
	assert.Contains(t, err.Error(), "upstream 503")
}

func TestScoreDimensionMismatch(t *testing.T) {
	s := NewScorer(&fakeEmbedder{}, DefaultWeights())
	_, err := s.ScoreWithJDVector(context.Background(), "go", "go", []float64{1, 2, 3}, nil, nil)
	assert.ErrorIs(t, err, ErrExternalModel)
}

func TestExcerptCountsRunes(t *testing.T) {
	assert.Equal(t, "héll", excerpt("héllo wörld", 4))
	assert.Equal(t, "short", excerpt("short", 300))
	assert.Equal(t, "", excerpt("anything", 0))
}
