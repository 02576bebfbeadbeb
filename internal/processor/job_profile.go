package processor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"hiring-portal/internal/constants"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"

	"github.com/rs/zerolog"
)

// JobLookup 岗位读取，MySQL 实现
type JobLookup interface {
	GetJob(ctx context.Context, id uint64) (*models.Job, error)
}

// JobProfileOption JobProfileProvider 的可选配置
type JobProfileOption func(*JobProfileProvider)

// WithProfileCache 启用 Redis 缓存，ttl<=0 时用 24h
func WithProfileCache(cache ProfileCache, ttl time.Duration) JobProfileOption {
	return func(p *JobProfileProvider) {
		p.cache = cache
		if ttl > 0 {
			p.ttl = ttl
		}
	}
}

// WithJDEmbedder 预先计算并缓存 JD 向量，modelVersion 用于判断缓存是否过期
func WithJDEmbedder(embedder TextEmbedder, modelVersion string) JobProfileOption {
	return func(p *JobProfileProvider) {
		p.embedder = embedder
		p.modelVersion = modelVersion
	}
}

// JobProfileProvider 提供打分所需的岗位信息：JD、两档关键词、可选的 JD 向量。
// Redis 不可用时直接读库
type JobProfileProvider struct {
	jobs         JobLookup
	normalizer   *parser.Normalizer
	cache        ProfileCache
	embedder     TextEmbedder
	modelVersion string
	ttl          time.Duration
	log          zerolog.Logger
}

// NewJobProfileProvider 创建岗位画像提供者
func NewJobProfileProvider(jobs JobLookup, normalizer *parser.Normalizer, options ...JobProfileOption) (*JobProfileProvider, error) {
	if jobs == nil {
		return nil, fmt.Errorf("JobLookup 不能为空")
	}
	if normalizer == nil {
		return nil, fmt.Errorf("Normalizer 不能为空")
	}

	p := &JobProfileProvider{
		jobs:       jobs,
		normalizer: normalizer,
		ttl:        24 * time.Hour,
		log:        logger.Component("job_profile"),
	}
	for _, option := range options {
		option(p)
	}
	if p.embedder != nil && p.modelVersion == "" {
		if mv, ok := p.embedder.(ModelVersioner); ok {
			p.modelVersion = mv.Model()
		}
	}

	p.log.Info().
		Bool("cache", p.cache != nil).
		Bool("jd_vector", p.embedder != nil).
		Str("model", p.modelVersion).
		Msg("JobProfileProvider 初始化完成")
	return p, nil
}

// SplitKeywords 逗号分隔的技能串拆成小写关键词，去空去重，保持原顺序
func SplitKeywords(s string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(s, ",") {
		kw := strings.ToLower(strings.TrimSpace(part))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

// ProfileFromJob key_skills 为高优先级，additional_skills 为普通优先级
func ProfileFromJob(job *models.Job) *types.JobProfile {
	return &types.JobProfile{
		JobID:          job.JobID,
		Title:          job.Title,
		JD:             job.JD,
		HighPriority:   SplitKeywords(job.KeySkills),
		NormalPriority: SplitKeywords(job.AdditionalSkills),
	}
}

// Profile 读取岗位画像。岗位不存在返回 NotFound 错误
func (p *JobProfileProvider) Profile(ctx context.Context, jobID uint64) (*types.JobProfile, error) {
	ctx, span := tracer.Start(ctx, "JobProfileProvider.Profile")
	defer span.End()

	profile := p.cachedProfile(ctx, jobID)
	if profile == nil {
		job, err := p.jobs.GetJob(ctx, jobID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil, NewNotFoundError("job_profile", ErrJobNotFound, fmt.Sprintf("job_id=%d", jobID))
			}
			return nil, NewPersistenceError("job_profile", err)
		}
		profile = ProfileFromJob(job)
		p.storeProfile(ctx, profile)
	}

	if p.embedder != nil {
		profile.JDVector = p.jdVector(ctx, profile)
	}
	return profile, nil
}

// Invalidate 删除岗位的画像和向量缓存
func (p *JobProfileProvider) Invalidate(ctx context.Context, jobID uint64) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Delete(ctx,
		fmt.Sprintf(constants.KeyJobProfile, jobID),
		fmt.Sprintf(constants.KeyJobDescriptionVector, jobID),
	)
}

// Warm 丢弃旧缓存并重新加载，岗位变更事件触发
func (p *JobProfileProvider) Warm(ctx context.Context, jobID uint64) error {
	if err := p.Invalidate(ctx, jobID); err != nil {
		p.log.Warn().Err(err).Uint64("job_id", jobID).Msg("清理岗位缓存失败")
	}
	_, err := p.Profile(ctx, jobID)
	return err
}

func (p *JobProfileProvider) cachedProfile(ctx context.Context, jobID uint64) *types.JobProfile {
	if p.cache == nil {
		return nil
	}
	var profile types.JobProfile
	err := p.cache.GetJSON(ctx, fmt.Sprintf(constants.KeyJobProfile, jobID), &profile)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			// Redis 出错不影响主流程，回源数据库
			p.log.Warn().Err(err).Uint64("job_id", jobID).Msg("读取岗位画像缓存失败")
		}
		return nil
	}
	return &profile
}

func (p *JobProfileProvider) storeProfile(ctx context.Context, profile *types.JobProfile) {
	if p.cache == nil {
		return
	}
	key := fmt.Sprintf(constants.KeyJobProfile, profile.JobID)
	if err := p.cache.SetJSON(ctx, key, profile, p.ttl); err != nil {
		p.log.Warn().Err(err).Uint64("job_id", profile.JobID).Msg("写入岗位画像缓存失败")
	}
}

// jdVector 先查缓存，模型版本和 JD 摘要都一致才复用，否则重新向量化。
// 向量化失败时返回 nil，打分时会再次向量化并上报错误
func (p *JobProfileProvider) jdVector(ctx context.Context, profile *types.JobProfile) []float64 {
	jdNorm := p.normalizer.Normalize(profile.JD)
	digest := jdDigest(jdNorm)

	if p.cache != nil {
		cached, err := p.cache.GetJobVector(ctx, profile.JobID)
		switch {
		case err == nil && len(cached.Vector) > 0:
			if cached.ModelVersion == p.modelVersion && cached.JDDigest == digest {
				p.log.Debug().Uint64("job_id", profile.JobID).Msg("JD 向量缓存命中")
				return cached.Vector
			}
			p.log.Info().
				Uint64("job_id", profile.JobID).
				Str("cached_model", cached.ModelVersion).
				Str("model", p.modelVersion).
				Msg("JD 向量缓存已过期，重新生成")
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			p.log.Warn().Err(err).Uint64("job_id", profile.JobID).Msg("读取 JD 向量缓存失败，将继续生成新向量")
		}
	}

	vectors, err := p.embedder.EmbedStrings(ctx, []string{jdNorm})
	if err != nil || len(vectors) == 0 || len(vectors[0]) == 0 {
		p.log.Warn().Err(err).Uint64("job_id", profile.JobID).Msg("JD 文本向量化失败")
		return nil
	}
	vec := vectors[0]

	if p.cache != nil {
		entry := storage.CachedVector{Vector: vec, ModelVersion: p.modelVersion, JDDigest: digest}
		if err := p.cache.SetJobVector(ctx, profile.JobID, entry, p.ttl); err != nil {
			// 缓存失败不应阻塞主流程
			p.log.Warn().Err(err).Uint64("job_id", profile.JobID).Msg("将 JD 向量存入 Redis 失败")
		}
	}
	return vec
}

func jdDigest(jdNorm string) string {
	sum := sha256.Sum256([]byte(jdNorm))
	return hex.EncodeToString(sum[:8])
}
