package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"hiring-portal/internal/logger"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/tracing"
	"hiring-portal/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// ProfileSource 按岗位 ID 提供打分用的岗位画像
type ProfileSource interface {
	Profile(ctx context.Context, jobID uint64) (*types.JobProfile, error)
}

var _ ProfileSource = (*JobProfileProvider)(nil)

// MatchRequest 一次匹配的输入。ResumeText 为空时从 ResumeURL 读取文件重新提取
type MatchRequest struct {
	ApplicationID uint64
	ResumeURL     string
	ResumeText    string
	Profile       *types.JobProfile
}

// Matcher 计算匹配分并写回投递记录
type Matcher struct {
	repo       storage.Repository
	files      storage.FileStore
	extractor  TextExtractor
	normalizer *parser.Normalizer
	scorer     *Scorer
	profiles   ProfileSource
	log        zerolog.Logger
}

// NewMatcher 创建匹配器
func NewMatcher(repo storage.Repository, files storage.FileStore, extractor TextExtractor,
	normalizer *parser.Normalizer, scorer *Scorer, profiles ProfileSource) *Matcher {
	return &Matcher{
		repo:       repo,
		files:      files,
		extractor:  extractor,
		normalizer: normalizer,
		scorer:     scorer,
		profiles:   profiles,
		log:        logger.Component("matcher"),
	}
}

// Evaluate 在调用方的事务里打分并更新投递记录的三个分数。
// 写库失败返回持久化错误，由调用方回滚事务
func (m *Matcher) Evaluate(ctx context.Context, tx storage.ApplicationTx, req MatchRequest) (*types.MatchResult, error) {
	ctx, span := tracer.Start(ctx, "Matcher.Evaluate")
	defer span.End()
	span.SetAttributes(attribute.Int64("application.id", int64(req.ApplicationID)))

	if req.Profile == nil {
		return nil, NewNotFoundError("evaluate", ErrJobNotFound, "缺少岗位画像")
	}

	text := req.ResumeText
	if strings.TrimSpace(text) == "" && req.ResumeURL != "" {
		var err error
		text, err = m.loadResumeText(ctx, req.ResumeURL)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeFileStore)
			return nil, err
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewValidationError("evaluate", ErrEmptyContent, "")
	}

	resumeNorm := m.normalizer.Normalize(text)
	jdNorm := m.normalizer.Normalize(req.Profile.JD)

	result, err := m.scorer.ScoreWithJDVector(ctx, resumeNorm, jdNorm, req.Profile.JDVector,
		req.Profile.HighPriority, req.Profile.NormalPriority)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeModel)
		return nil, err
	}

	if err := tx.UpdateApplicationScores(ctx, req.ApplicationID, result); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, NewPersistenceError("update_scores", err)
	}

	span.SetAttributes(
		attribute.Float64("score.semantic", result.SemanticSimilarity),
		attribute.Float64("score.keyword", result.KeywordMatchScore),
		attribute.Float64("score.overall", result.ResumeOverallScore),
		attribute.String("resume.excerpt", tracing.SafeResumeContent(resumeNorm)),
	)
	m.log.Debug().
		Uint64("application_id", req.ApplicationID).
		Uint64("job_id", req.Profile.JobID).
		Float64("overall", result.ResumeOverallScore).
		Msg("匹配分已写入")
	return &result, nil
}

// Reevaluate 对已有投递重新打分，单独开启一个事务
func (m *Matcher) Reevaluate(ctx context.Context, applicationID uint64) (*types.MatchResult, error) {
	app, err := m.repo.GetApplication(ctx, applicationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("reevaluate", ErrApplicationNotFound, fmt.Sprintf("application_id=%d", applicationID))
		}
		return nil, NewPersistenceError("reevaluate", err)
	}

	applicant, err := m.repo.GetApplicant(ctx, app.ApplicantID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, NewNotFoundError("reevaluate", ErrApplicationNotFound, fmt.Sprintf("applicant_id=%d", app.ApplicantID))
		}
		return nil, NewPersistenceError("reevaluate", err)
	}
	if applicant.ResumeURL == nil || *applicant.ResumeURL == "" {
		return nil, NewValidationError("reevaluate", ErrEmptyContent, "候选人没有简历文件")
	}

	profile, err := m.profiles.Profile(ctx, app.JobID)
	if err != nil {
		return nil, err
	}

	// 文件读取放在事务外
	text, err := m.loadResumeText(ctx, *applicant.ResumeURL)
	if err != nil {
		return nil, err
	}

	var result *types.MatchResult
	err = m.repo.WithinTx(ctx, func(tx storage.ApplicationTx) error {
		var evalErr error
		result, evalErr = m.Evaluate(ctx, tx, MatchRequest{
			ApplicationID: applicationID,
			ResumeText:    text,
			Profile:       profile,
		})
		return evalErr
	})
	if err != nil {
		if KindOf(err) == KindUnknown {
			err = NewPersistenceError("reevaluate", err)
		}
		m.log.Error().Err(err).Uint64("application_id", applicationID).Msg("重新打分失败，事务已回滚")
		return nil, err
	}

	m.log.Info().
		Uint64("application_id", applicationID).
		Float64("overall", result.ResumeOverallScore).
		Msg("重新打分完成")
	return result, nil
}

func (m *Matcher) loadResumeText(ctx context.Context, url string) (string, error) {
	if m.files == nil || m.extractor == nil {
		return "", fmt.Errorf("文件存储或文本提取器未初始化")
	}
	rc, err := m.files.Open(ctx, url)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", NewNotFoundError("load_resume", ErrApplicationNotFound, "简历文件不存在")
		}
		return "", NewPersistenceError("load_resume", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", NewPersistenceError("load_resume", err)
	}
	text, err := m.extractor.ExtractFromBytes(ctx, data, url)
	if err != nil {
		return "", fmt.Errorf("提取简历文本失败: %w", err)
	}
	return text, nil
}
