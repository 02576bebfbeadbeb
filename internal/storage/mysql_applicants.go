package storage

import (
	"context"
	"fmt"
	"time"

	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InsertApplicant 写入候选人，成功后 applicant.ApplicantID 为数据库生成的 ID
func (m *MySQL) InsertApplicant(ctx context.Context, applicant *models.Applicant) error {
	if err := m.db.WithContext(ctx).Create(applicant).Error; err != nil {
		return fmt.Errorf("插入候选人失败: %w", err)
	}
	return nil
}

// UpdateApplicantResumeURL 回填简历地址
func (m *MySQL) UpdateApplicantResumeURL(ctx context.Context, applicantID uint64, url string) error {
	res := m.db.WithContext(ctx).Model(&models.Applicant{}).
		Where("applicant_id = ?", applicantID).
		Update("resume_url", url)
	if res.Error != nil {
		return fmt.Errorf("更新候选人 %d 简历地址失败: %w", applicantID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("候选人 %d: %w", applicantID, ErrNotFound)
	}
	return nil
}

// InsertApplication 写入投递记录
func (m *MySQL) InsertApplication(ctx context.Context, app *models.Application) error {
	if app.AppliedDate.IsZero() {
		app.AppliedDate = time.Now()
	}
	if err := m.db.WithContext(ctx).Create(app).Error; err != nil {
		return fmt.Errorf("插入投递记录失败: %w", err)
	}
	return nil
}

// UpdateApplicationScores 写入匹配分:
// skills_matching_score = 关键词分, jd_matching_score = 语义相似度
func (m *MySQL) UpdateApplicationScores(ctx context.Context, applicationID uint64, res types.MatchResult) error {
	ctx, span := mysqlTracer.Start(ctx, "MySQL.UpdateApplicationScores",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.Int64("application.id", int64(applicationID)),
			attribute.Float64("score.overall", res.ResumeOverallScore),
		))
	defer span.End()

	now := time.Now()
	result := m.db.WithContext(ctx).Model(&models.Application{}).
		Where("application_id = ?", applicationID).
		Updates(map[string]any{
			"skills_matching_score": res.KeywordMatchScore,
			"jd_matching_score":     res.SemanticSimilarity,
			"resume_overall_score":  res.ResumeOverallScore,
			"scored_at":             now,
		})
	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, result.Error.Error())
		return fmt.Errorf("更新投递 %d 匹配分失败: %w", applicationID, result.Error)
	}
	if result.RowsAffected == 0 {
		span.SetStatus(codes.Error, "application not found")
		return fmt.Errorf("投递 %d: %w", applicationID, ErrNotFound)
	}
	span.SetStatus(codes.Ok, "")
	return nil
}

// GetApplication 按 ID 查询投递
func (m *MySQL) GetApplication(ctx context.Context, id uint64) (*models.Application, error) {
	var app models.Application
	if err := m.db.WithContext(ctx).First(&app, "application_id = ?", id).Error; err != nil {
		return nil, notFound(err, "查询投递 %d", id)
	}
	return &app, nil
}

// GetApplicant 按 ID 查询候选人
func (m *MySQL) GetApplicant(ctx context.Context, id uint64) (*models.Applicant, error) {
	var applicant models.Applicant
	if err := m.db.WithContext(ctx).First(&applicant, "applicant_id = ?", id).Error; err != nil {
		return nil, notFound(err, "查询候选人 %d", id)
	}
	return &applicant, nil
}

// ListApplicants 按创建时间倒序分页
func (m *MySQL) ListApplicants(ctx context.Context, page types.Page) (*types.PaginatedResponse[models.Applicant], error) {
	var total int64
	db := m.db.WithContext(ctx).Model(&models.Applicant{})
	if err := db.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("统计候选人数量失败: %w", err)
	}

	items := make([]models.Applicant, 0, page.Size)
	if err := db.Order("created_at DESC, applicant_id DESC").
		Offset(page.Offset()).
		Limit(page.Size).
		Find(&items).Error; err != nil {
		return nil, fmt.Errorf("分页查询候选人失败: %w", err)
	}

	return &types.PaginatedResponse[models.Applicant]{
		Page:       page.Page,
		Size:       page.Size,
		TotalCount: total,
		Items:      items,
	}, nil
}

// ListApplicationsByJob 岗位下的投递按综合分降序，未打分的排在最后
func (m *MySQL) ListApplicationsByJob(ctx context.Context, jobID uint64) ([]models.RankedApplication, error) {
	rows := make([]models.RankedApplication, 0)
	err := m.db.WithContext(ctx).
		Table("applications AS ap").
		Select(`ap.application_id, ap.applicant_id, a.first_name, a.last_name, a.email, a.experience_years,
			ap.skills_matching_score, ap.jd_matching_score, ap.resume_overall_score,
			ap.application_status, ap.source`).
		Joins("JOIN applicants AS a ON a.applicant_id = ap.applicant_id").
		Where("ap.job_id = ?", jobID).
		Order("ap.resume_overall_score IS NULL, ap.resume_overall_score DESC, ap.application_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("查询岗位 %d 的投递排名失败: %w", jobID, err)
	}
	return rows, nil
}

// EnqueueOutbox 与业务写入同一事务落库待投递消息
func (m *MySQL) EnqueueOutbox(ctx context.Context, msg *models.OutboxMessage) error {
	if msg == nil {
		return nil
	}
	if err := m.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("写入 outbox 消息 %s 失败: %w", msg.EventType, err)
	}
	return nil
}
