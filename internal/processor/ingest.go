package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"hiring-portal/internal/constants"
	"hiring-portal/internal/parser"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/tracing"
	"hiring-portal/internal/types"
	"hiring-portal/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

// Assignment 上传时附带的指派信息，单文件和批量共用
type Assignment struct {
	ApplicationStatus string
	AssignedHR        string
	AssignedManager   string
	Comments          string
	ExpectedCTC       *float64 // 未提供时写 NULL
	NoticePeriodDays  *int     // 未提供时写 NULL
}

// IngestRequest 单份简历的入库请求
type IngestRequest struct {
	JobID      uint64
	Source     string
	Filename   string
	Content    io.Reader
	Assignment Assignment
}

// EventRouting applicant.ingested 事件的投递目标，Exchange 为空时不写 outbox
type EventRouting struct {
	Exchange   string
	RoutingKey string
}

// Ingestor 单份简历入库：校验、提取、解析，然后在一个事务里写候选人、
// 保存简历文件、写投递记录并打分。事务外写入的文件由 Saga 补偿
type Ingestor struct {
	repo          storage.Repository
	files         storage.FileStore
	extractor     TextExtractor
	parser        *parser.ResumeParser
	profiles      ProfileSource
	matcher       *Matcher
	tempDir       string
	defaultStatus string
	defaultSource string
	events        EventRouting
	now           func() time.Time
	log           zerolog.Logger
}

// Ingest 执行完整入库流程，返回分类错误(见 errors.go)
func (in *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*types.IngestResult, error) {
	ctx, span := tracer.Start(ctx, "Ingestor.Ingest")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("job.id", int64(req.JobID)),
		attribute.String("file.name", tracing.SafeAttributeValue("file.name", req.Filename, tracing.DefaultMaxLength)),
	)

	res, err := in.ingest(ctx, req)
	if err != nil {
		tracing.RecordError(span, err, errorTypeOf(err))
		in.log.Warn().
			Err(err).
			Str("filename", req.Filename).
			Uint64("job_id", req.JobID).
			Str("kind", KindOf(err).String()).
			Msg("简历入库失败")
		return nil, withFilename(err, req.Filename)
	}
	span.SetAttributes(
		attribute.Int64("applicant.id", int64(res.ApplicantID)),
		attribute.String("applicant.email", tracing.SafeAttributeValue("applicant.email", res.Parsed.Email, tracing.DefaultMaxLength)),
	)
	return res, nil
}

func (in *Ingestor) ingest(ctx context.Context, req IngestRequest) (*types.IngestResult, error) {
	// 1. 文件类型
	if !strings.EqualFold(filepath.Ext(req.Filename), ".pdf") {
		return nil, NewValidationError("validate", ErrInvalidType, fmt.Sprintf("%s 不是 PDF 文件", req.Filename))
	}
	if req.Content == nil {
		return nil, NewValidationError("validate", ErrEmptyContent, "")
	}

	// 2. 写临时文件，退出时总是删除(已被移走时 Remove 报错忽略)
	tempPath, err := in.writeTemp(ctx, req.Content)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rmErr := os.Remove(tempPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			in.log.Warn().Err(rmErr).Str("path", tempPath).Msg("删除临时文件失败")
		}
	}()

	// 3. 提取文本
	text, err := in.extractor.ExtractFromFile(ctx, tempPath)
	if err != nil {
		return nil, fmt.Errorf("提取简历文本失败: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, NewValidationError("extract", ErrEmptyContent, "")
	}

	// 4. 解析字段
	parsed := in.parser.Parse(text)
	if err := validateParsed(parsed); err != nil {
		return nil, err
	}
	if parsed.LastName == "" {
		parsed.LastName = constants.DefaultLastName
	}

	profile, err := in.profiles.Profile(ctx, req.JobID)
	if err != nil {
		return nil, err
	}
	asg := in.applyDefaults(req.Assignment)
	if err := in.checkManager(ctx, asg.AssignedManager); err != nil {
		return nil, err
	}
	source := req.Source
	if source == "" {
		source = in.defaultSource
	}

	// 5-6. 事务 + 补偿
	saga := NewSaga("ingest", in.log)
	result := &types.IngestResult{
		ExpectedCTC:      asg.ExpectedCTC,
		NoticePeriodDays: asg.NoticePeriodDays,
		AssignedHR:       asg.AssignedHR,
		AssignedManager:  asg.AssignedManager,
		Comments:         asg.Comments,
		Parsed:           parsed,
	}

	err = in.repo.WithinTx(ctx, func(tx storage.ApplicationTx) error {
		applicant := applicantFromParsed(parsed, asg)
		if err := tx.InsertApplicant(ctx, applicant); err != nil {
			return NewPersistenceError("insert_applicant", err)
		}

		key := fmt.Sprintf("%d_%s", applicant.ApplicantID, utils.SafeFilename(req.Filename))
		url, err := in.files.Put(ctx, key, tempPath)
		if err != nil {
			return NewPersistenceError("store_resume", err)
		}
		saga.Add("delete_resume", func(ctx context.Context) error {
			return in.files.Delete(ctx, url)
		})

		if err := tx.UpdateApplicantResumeURL(ctx, applicant.ApplicantID, url); err != nil {
			return NewPersistenceError("update_resume_url", err)
		}

		app := &models.Application{
			JobID:             req.JobID,
			ApplicantID:       applicant.ApplicantID,
			AppliedDate:       in.now(),
			Source:            source,
			ApplicationStatus: asg.ApplicationStatus,
			AssignedHR:        asg.AssignedHR,
			AssignedManager:   asg.AssignedManager,
			Comments:          asg.Comments,
		}
		if err := tx.InsertApplication(ctx, app); err != nil {
			return NewPersistenceError("insert_application", err)
		}

		eval, err := in.matcher.Evaluate(ctx, tx, MatchRequest{
			ApplicationID: app.ApplicationID,
			ResumeText:    text,
			Profile:       profile,
		})
		if err != nil {
			return err
		}

		if err := in.enqueueIngested(ctx, tx, app, eval); err != nil {
			return NewPersistenceError("enqueue_event", err)
		}

		result.ApplicantID = applicant.ApplicantID
		result.ApplicationID = app.ApplicationID
		result.ResumeURL = url
		result.Evaluation = eval
		return nil
	})
	if err != nil {
		if cErr := saga.Compensate(ctx); cErr != nil {
			in.log.Error().Err(cErr).Str("filename", req.Filename).Msg("回滚后清理简历文件失败")
		}
		if KindOf(err) == KindUnknown {
			// 提交失败等事务层错误
			err = NewPersistenceError("commit", err)
		}
		return nil, err
	}

	in.log.Info().
		Uint64("applicant_id", result.ApplicantID).
		Uint64("application_id", result.ApplicationID).
		Uint64("job_id", req.JobID).
		Str("email", tracing.MaskPII(parsed.Email)).
		Float64("overall", result.Evaluation.ResumeOverallScore).
		Msg("简历入库完成")
	return result, nil
}

func (in *Ingestor) writeTemp(ctx context.Context, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(in.tempDir, 0o755); err != nil {
		return "", NewPersistenceError("write_temp", err)
	}
	// 并发入库时临时文件名互不相同
	path := filepath.Join(in.tempDir, uuid.NewString()+".pdf")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return "", NewPersistenceError("write_temp", err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(path)
		return "", NewPersistenceError("write_temp", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", NewPersistenceError("write_temp", err)
	}
	return path, nil
}

func (in *Ingestor) applyDefaults(a Assignment) Assignment {
	if a.ApplicationStatus == "" {
		a.ApplicationStatus = in.defaultStatus
	}
	if strings.TrimSpace(a.AssignedHR) == "" {
		a.AssignedHR = constants.Unassigned
	}
	if strings.TrimSpace(a.AssignedManager) == "" {
		a.AssignedManager = constants.Unassigned
	}
	return a
}

// checkManager 指定了经理时必须是已存在的 Manager 角色用户
func (in *Ingestor) checkManager(ctx context.Context, manager string) error {
	if manager == constants.Unassigned {
		return nil
	}
	_, err := in.repo.FindUserByNameAndRole(ctx, manager, constants.RoleManager)
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) {
		return NewNotFoundError("lookup_manager", ErrManagerNotFound, manager)
	}
	return NewPersistenceError("lookup_manager", err)
}

func (in *Ingestor) enqueueIngested(ctx context.Context, tx storage.ApplicationTx, app *models.Application, eval *types.MatchResult) error {
	if in.events.Exchange == "" {
		return nil
	}
	msg, err := models.NewOutboxMessage(
		strconv.FormatUint(app.ApplicantID, 10),
		constants.EventApplicantIngested,
		in.events.Exchange,
		in.events.RoutingKey,
		storage.ApplicantIngestedEvent{
			ApplicantID:        app.ApplicantID,
			ApplicationID:      app.ApplicationID,
			JobID:              app.JobID,
			Source:             app.Source,
			ResumeOverallScore: eval.ResumeOverallScore,
			OccurredAt:         in.now(),
		})
	if err != nil {
		return err
	}
	return tx.EnqueueOutbox(ctx, msg)
}

// validateParsed 缺邮箱或名字的简历不入库
func validateParsed(p *types.ParsedResume) error {
	var missing []string
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(p.FirstName) == "" {
		missing = append(missing, "first_name")
	}
	if len(missing) > 0 {
		return NewValidationError("parse", ErrMissingRequiredField, strings.Join(missing, ", "))
	}
	return nil
}

func applicantFromParsed(p *types.ParsedResume, asg Assignment) *models.Applicant {
	return &models.Applicant{
		FirstName:        p.FirstName,
		LastName:         p.LastName,
		Email:            p.Email,
		Phone:            p.Phone,
		LinkedInURL:      p.LinkedInURL,
		ExperienceYears:  p.ExperienceYears,
		Education:        p.Education,
		CurrentCompany:   p.CurrentCompany,
		CurrentRole:      p.CurrentRole,
		Skills:           p.Skills,
		ExpectedCTC:      asg.ExpectedCTC,
		NoticePeriodDays: asg.NoticePeriodDays,
	}
}

func errorTypeOf(err error) tracing.ErrorType {
	switch KindOf(err) {
	case KindValidation:
		return tracing.ErrorTypeValidation
	case KindNotFound:
		return tracing.ErrorTypeNotFound
	case KindPersistence:
		return tracing.ErrorTypeDB
	case KindExternalModel:
		return tracing.ErrorTypeModel
	default:
		return tracing.ErrorTypeInternal
	}
}
