package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"hiring-portal/internal/constants"
	"hiring-portal/internal/storage/models"

	"gorm.io/datatypes"
	"gorm.io/gorm/clause"
)

// CreateJob 创建岗位，posted_date 缺省为今天，status 缺省为 open。
// 配置了事件路由时同事务写入 job.created。
func (m *MySQL) CreateJob(ctx context.Context, job *models.Job) error {
	if job.PostedDate == nil {
		today := datatypes.Date(time.Now())
		job.PostedDate = &today
	}
	if job.Status == "" {
		job.Status = constants.JobStatusOpen
	}

	return m.transaction(ctx, func(tx *MySQL) error {
		if err := tx.db.Create(job).Error; err != nil {
			if isDuplicateKey(err) {
				return fmt.Errorf("岗位编码 %q 已存在: %w", job.Code(), ErrDuplicate)
			}
			return fmt.Errorf("创建岗位失败: %w", err)
		}
		return tx.enqueueJobEvent(ctx, job, constants.EventJobCreated)
	})
}

// GetJob 按 ID 查询岗位
func (m *MySQL) GetJob(ctx context.Context, id uint64) (*models.Job, error) {
	var job models.Job
	if err := m.db.WithContext(ctx).First(&job, "job_id = ?", id).Error; err != nil {
		return nil, notFound(err, "查询岗位 %d", id)
	}
	return &job, nil
}

// ListActiveJobs 在招岗位，按发布日期倒序
func (m *MySQL) ListActiveJobs(ctx context.Context) ([]models.Job, error) {
	jobs := make([]models.Job, 0)
	err := m.db.WithContext(ctx).
		Where("status = ?", constants.JobStatusOpen).
		Order("posted_date DESC, job_id DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("查询在招岗位失败: %w", err)
	}
	return jobs, nil
}

// UpdateJobStatus 修改岗位状态并写入 job.updated
func (m *MySQL) UpdateJobStatus(ctx context.Context, id uint64, status string) (*models.Job, error) {
	var job models.Job
	err := m.transaction(ctx, func(tx *MySQL) error {
		if err := tx.db.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&job, "job_id = ?", id).Error; err != nil {
			return notFound(err, "查询岗位 %d", id)
		}
		if err := tx.db.Model(&job).Update("status", status).Error; err != nil {
			return fmt.Errorf("更新岗位 %d 状态失败: %w", id, err)
		}
		job.Status = status
		return tx.enqueueJobEvent(ctx, &job, constants.EventJobUpdated)
	})
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (m *MySQL) enqueueJobEvent(ctx context.Context, job *models.Job, eventType string) error {
	if m.events.Exchange == "" {
		return nil
	}
	msg, err := models.NewOutboxMessage(
		strconv.FormatUint(job.JobID, 10),
		eventType,
		m.events.Exchange,
		m.events.JobRoutingKey,
		JobChangedEvent{
			JobID:      job.JobID,
			EventType:  eventType,
			Status:     job.Status,
			OccurredAt: time.Now(),
		},
	)
	if err != nil {
		return err
	}
	return m.EnqueueOutbox(ctx, msg)
}

// CreateJobRequest 经理提交招聘需求
func (m *MySQL) CreateJobRequest(ctx context.Context, req *models.JobRequest) error {
	req.Status = constants.JobRequestPending
	if err := m.db.WithContext(ctx).Create(req).Error; err != nil {
		return fmt.Errorf("创建招聘需求失败: %w", err)
	}
	return nil
}

// ListJobRequests 按状态过滤，status 为空返回全部
func (m *MySQL) ListJobRequests(ctx context.Context, status string) ([]models.JobRequest, error) {
	reqs := make([]models.JobRequest, 0)
	db := m.db.WithContext(ctx).Order("created_at DESC, request_id DESC")
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("查询招聘需求失败: %w", err)
	}
	return reqs, nil
}

// ErrRequestDecided 需求已审批过，不能重复审批
var ErrRequestDecided = errors.New("job request already decided")

// DecideJobRequest 审批招聘需求。批准时在同一事务内生成岗位。
func (m *MySQL) DecideJobRequest(ctx context.Context, id uint64, approve bool, decidedBy string) (*models.JobRequest, error) {
	var req models.JobRequest
	err := m.transaction(ctx, func(tx *MySQL) error {
		if err := tx.db.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, "request_id = ?", id).Error; err != nil {
			return notFound(err, "查询招聘需求 %d", id)
		}
		if req.Status != constants.JobRequestPending {
			return fmt.Errorf("招聘需求 %d 当前状态 %s: %w", id, req.Status, ErrRequestDecided)
		}

		now := time.Now()
		updates := map[string]any{
			"decided_by": decidedBy,
			"decided_at": now,
		}

		if approve {
			job, err := tx.jobFromRequest(ctx, &req, decidedBy, now)
			if err != nil {
				return err
			}
			updates["status"] = constants.JobRequestApproved
			updates["job_id"] = job.JobID
			req.JobID = &job.JobID
			req.Status = constants.JobRequestApproved
		} else {
			updates["status"] = constants.JobRequestRejected
			req.Status = constants.JobRequestRejected
		}

		req.DecidedBy = decidedBy
		req.DecidedAt = &now
		return tx.db.Model(&models.JobRequest{}).Where("request_id = ?", id).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (m *MySQL) jobFromRequest(ctx context.Context, req *models.JobRequest, approver string, at time.Time) (*models.Job, error) {
	day := datatypes.Date(at)
	code := fmt.Sprintf("REQ-%d", req.RequestID)
	job := &models.Job{
		JobCode:      &code,
		CreatedBy:    req.RequestedBy,
		Title:        req.Title,
		Department:   req.Department,
		Location:     req.Location,
		JD:           req.JD,
		KeySkills:    req.KeySkills,
		Openings:     req.Openings,
		PostedDate:   &day,
		Status:       constants.JobStatusOpen,
		ApprovedBy:   approver,
		ApprovedDate: &day,
	}
	if job.Openings <= 0 {
		job.Openings = 1
	}
	if err := m.db.Create(job).Error; err != nil {
		return nil, fmt.Errorf("根据招聘需求 %d 创建岗位失败: %w", req.RequestID, err)
	}
	if err := m.enqueueJobEvent(ctx, job, constants.EventJobCreated); err != nil {
		return nil, err
	}
	return job, nil
}
