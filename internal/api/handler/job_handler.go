package handler

import (
	"context"
	"strings"

	"hiring-portal/internal/constants"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/storage/models"
	"hiring-portal/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

// JobStore 岗位和招聘需求的存储
type JobStore interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uint64) (*models.Job, error)
	ListActiveJobs(ctx context.Context) ([]models.Job, error)
	UpdateJobStatus(ctx context.Context, id uint64, status string) (*models.Job, error)
	CreateJobRequest(ctx context.Context, req *models.JobRequest) error
	ListJobRequests(ctx context.Context, status string) ([]models.JobRequest, error)
	DecideJobRequest(ctx context.Context, id uint64, approve bool, decidedBy string) (*models.JobRequest, error)
}

// ProfileInvalidator 岗位变更后清理画像缓存
type ProfileInvalidator interface {
	Invalidate(ctx context.Context, jobID uint64) error
}

// JobHandler 岗位和招聘需求接口
type JobHandler struct {
	jobs     JobStore
	profiles ProfileInvalidator
	log      zerolog.Logger
}

// NewJobHandler profiles 可以为 nil
func NewJobHandler(jobs JobStore, profiles ProfileInvalidator) *JobHandler {
	return &JobHandler{jobs: jobs, profiles: profiles, log: logger.Component("job_handler")}
}

type createJobRequest struct {
	CreatedBy          string `json:"created_by"`
	Title              string `json:"title"`
	JobCode            string `json:"job_code"`
	Department         string `json:"department"`
	Location           string `json:"location"`
	EmploymentType     string `json:"employment_type"`
	ExperienceRequired string `json:"experience_required"`
	SalaryRange        string `json:"salary_range"`
	JD                 string `json:"jd"`
	KeySkills          string `json:"key_skills"`
	AdditionalSkills   string `json:"additional_skills"`
	Openings           int    `json:"openings"`
	Status             string `json:"status"`
}

// CreateJob POST /api/v1/jobs
func (h *JobHandler) CreateJob(ctx context.Context, c *app.RequestContext) {
	var req createJobRequest
	if err := decodeJSON(c, &req); err != nil {
		writeError(ctx, c, err)
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.JD) == "" {
		writeError(ctx, c, badRequest("title 和 jd 不能为空"))
		return
	}
	if req.Status != "" && !validJobStatus(req.Status) {
		writeError(ctx, c, badRequest("无效的岗位状态 %q", req.Status))
		return
	}
	if req.Openings <= 0 {
		req.Openings = 1
	}

	job := &models.Job{
		CreatedBy:          req.CreatedBy,
		Title:              strings.TrimSpace(req.Title),
		JobCode:            utils.StringPtr(strings.TrimSpace(req.JobCode)),
		Department:         req.Department,
		Location:           req.Location,
		EmploymentType:     req.EmploymentType,
		ExperienceRequired: req.ExperienceRequired,
		SalaryRange:        req.SalaryRange,
		JD:                 req.JD,
		KeySkills:          req.KeySkills,
		AdditionalSkills:   req.AdditionalSkills,
		Openings:           req.Openings,
		Status:             req.Status,
	}
	if err := h.jobs.CreateJob(ctx, job); err != nil {
		writeError(ctx, c, err)
		return
	}
	h.log.Info().Uint64("job_id", job.JobID).Str("title", job.Title).Msg("岗位已创建")
	c.JSON(consts.StatusCreated, job)
}

// ListJobs GET /api/v1/jobs
func (h *JobHandler) ListJobs(ctx context.Context, c *app.RequestContext) {
	jobs, err := h.jobs.ListActiveJobs(ctx)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]any{"count": len(jobs), "jobs": jobs})
}

// GetJob GET /api/v1/jobs/:id
func (h *JobHandler) GetJob(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	job, err := h.jobs.GetJob(ctx, id)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, job)
}

// UpdateJobStatus PATCH /api/v1/jobs/:id/status
func (h *JobHandler) UpdateJobStatus(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(c, &req); err != nil {
		writeError(ctx, c, err)
		return
	}
	if !validJobStatus(req.Status) {
		writeError(ctx, c, badRequest("无效的岗位状态 %q", req.Status))
		return
	}

	job, err := h.jobs.UpdateJobStatus(ctx, id, req.Status)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	// 事件投递是异步的，本实例先清掉缓存
	if h.profiles != nil {
		if err := h.profiles.Invalidate(ctx, id); err != nil {
			h.log.Warn().Err(err).Uint64("job_id", id).Msg("清理岗位画像缓存失败")
		}
	}
	c.JSON(consts.StatusOK, job)
}

type createJobRequestBody struct {
	RequestedBy   string `json:"requested_by"`
	Title         string `json:"title"`
	Department    string `json:"department"`
	Location      string `json:"location"`
	Openings      int    `json:"openings"`
	JD            string `json:"jd"`
	KeySkills     string `json:"key_skills"`
	Justification string `json:"justification"`
}

// CreateJobRequest POST /api/v1/job-requests
func (h *JobHandler) CreateJobRequest(ctx context.Context, c *app.RequestContext) {
	var body createJobRequestBody
	if err := decodeJSON(c, &body); err != nil {
		writeError(ctx, c, err)
		return
	}
	if body.RequestedBy == "" || body.Title == "" {
		writeError(ctx, c, badRequest("requested_by 和 title 不能为空"))
		return
	}
	if body.Openings <= 0 {
		body.Openings = 1
	}
	req := &models.JobRequest{
		RequestedBy:   body.RequestedBy,
		Title:         body.Title,
		Department:    body.Department,
		Location:      body.Location,
		Openings:      body.Openings,
		JD:            body.JD,
		KeySkills:     body.KeySkills,
		Justification: body.Justification,
		Status:        constants.JobRequestPending,
	}
	if err := h.jobs.CreateJobRequest(ctx, req); err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, req)
}

// ListJobRequests GET /api/v1/job-requests?status=
func (h *JobHandler) ListJobRequests(ctx context.Context, c *app.RequestContext) {
	reqs, err := h.jobs.ListJobRequests(ctx, c.Query("status"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]any{"count": len(reqs), "requests": reqs})
}

// DecideJobRequest POST /api/v1/job-requests/:id/decision
func (h *JobHandler) DecideJobRequest(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	var body struct {
		Approve   *bool  `json:"approve"`
		DecidedBy string `json:"decided_by"`
	}
	if err := decodeJSON(c, &body); err != nil {
		writeError(ctx, c, err)
		return
	}
	if body.Approve == nil || body.DecidedBy == "" {
		writeError(ctx, c, badRequest("approve 和 decided_by 不能为空"))
		return
	}

	req, err := h.jobs.DecideJobRequest(ctx, id, *body.Approve, body.DecidedBy)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	h.log.Info().
		Uint64("request_id", id).
		Str("status", req.Status).
		Str("decided_by", body.DecidedBy).
		Msg("招聘需求已审批")
	c.JSON(consts.StatusOK, req)
}

func validJobStatus(s string) bool {
	switch s {
	case constants.JobStatusOpen, constants.JobStatusOnHold, constants.JobStatusClosed:
		return true
	}
	return false
}
