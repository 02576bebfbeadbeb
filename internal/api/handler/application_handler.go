package handler

import (
	"bytes"
	"context"
	"fmt"

	"hiring-portal/internal/export"
	"hiring-portal/internal/processor"
	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// RankingStore 岗位下的投递排名
type RankingStore interface {
	GetJob(ctx context.Context, id uint64) (*models.Job, error)
	ListApplicationsByJob(ctx context.Context, jobID uint64) ([]models.RankedApplication, error)
}

// Reevaluator 对已有投递重新打分
type Reevaluator interface {
	Reevaluate(ctx context.Context, applicationID uint64) (*types.MatchResult, error)
}

var _ Reevaluator = (*processor.Matcher)(nil)

// ApplicationHandler 投递排名、导出和重新评估
type ApplicationHandler struct {
	ranking   RankingStore
	evaluator Reevaluator
}

func NewApplicationHandler(ranking RankingStore, evaluator Reevaluator) *ApplicationHandler {
	return &ApplicationHandler{ranking: ranking, evaluator: evaluator}
}

// Ranked GET /api/v1/jobs/:id/applications
func (h *ApplicationHandler) Ranked(ctx context.Context, c *app.RequestContext) {
	job, rows, err := h.load(ctx, c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]any{
		"job_id":       job.JobID,
		"title":        job.Title,
		"count":        len(rows),
		"applications": rows,
	})
}

// Export GET /api/v1/jobs/:id/applications/export
func (h *ApplicationHandler) Export(ctx context.Context, c *app.RequestContext) {
	job, rows, err := h.load(ctx, c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteRankedApplications(&buf, job, rows); err != nil {
		writeError(ctx, c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="job_%d_applications.xlsx"`, job.JobID))
	c.Data(consts.StatusOK, xlsxContentType, buf.Bytes())
}

// Evaluate POST /api/v1/applications/:id/evaluate
func (h *ApplicationHandler) Evaluate(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	res, err := h.evaluator.Reevaluate(ctx, id)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]any{
		"application_id":    id,
		"evaluation_result": res,
	})
}

func (h *ApplicationHandler) load(ctx context.Context, c *app.RequestContext) (*models.Job, []models.RankedApplication, error) {
	id, err := pathID(c, "id")
	if err != nil {
		return nil, nil, err
	}
	job, err := h.ranking.GetJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rows, err := h.ranking.ListApplicationsByJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return job, rows, nil
}
