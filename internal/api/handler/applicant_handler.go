package handler

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"hiring-portal/internal/export"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/processor"
	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"
	"hiring-portal/pkg/utils"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Ingester 单份简历入库
type Ingester interface {
	Ingest(ctx context.Context, req processor.IngestRequest) (*types.IngestResult, error)
}

// BatchIngester 批量入库
type BatchIngester interface {
	IngestBatch(ctx context.Context, files []processor.UploadFile, bc processor.BatchContext) *types.BulkSummary
	MaxFiles() int
}

// ApplicantStore 候选人查询
type ApplicantStore interface {
	ListApplicants(ctx context.Context, page types.Page) (*types.PaginatedResponse[models.Applicant], error)
	GetApplicant(ctx context.Context, id uint64) (*models.Applicant, error)
}

var (
	_ Ingester      = (*processor.Ingestor)(nil)
	_ BatchIngester = (*processor.BulkIngestor)(nil)
)

// ApplicantHandler 简历上传和候选人查询
type ApplicantHandler struct {
	applicants ApplicantStore
	ingester   Ingester
	bulk       BatchIngester
	log        zerolog.Logger
}

func NewApplicantHandler(applicants ApplicantStore, ingester Ingester, bulk BatchIngester) *ApplicantHandler {
	return &ApplicantHandler{
		applicants: applicants,
		ingester:   ingester,
		bulk:       bulk,
		log:        logger.Component("applicant_handler"),
	}
}

// Upload POST /api/v1/applicants/upload，文件字段 resume 或 file
func (h *ApplicantHandler) Upload(ctx context.Context, c *app.RequestContext) {
	fh, err := c.FormFile("resume")
	if err != nil {
		fh, err = c.FormFile("file")
	}
	if err != nil {
		writeError(ctx, c, badRequest("缺少简历文件"))
		return
	}
	bc, err := batchContextFromForm(c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}

	f, err := fh.Open()
	if err != nil {
		writeError(ctx, c, fmt.Errorf("打开上传文件失败: %w", err))
		return
	}
	defer f.Close()

	res, err := h.ingester.Ingest(ctx, processor.IngestRequest{
		JobID:      bc.JobID,
		Source:     bc.Source,
		Filename:   fh.Filename,
		Content:    f,
		Assignment: bc.Assignment,
	})
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusCreated, res)
}

// BulkUpload POST /api/v1/applicants/bulk-upload，?format=xlsx 时返回 Excel 报表
func (h *ApplicantHandler) BulkUpload(ctx context.Context, c *app.RequestContext) {
	form, err := c.MultipartForm()
	if err != nil {
		writeError(ctx, c, badRequest("解析 multipart 表单失败: %v", err))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		writeError(ctx, c, badRequest("至少上传一个文件"))
		return
	}
	if limit := h.bulk.MaxFiles(); limit > 0 && len(headers) > limit {
		writeError(ctx, c, badRequest("单次最多上传 %d 个文件，实际 %d 个", limit, len(headers)))
		return
	}
	bc, err := batchContextFromForm(c)
	if err != nil {
		writeError(ctx, c, err)
		return
	}

	files := make([]processor.UploadFile, len(headers))
	for i, fh := range headers {
		files[i] = uploadFile(fh)
	}
	summary := h.bulk.IngestBatch(ctx, files, bc)
	h.log.Info().
		Uint64("job_id", bc.JobID).
		Int("total", summary.Total).
		Int("failed", summary.Failed).
		Msg("批量上传完成")

	if strings.EqualFold(c.Query("format"), "xlsx") {
		var buf bytes.Buffer
		if err := export.WriteBulkSummary(&buf, summary); err != nil {
			writeError(ctx, c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="bulk_upload_job_%d.xlsx"`, bc.JobID))
		c.Data(consts.StatusOK, xlsxContentType, buf.Bytes())
		return
	}
	c.JSON(consts.StatusOK, summary)
}

// List GET /api/v1/applicants?page=&size=
func (h *ApplicantHandler) List(ctx context.Context, c *app.RequestContext) {
	page := types.Page{
		Page: queryInt(c, "page", 1, 0),
		Size: queryInt(c, "size", 20, 100),
	}
	res, err := h.applicants.ListApplicants(ctx, page)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// Get GET /api/v1/applicants/:id
func (h *ApplicantHandler) Get(ctx context.Context, c *app.RequestContext) {
	id, err := pathID(c, "id")
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	a, err := h.applicants.GetApplicant(ctx, id)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, a)
}

// batchContextFromForm 读取 job_id、来源和指派信息，数值字段留空时为 nil
func batchContextFromForm(c *app.RequestContext) (processor.BatchContext, error) {
	var bc processor.BatchContext
	jobID, err := strconv.ParseUint(strings.TrimSpace(string(c.FormValue("job_id"))), 10, 64)
	if err != nil || jobID == 0 {
		return bc, badRequest("job_id 必须是正整数")
	}
	ctc, err := utils.ParseOptionalFloat(string(c.FormValue("expected_ctc")))
	if err != nil {
		return bc, badRequest("expected_ctc: %v", err)
	}
	notice, err := utils.ParseOptionalInt(string(c.FormValue("notice_period_days")))
	if err != nil {
		return bc, badRequest("notice_period_days: %v", err)
	}

	bc.JobID = jobID
	bc.Source = strings.TrimSpace(string(c.FormValue("source")))
	bc.Assignment = processor.Assignment{
		ApplicationStatus: strings.TrimSpace(string(c.FormValue("application_status"))),
		AssignedHR:        strings.TrimSpace(string(c.FormValue("assigned_hr"))),
		AssignedManager:   strings.TrimSpace(string(c.FormValue("assigned_manager"))),
		Comments:          string(c.FormValue("comments")),
		ExpectedCTC:       ctc,
		NoticePeriodDays:  notice,
	}
	return bc, nil
}

func uploadFile(fh *multipart.FileHeader) processor.UploadFile {
	return processor.UploadFile{
		Filename: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
