package processor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"hiring-portal/internal/types"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	bulkMessageOK     = "Bulk upload completed"
	bulkMessageFailed = "Bulk upload completed with errors"
)

// UploadFile 批量上传中的一个文件，Open 每次返回新的读取器
type UploadFile struct {
	Filename string
	Open     func() (io.ReadCloser, error)
}

// BatchContext 一批文件共用的岗位和指派信息
type BatchContext struct {
	JobID      uint64
	Source     string
	Assignment Assignment
}

// BulkIngestor 批量入库。每个文件独立事务，失败只记录在自己的结果里
type BulkIngestor struct {
	ingestor *Ingestor
	workers  int
	maxFiles int
	log      zerolog.Logger
}

// MaxFiles 单批允许的最大文件数，0 表示不限制
func (b *BulkIngestor) MaxFiles() int {
	return b.maxFiles
}

// IngestBatch 处理一批文件。results 与输入一一对应且顺序一致；
// ctx 取消后尚未处理的文件记为失败而不是跳过
func (b *BulkIngestor) IngestBatch(ctx context.Context, files []UploadFile, bc BatchContext) *types.BulkSummary {
	ctx, span := tracer.Start(ctx, "BulkIngestor.IngestBatch")
	defer span.End()

	start := time.Now()
	results := make([]types.FileResult, len(files))

	workers := b.workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			results[i] = b.ingestOne(ctx, f, bc)
			return nil
		})
	}
	_ = g.Wait()

	summary := summarize(bc.JobID, results)
	b.log.Info().
		Uint64("job_id", bc.JobID).
		Int("total", summary.Total).
		Int("successful", summary.Successful).
		Int("failed", summary.Failed).
		Int("workers", workers).
		Dur("elapsed", time.Since(start)).
		Msg("批量上传处理完成")
	return summary
}

func (b *BulkIngestor) ingestOne(ctx context.Context, f UploadFile, bc BatchContext) (res types.FileResult) {
	res = types.FileResult{Filename: f.Filename}
	// 单个文件 panic 只记在它自己的结果里
	defer func() {
		if rec := recover(); rec != nil {
			b.log.Error().Interface("panic", rec).Str("filename", f.Filename).Msg("处理文件时发生 panic")
			res = failedResult(types.FileResult{Filename: f.Filename}, fmt.Errorf("处理文件时发生内部错误: %v", rec))
		}
	}()

	if err := ctx.Err(); err != nil {
		return failedResult(res, err)
	}
	if f.Open == nil {
		return failedResult(res, NewValidationError("open", ErrEmptyContent, ""))
	}
	rc, err := f.Open()
	if err != nil {
		return failedResult(res, fmt.Errorf("读取上传文件失败: %w", err))
	}
	defer rc.Close()

	out, err := b.ingestor.Ingest(ctx, IngestRequest{
		JobID:      bc.JobID,
		Source:     bc.Source,
		Filename:   f.Filename,
		Content:    rc,
		Assignment: bc.Assignment,
	})
	if err != nil {
		return failedResult(res, err)
	}

	id := out.ApplicantID
	score := out.Evaluation.ResumeOverallScore
	res.ApplicantID = &id
	res.Name = out.Parsed.FullName()
	res.Status = types.FileStatusSuccess
	res.StatusCode = http.StatusCreated
	res.OverallScore = &score
	return res
}

func failedResult(res types.FileResult, err error) types.FileResult {
	msg := err.Error()
	res.Status = types.FileStatusFailed
	res.StatusCode = StatusCodeOf(err)
	res.Error = &msg
	return res
}

func summarize(jobID uint64, results []types.FileResult) *types.BulkSummary {
	s := &types.BulkSummary{
		JobID:   jobID,
		Total:   len(results),
		Results: results,
		Errors:  []string{},
	}
	for _, r := range results {
		if r.Status == types.FileStatusSuccess {
			s.Successful++
			continue
		}
		s.Failed++
		if r.Error != nil {
			s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", r.Filename, *r.Error))
		}
	}
	s.Message = bulkMessageOK
	if s.Failed > 0 {
		s.Message = bulkMessageFailed
	}
	return s
}
