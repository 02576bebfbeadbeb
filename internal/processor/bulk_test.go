package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"hiring-portal/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadOf(name, content string) UploadFile {
	return UploadFile{
		Filename: name,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func resumeFor(first, last string) string {
	return fmt.Sprintf("%s %s\n%s.%s@example.com\nSkills: Go, SQL\n", first, last, strings.ToLower(first), strings.ToLower(last))
}

func TestIngestBatchIsolatesFailures(t *testing.T) {
	env := newTestEnv(t)
	files := []UploadFile{
		uploadOf("jane.pdf", resumeFor("Jane", "Doe")),
		uploadOf("john.docx", resumeFor("John", "Roe")),
		uploadOf("mary.pdf", resumeFor("Mary", "Major")),
	}

	summary := env.proc.Bulk.IngestBatch(context.Background(), files, BatchContext{JobID: 7})

	assert.Equal(t, "Bulk upload completed with errors", summary.Message)
	assert.Equal(t, uint64(7), summary.JobID)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 3)

	for i, want := range []string{"jane.pdf", "john.docx", "mary.pdf"} {
		assert.Equal(t, want, summary.Results[i].Filename, "结果顺序与输入一致")
	}

	ok := summary.Results[0]
	assert.Equal(t, types.FileStatusSuccess, ok.Status)
	assert.Equal(t, http.StatusCreated, ok.StatusCode)
	require.NotNil(t, ok.ApplicantID)
	assert.Equal(t, "Jane Doe", ok.Name)
	assert.Nil(t, ok.Error)
	assert.NotNil(t, ok.OverallScore)

	bad := summary.Results[1]
	assert.Equal(t, types.FileStatusFailed, bad.Status)
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
	assert.Nil(t, bad.ApplicantID)
	require.NotNil(t, bad.Error)
	assert.Contains(t, *bad.Error, "invalid type")

	assert.Equal(t, types.FileStatusSuccess, summary.Results[2].Status)
	require.Len(t, summary.Errors, 1)
	assert.True(t, strings.HasPrefix(summary.Errors[0], "john.docx: invalid type"), summary.Errors[0])

	applicants, applications := env.repo.counts()
	assert.Equal(t, 2, applicants)
	assert.Equal(t, 2, applications)
}

func TestIngestBatchRecoversPanickingFile(t *testing.T) {
	env := newTestEnv(t)
	files := []UploadFile{
		uploadOf("jane.pdf", resumeFor("Jane", "Doe")),
		{Filename: "boom.pdf", Open: func() (io.ReadCloser, error) { panic("reader exploded") }},
		uploadOf("mary.pdf", resumeFor("Mary", "Major")),
	}

	var summary *types.BulkSummary
	require.NotPanics(t, func() {
		summary = env.proc.Bulk.IngestBatch(context.Background(), files, BatchContext{JobID: 7})
	})

	assert.Equal(t, 2, summary.Successful)
	assert.Equal(t, 1, summary.Failed)
	bad := summary.Results[1]
	assert.Equal(t, "boom.pdf", bad.Filename)
	assert.Equal(t, types.FileStatusFailed, bad.Status)
	assert.Equal(t, http.StatusInternalServerError, bad.StatusCode)
	require.NotNil(t, bad.Error)
	assert.Contains(t, *bad.Error, "reader exploded")
	assert.Equal(t, types.FileStatusSuccess, summary.Results[2].Status)
}

func TestIngestBatchAllSuccessful(t *testing.T) {
	env := newTestEnv(t)
	summary := env.proc.Bulk.IngestBatch(context.Background(),
		[]UploadFile{uploadOf("a.pdf", resumeFor("Ann", "Lee"))}, BatchContext{JobID: 7})

	assert.Equal(t, "Bulk upload completed", summary.Message)
	assert.Equal(t, 1, summary.Successful)
	assert.Empty(t, summary.Errors)
	assert.NotNil(t, summary.Errors, "errors 序列化为 [] 而不是 null")
}

func TestIngestBatchMixedErrorKinds(t *testing.T) {
	env := newTestEnv(t)
	files := []UploadFile{
		uploadOf("empty.pdf", "   "),
		{Filename: "broken.pdf", Open: func() (io.ReadCloser, error) { return nil, errors.New("multipart: part closed") }},
		uploadOf("nomail.pdf", "Jane Doe\n"),
	}
	summary := env.proc.Bulk.IngestBatch(context.Background(), files, BatchContext{JobID: 7})

	assert.Equal(t, 3, summary.Failed)
	assert.Equal(t, http.StatusBadRequest, summary.Results[0].StatusCode)
	assert.Equal(t, "empty content", *summary.Results[0].Error)
	assert.Equal(t, http.StatusInternalServerError, summary.Results[1].StatusCode)
	assert.Equal(t, http.StatusBadRequest, summary.Results[2].StatusCode)
	assert.Contains(t, *summary.Results[2].Error, "missing required field")
}

func TestIngestBatchCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	files := []UploadFile{uploadOf("a.pdf", resumeFor("Ann", "Lee")), uploadOf("b.pdf", resumeFor("Bob", "Ray"))}
	summary := env.proc.Bulk.IngestBatch(ctx, files, BatchContext{JobID: 7})

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.Failed)
	require.Len(t, summary.Results, 2)
	for _, r := range summary.Results {
		assert.Equal(t, types.FileStatusFailed, r.Status)
		assert.Equal(t, http.StatusInternalServerError, r.StatusCode)
		assert.Equal(t, context.Canceled.Error(), *r.Error)
	}
}

func TestIngestBatchConcurrentKeepsOrder(t *testing.T) {
	env := newTestEnv(t, WithsetBulkWorkers(4))
	names := []string{"Ann", "Bob", "Cat", "Dan", "Eve", "Fay", "Gus", "Hal"}

	files := make([]UploadFile, 0, len(names))
	for _, n := range names {
		files = append(files, uploadOf(strings.ToLower(n)+".pdf", resumeFor(n, "Smith")))
	}
	summary := env.proc.Bulk.IngestBatch(context.Background(), files, BatchContext{JobID: 7})

	require.Equal(t, len(names), summary.Successful)
	seen := make(map[uint64]bool)
	for i, n := range names {
		r := summary.Results[i]
		assert.Equal(t, strings.ToLower(n)+".pdf", r.Filename)
		assert.Equal(t, n+" Smith", r.Name)
		require.NotNil(t, r.ApplicantID)
		assert.False(t, seen[*r.ApplicantID], "applicant_id 不应重复")
		seen[*r.ApplicantID] = true
	}
	assert.Len(t, env.storedFiles(t), len(names))
	assert.Empty(t, env.tempFiles(t))
}

func TestIngestBatchSharedAssignment(t *testing.T) {
	env := newTestEnv(t)
	bc := BatchContext{JobID: 7, Source: "agency", Assignment: Assignment{AssignedManager: "alice"}}
	summary := env.proc.Bulk.IngestBatch(context.Background(),
		[]UploadFile{uploadOf("a.pdf", resumeFor("Ann", "Lee"))}, bc)
	require.Equal(t, 1, summary.Successful)

	app, err := env.repo.GetApplication(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "agency", app.Source)
	assert.Equal(t, "alice", app.AssignedManager)
	assert.Equal(t, "Unassigned", app.AssignedHR)
}
