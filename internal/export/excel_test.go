package export

import (
	"bytes"
	"testing"
	"time"

	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"
	"hiring-portal/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteRankedApplications(t *testing.T) {
	now = func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	job := &models.Job{JobID: 7, Title: "Backend Engineer", Status: "open"}
	rows := []models.RankedApplication{
		{ApplicationID: 2, FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", ExperienceYears: 3,
			ResumeOverallScore: utils.Float64Ptr(0.8123), JDMatchingScore: utils.Float64Ptr(0.9), SkillsMatchingScore: utils.Float64Ptr(0.7),
			ApplicationStatus: "pending", Source: "bulk_upload"},
		{ApplicationID: 3, FirstName: "Max", Email: "max@example.com", ApplicationStatus: "pending", Source: "upload"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteRankedApplications(&buf, job, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetRanked}, f.GetSheetList())

	title, err := f.GetCellValue(SheetSummary, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Backend Engineer", title)
	generated, _ := f.GetCellValue(SheetSummary, "B4")
	assert.Equal(t, "2024-03-01 10:30:00", generated)
	scored, _ := f.GetCellValue(SheetSummary, "B6")
	assert.Equal(t, "1", scored)

	got, err := f.GetRows(SheetRanked)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Rank", got[0][0])
	assert.Equal(t, []string{"1", "Jane Doe", "jane@example.com", "3", "0.8123", "0.9", "0.7", "pending", "bulk_upload"}, got[1])
	assert.Equal(t, "Max", got[2][1])
	assert.Equal(t, "", got[2][4], "未打分的投递留空")
}

func TestWriteRankedApplicationsRequiresJob(t *testing.T) {
	assert.Error(t, WriteRankedApplications(&bytes.Buffer{}, nil, nil))
}

func TestWriteBulkSummary(t *testing.T) {
	errMsg := "invalid file type: only PDF files are allowed"
	summary := &types.BulkSummary{
		Message:    "Bulk upload completed with errors",
		JobID:      7,
		Total:      2,
		Successful: 1,
		Failed:     1,
		Results: []types.FileResult{
			{Filename: "a.pdf", ApplicantID: utils.Uint64Ptr(11), Name: "Jane Doe", Status: types.FileStatusSuccess, StatusCode: 201, OverallScore: utils.Float64Ptr(0.5)},
			{Filename: "b.docx", Status: types.FileStatusFailed, StatusCode: 400, Error: &errMsg},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBulkSummary(&buf, summary))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetBulk)
	require.NoError(t, err)
	// 5 行汇总 + 空行 + 表头 + 2 行结果
	require.Len(t, rows, 9)
	assert.Equal(t, []string{"Failed", "1"}, rows[3])
	assert.Equal(t, "File", rows[6][0])
	assert.Equal(t, []string{"a.pdf", "success", "201", "11", "Jane Doe", "0.5"}, rows[7][:6])
	assert.Equal(t, "b.docx", rows[8][0])
	assert.Equal(t, "400", rows[8][2])
	assert.Equal(t, errMsg, rows[8][6])
}
