// Package export 把排序后的投递和批量上传结果导出为 Excel
package export

import (
	"fmt"
	"io"
	"time"

	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary = "Summary"
	SheetRanked  = "Ranked Applicants"
	SheetBulk    = "Bulk Upload"

	// 综合分达到该值的行高亮
	HighlightScore = 0.75
)

var now = time.Now

var rankedHeaders = []string{"Rank", "Name", "Email", "Experience (years)", "Overall", "Semantic", "Keyword", "Status", "Source"}

// WriteRankedApplications 写出岗位的排名工作簿：汇总页和排名页，rows 需已按综合分降序
func WriteRankedApplications(w io.Writer, job *models.Job, rows []models.RankedApplication) error {
	if job == nil {
		return fmt.Errorf("岗位不能为空")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetRanked); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeJobSummary(f, st, job, rows); err != nil {
		return fmt.Errorf("生成汇总页失败: %w", err)
	}
	if err := writeRankedSheet(f, st, rows); err != nil {
		return fmt.Errorf("生成排名页失败: %w", err)
	}
	return f.Write(w)
}

// WriteBulkSummary 批量上传结果单页报表，行顺序与上传顺序一致
func WriteBulkSummary(w io.Writer, summary *types.BulkSummary) error {
	if summary == nil {
		return fmt.Errorf("批量结果不能为空")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetBulk); err != nil {
		return err
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}

	meta := [][2]any{
		{"Job ID", summary.JobID},
		{"Total", summary.Total},
		{"Successful", summary.Successful},
		{"Failed", summary.Failed},
		{"Message", summary.Message},
	}
	row := 1
	for _, kv := range meta {
		if err := setRow(f, SheetBulk, row, kv[0], kv[1]); err != nil {
			return err
		}
		_ = f.SetCellStyle(SheetBulk, cell("A", row), cell("A", row), st.label)
		row++
	}
	row++

	headers := []any{"File", "Status", "Status Code", "Applicant ID", "Name", "Overall", "Error"}
	if err := setRow(f, SheetBulk, row, headers...); err != nil {
		return err
	}
	_ = f.SetCellStyle(SheetBulk, cell("A", row), cell("G", row), st.header)
	row++

	for _, r := range summary.Results {
		values := []any{r.Filename, string(r.Status), r.StatusCode, optional(r.ApplicantID), r.Name, optional(r.OverallScore), optional(r.Error)}
		if err := setRow(f, SheetBulk, row, values...); err != nil {
			return err
		}
		if r.Status == types.FileStatusFailed {
			_ = f.SetCellStyle(SheetBulk, cell("A", row), cell("G", row), st.failed)
		}
		row++
	}

	_ = f.SetColWidth(SheetBulk, "A", "A", 32)
	_ = f.SetColWidth(SheetBulk, "E", "E", 24)
	_ = f.SetColWidth(SheetBulk, "G", "G", 60)
	return f.Write(w)
}

type styles struct {
	header, label, highlight, failed int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return st, err
	}
	st.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return st, err
	}
	st.highlight, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C6EFCE"}, Pattern: 1},
	})
	if err != nil {
		return st, err
	}
	st.failed, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"FFC7CE"}, Pattern: 1},
	})
	return st, err
}

func writeJobSummary(f *excelize.File, st styles, job *models.Job, rows []models.RankedApplication) error {
	scored, highlighted := 0, 0
	var best float64
	for _, r := range rows {
		if r.ResumeOverallScore == nil {
			continue
		}
		scored++
		if *r.ResumeOverallScore >= HighlightScore {
			highlighted++
		}
		if scored == 1 || *r.ResumeOverallScore > best {
			best = *r.ResumeOverallScore
		}
	}

	lines := [][2]any{
		{"Job ID", job.JobID},
		{"Job Title", job.Title},
		{"Status", job.Status},
		{"Generated", now().Format("2006-01-02 15:04:05")},
		{"Applications", len(rows)},
		{"Scored", scored},
		{fmt.Sprintf("Overall >= %.2f", HighlightScore), highlighted},
		{"Best Overall", best},
	}
	for i, kv := range lines {
		row := i + 1
		if err := setRow(f, SheetSummary, row, kv[0], kv[1]); err != nil {
			return err
		}
		if err := f.SetCellStyle(SheetSummary, cell("A", row), cell("A", row), st.label); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetSummary, "A", "A", 20)
	_ = f.SetColWidth(SheetSummary, "B", "B", 40)
	return nil
}

func writeRankedSheet(f *excelize.File, st styles, rows []models.RankedApplication) error {
	header := make([]any, len(rankedHeaders))
	for i, h := range rankedHeaders {
		header[i] = h
	}
	if err := setRow(f, SheetRanked, 1, header...); err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetRanked, "A1", "I1", st.header); err != nil {
		return err
	}

	for i, r := range rows {
		row := i + 2
		values := []any{
			i + 1,
			fullName(r.FirstName, r.LastName),
			r.Email,
			r.ExperienceYears,
			optional(r.ResumeOverallScore),
			optional(r.JDMatchingScore),
			optional(r.SkillsMatchingScore),
			r.ApplicationStatus,
			r.Source,
		}
		if err := setRow(f, SheetRanked, row, values...); err != nil {
			return err
		}
		if r.ResumeOverallScore != nil && *r.ResumeOverallScore >= HighlightScore {
			if err := f.SetCellStyle(SheetRanked, cell("E", row), cell("E", row), st.highlight); err != nil {
				return err
			}
		}
	}

	_ = f.SetColWidth(SheetRanked, "B", "C", 30)
	_ = f.SetColWidth(SheetRanked, "D", "I", 14)
	return f.SetPanes(SheetRanked, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func setRow(f *excelize.File, sheet string, row int, values ...any) error {
	return f.SetSheetRow(sheet, cell("A", row), &values)
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func fullName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}

// optional nil 指针写成空单元格
func optional[T any](p *T) any {
	if p == nil {
		return ""
	}
	return *p
}
