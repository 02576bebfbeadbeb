package types

import "strings"

// ParsedResume 从简历文本中启发式解析出的字段，仅在单次请求内存在
type ParsedResume struct {
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	Email           string  `json:"email"`
	Phone           string  `json:"phone"`        // 最后 10 位数字，或空
	LinkedInURL     string  `json:"linkedin_url"` // https:// 绝对地址，或空
	ExperienceYears float64 `json:"experience_years"`
	Education       string  `json:"education"`
	CurrentCompany  string  `json:"current_company"`
	CurrentRole     string  `json:"current_role"`
	Skills          string  `json:"skills"` // ", " 连接
}

// FullName 名和姓拼接，用于批量结果展示
func (p *ParsedResume) FullName() string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// JobProfile 打分需要的岗位信息，由岗位存储提供，流水线只读
type JobProfile struct {
	JobID          uint64    `json:"job_id"`
	Title          string    `json:"title"`
	JD             string    `json:"jd"`
	HighPriority   []string  `json:"high_priority"`
	NormalPriority []string  `json:"normal_priority"`
	JDVector       []float64 `json:"-"` // 缓存的 JD 向量，可能为空
}

// MatchResult 一次简历与岗位的匹配结果
type MatchResult struct {
	SemanticSimilarity float64 `json:"semantic_similarity"`
	KeywordMatchScore  float64 `json:"keyword_match_score"`
	ResumeOverallScore float64 `json:"resume_overall_score"`
	ResumeExcerpt      string  `json:"resume_excerpt"`
	JDExcerpt          string  `json:"jd_excerpt"`
}

// IngestResult 单份简历入库成功后的返回
type IngestResult struct {
	ApplicantID      uint64        `json:"applicant_id"`
	ApplicationID    uint64        `json:"application_id"`
	ResumeURL        string        `json:"resume_url"`
	ExpectedCTC      *float64      `json:"expected_ctc"`
	NoticePeriodDays *int          `json:"notice_period_days"`
	AssignedHR       string        `json:"assigned_hr"`
	AssignedManager  string        `json:"assigned_manager"`
	Comments         string        `json:"comments,omitempty"`
	Parsed           *ParsedResume `json:"parsed"`
	Evaluation       *MatchResult  `json:"evaluation_result"`
}

// FileStatus 批量上传中单个文件的结果状态
type FileStatus string

const (
	FileStatusSuccess FileStatus = "success"
	FileStatusFailed  FileStatus = "failed"
)

// FileResult 批量上传中单个文件的结果
type FileResult struct {
	Filename    string     `json:"filename"`
	ApplicantID *uint64    `json:"applicant_id"`
	Name        string     `json:"name"`
	Status      FileStatus `json:"status"`
	StatusCode  int        `json:"status_code"`
	Error       *string    `json:"error"`
	// 成功时的匹配分，便于前端直接展示
	OverallScore *float64 `json:"resume_overall_score,omitempty"`
}

// BulkSummary 批量上传汇总，results 与输入文件一一对应且顺序一致
type BulkSummary struct {
	Message    string       `json:"message"`
	JobID      uint64       `json:"job_id"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Results    []FileResult `json:"results"`
	Errors     []string     `json:"errors"`
}

// Page 分页参数
type Page struct {
	Page int `json:"page"`
	Size int `json:"size"`
}

// Offset 计算 SQL offset
func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Size
}

// PaginatedResponse 通用分页响应
type PaginatedResponse[T any] struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalCount int64 `json:"total_count"`
	Items      []T   `json:"items"`
}
