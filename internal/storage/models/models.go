package models

import (
	"time"

	"gorm.io/datatypes"
)

// User 内部用户(HR / 经理 / 管理层)
type User struct {
	UserID       uint64    `gorm:"primaryKey;autoIncrement" json:"user_id"`
	EmpID        string    `gorm:"type:varchar(50);uniqueIndex:idx_users_emp_id;not null" json:"emp_id"`
	Username     string    `gorm:"type:varchar(100);uniqueIndex:idx_users_username;not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(255);not null" json:"-"`
	Email        string    `gorm:"type:varchar(255);uniqueIndex:idx_users_email;not null" json:"email"`
	Role         string    `gorm:"type:varchar(20);not null;index" json:"role"` // HR | Manager | Management
	FullName     string    `gorm:"type:varchar(255)" json:"full_name"`
	Department   string    `gorm:"type:varchar(255)" json:"department"`
	Designation  string    `gorm:"type:varchar(255)" json:"designation"`
	Status       string    `gorm:"type:varchar(20);default:'active'" json:"status"`
	CreatedAt    time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt    time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Job 岗位信息表。key_skills / additional_skills 为逗号分隔的关键词
type Job struct {
	JobID              uint64          `gorm:"primaryKey;autoIncrement" json:"job_id"`
	CreatedBy          string          `gorm:"type:varchar(100)" json:"created_by"`
	Title              string          `gorm:"type:varchar(255);not null" json:"title"`
	JobCode            *string         `gorm:"type:varchar(50);uniqueIndex:idx_jobs_job_code" json:"job_code"` // 可空，唯一
	Department         string          `gorm:"type:varchar(255)" json:"department"`
	Location           string          `gorm:"type:varchar(255)" json:"location"`
	EmploymentType     string          `gorm:"type:varchar(50)" json:"employment_type"`
	ExperienceRequired string          `gorm:"type:varchar(50)" json:"experience_required"`
	SalaryRange        string          `gorm:"type:varchar(100)" json:"salary_range"`
	JD                 string          `gorm:"column:jd;type:text;not null" json:"jd"`
	KeySkills          string          `gorm:"type:text" json:"key_skills"`
	AdditionalSkills   string          `gorm:"type:text" json:"additional_skills"`
	Openings           int             `gorm:"default:1" json:"openings"`
	PostedDate         *datatypes.Date `gorm:"type:date;index:idx_jobs_status_posted,priority:2" json:"posted_date"`
	ClosingDate        *datatypes.Date `gorm:"type:date" json:"closing_date"`
	Status             string          `gorm:"type:varchar(20);default:'open';index:idx_jobs_status_posted,priority:1" json:"status"`
	ApprovedBy         string          `gorm:"type:varchar(100)" json:"approved_by"`
	ApprovedDate       *datatypes.Date `gorm:"type:date" json:"approved_date"`
	CreatedAt          time.Time       `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

// Code 岗位编码，未设置时为空串
func (j *Job) Code() string {
	if j == nil || j.JobCode == nil {
		return ""
	}
	return *j.JobCode
}

// JobRequest 经理发起的招聘需求，审批通过后生成岗位
type JobRequest struct {
	RequestID     uint64     `gorm:"primaryKey;autoIncrement" json:"request_id"`
	RequestedBy   string     `gorm:"type:varchar(100);not null;index" json:"requested_by"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Department    string     `gorm:"type:varchar(255)" json:"department"`
	Location      string     `gorm:"type:varchar(255)" json:"location"`
	Openings      int        `gorm:"default:1" json:"openings"`
	JD            string     `gorm:"column:jd;type:text" json:"jd"`
	KeySkills     string     `gorm:"type:text" json:"key_skills"`
	Justification string     `gorm:"type:text" json:"justification"`
	Status        string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	DecidedBy     string     `gorm:"type:varchar(100)" json:"decided_by"`
	DecidedAt     *time.Time `gorm:"type:datetime(6)" json:"decided_at"`
	JobID         *uint64    `json:"job_id"` // 审批通过后生成的岗位
	CreatedAt     time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (JobRequest) TableName() string {
	return "job_requests"
}

// Applicant 候选人，applicant_id 由数据库生成
type Applicant struct {
	ApplicantID      uint64    `gorm:"primaryKey;autoIncrement" json:"applicant_id"`
	FirstName        string    `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName         string    `gorm:"type:varchar(100)" json:"last_name"`
	Email            string    `gorm:"type:varchar(255);not null;index" json:"email"`
	Phone            string    `gorm:"type:varchar(20)" json:"phone"`
	LinkedInURL      string    `gorm:"column:linkedin_url;type:varchar(512)" json:"linkedin_url"`
	ExperienceYears  float64   `gorm:"type:decimal(5,1)" json:"experience_years"`
	Education        string    `gorm:"type:varchar(255)" json:"education"`
	CurrentCompany   string    `gorm:"type:varchar(255)" json:"current_company"`
	CurrentRole      string    `gorm:"type:varchar(255)" json:"current_role"`
	ExpectedCTC      *float64  `gorm:"column:expected_ctc;type:decimal(12,2)" json:"expected_ctc"`
	NoticePeriodDays *int      `json:"notice_period_days"`
	Skills           string    `gorm:"type:text" json:"skills"`
	Location         string    `gorm:"type:varchar(255)" json:"location"`
	ResumeURL        *string   `gorm:"type:varchar(1024)" json:"resume_url"`
	CreatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6)" json:"created_at"`
	UpdatedAt        time.Time `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`
}

func (Applicant) TableName() string {
	return "applicants"
}

// Application 候选人对某岗位的投递记录及匹配分
type Application struct {
	ApplicationID       uint64     `gorm:"primaryKey;autoIncrement" json:"application_id"`
	JobID               uint64     `gorm:"not null;index:idx_applications_job_score,priority:1" json:"job_id"`
	ApplicantID         uint64     `gorm:"not null;index" json:"applicant_id"`
	AppliedDate         time.Time  `gorm:"type:datetime(6)" json:"applied_date"`
	Source              string     `gorm:"type:varchar(100)" json:"source"`
	SkillsMatchingScore *float64   `gorm:"type:decimal(6,4)" json:"skills_matching_score"`
	JDMatchingScore     *float64   `gorm:"column:jd_matching_score;type:decimal(6,4)" json:"jd_matching_score"`
	ResumeOverallScore  *float64   `gorm:"type:decimal(6,4);index:idx_applications_job_score,priority:2" json:"resume_overall_score"`
	ApplicationStatus   string     `gorm:"type:varchar(50);default:'pending'" json:"application_status"`
	AssignedHR          string     `gorm:"column:assigned_hr;type:varchar(100)" json:"assigned_hr"`
	AssignedManager     string     `gorm:"type:varchar(100)" json:"assigned_manager"`
	Comments            string     `gorm:"type:text" json:"comments"`
	ScoredAt            *time.Time `gorm:"type:datetime(6)" json:"scored_at"`
	UpdatedAt           time.Time  `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);autoUpdateTime" json:"updated_at"`

	Applicant *Applicant `gorm:"foreignKey:ApplicantID;references:ApplicantID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"applicant,omitempty"`
	Job       *Job       `gorm:"foreignKey:JobID;references:JobID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
}

func (Application) TableName() string {
	return "applications"
}

// RankedApplication 岗位下按综合分排序的投递，用于列表和导出
type RankedApplication struct {
	ApplicationID       uint64   `json:"application_id"`
	ApplicantID         uint64   `json:"applicant_id"`
	FirstName           string   `json:"first_name"`
	LastName            string   `json:"last_name"`
	Email               string   `json:"email"`
	ExperienceYears     float64  `json:"experience_years"`
	SkillsMatchingScore *float64 `json:"skills_matching_score"`
	JDMatchingScore     *float64 `json:"jd_matching_score"`
	ResumeOverallScore  *float64 `json:"resume_overall_score"`
	ApplicationStatus   string   `json:"application_status"`
	Source              string   `json:"source"`
}
