package constants

// 岗位状态
const (
	JobStatusOpen   = "open"
	JobStatusOnHold = "on_hold"
	JobStatusClosed = "closed"
)

// 岗位申请(JobRequest)审批状态
const (
	JobRequestPending  = "pending"
	JobRequestApproved = "approved"
	JobRequestRejected = "rejected"
)

// 用户角色
const (
	RoleHR         = "HR"
	RoleManager    = "Manager"
	RoleManagement = "Management"
)

const (
	// Unassigned 未指派 HR 或经理时写入的占位值
	Unassigned = "Unassigned"
	// DefaultLastName 简历中解析不到姓时使用
	DefaultLastName = "Applicant"
)

// 领域事件类型，写入 outbox 后由 relay 投递
const (
	EventApplicantIngested = "applicant.ingested"
	EventJobCreated        = "job.created"
	EventJobUpdated        = "job.updated"
)
