package storage

import "time"

// ApplicantIngestedEvent 简历入库成功后写入 outbox 的事件
type ApplicantIngestedEvent struct {
	ApplicantID        uint64    `json:"applicant_id"`
	ApplicationID      uint64    `json:"application_id"`
	JobID              uint64    `json:"job_id"`
	Source             string    `json:"source"`
	ResumeOverallScore float64   `json:"resume_overall_score"`
	OccurredAt         time.Time `json:"occurred_at"`
}

// JobChangedEvent 岗位创建或状态变化事件，缓存预热消费者据此刷新岗位画像
type JobChangedEvent struct {
	JobID      uint64    `json:"job_id"`
	EventType  string    `json:"event_type"` // job.created | job.updated
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}
