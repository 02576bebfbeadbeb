package storage

import (
	"context"
	"errors"

	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/types"
)

var (
	// ErrNotFound 查询的记录或缓存键不存在
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 违反唯一约束(用户名、邮箱、工号、岗位编码)
	ErrDuplicate = errors.New("duplicate record")
)

// ApplicationTx 一次入库事务内可用的写操作。
// 所有方法共享同一个数据库事务，任一步返回错误都会整体回滚。
type ApplicationTx interface {
	InsertApplicant(ctx context.Context, applicant *models.Applicant) error
	UpdateApplicantResumeURL(ctx context.Context, applicantID uint64, url string) error
	InsertApplication(ctx context.Context, app *models.Application) error
	UpdateApplicationScores(ctx context.Context, applicationID uint64, res types.MatchResult) error
	EnqueueOutbox(ctx context.Context, msg *models.OutboxMessage) error
}

// Repository 简历流水线依赖的关系存储
type Repository interface {
	WithinTx(ctx context.Context, fn func(tx ApplicationTx) error) error
	GetApplication(ctx context.Context, id uint64) (*models.Application, error)
	GetApplicant(ctx context.Context, id uint64) (*models.Applicant, error)
	GetJob(ctx context.Context, id uint64) (*models.Job, error)
	FindUserByNameAndRole(ctx context.Context, name, role string) (*models.User, error)
}

var (
	_ Repository    = (*MySQL)(nil)
	_ ApplicationTx = (*MySQL)(nil)
)
