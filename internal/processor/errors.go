package processor

import (
	"errors"
	"fmt"
	"net/http"
)

// 基础错误类型，批量结果里的 error 文本直接来自这里
var (
	ErrInvalidType          = errors.New("invalid type")
	ErrEmptyContent         = errors.New("empty content")
	ErrMissingRequiredField = errors.New("missing required field")
	ErrJobNotFound          = errors.New("job not found")
	ErrManagerNotFound      = errors.New("manager not found")
	ErrApplicationNotFound  = errors.New("application not found")
	ErrPersistence          = errors.New("persistence failure")
	ErrExternalModel        = errors.New("embedding model failure")
)

// ErrorKind 错误分类，决定对外的状态码
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotFound
	KindPersistence
	KindExternalModel
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindPersistence:
		return "persistence"
	case KindExternalModel:
		return "external_model"
	default:
		return "unknown"
	}
}

// IngestError 入库流水线的错误，带上出错的步骤和文件名
type IngestError struct {
	Kind     ErrorKind
	Op       string
	Filename string
	BaseErr  error
	Detail   string
}

func (e *IngestError) Error() string {
	if e.Detail == "" {
		return e.BaseErr.Error()
	}
	return fmt.Sprintf("%s: %s", e.BaseErr, e.Detail)
}

func (e *IngestError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *IngestError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// StatusCode HTTP 状态码
func (e *IngestError) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// 错误构造函数
func NewValidationError(op string, base error, detail string) error {
	return &IngestError{Kind: KindValidation, Op: op, BaseErr: base, Detail: detail}
}

func NewNotFoundError(op string, base error, detail string) error {
	return &IngestError{Kind: KindNotFound, Op: op, BaseErr: base, Detail: detail}
}

func NewPersistenceError(op string, cause error) error {
	return &IngestError{Kind: KindPersistence, Op: op, BaseErr: ErrPersistence, Detail: causeText(cause)}
}

func NewExternalModelError(op string, cause error) error {
	return &IngestError{Kind: KindExternalModel, Op: op, BaseErr: ErrExternalModel, Detail: causeText(cause)}
}

func causeText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// withFilename 给已分类的错误补上文件名，其他错误原样返回
func withFilename(err error, filename string) error {
	var ie *IngestError
	if errors.As(err, &ie) {
		cp := *ie
		cp.Filename = filename
		return &cp
	}
	return err
}

// KindOf 返回错误分类，未分类的错误为 KindUnknown
func KindOf(err error) ErrorKind {
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return KindUnknown
}

// StatusCodeOf 未分类的错误一律 500
func StatusCodeOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var ie *IngestError
	if errors.As(err, &ie) {
		return ie.StatusCode()
	}
	return http.StatusInternalServerError
}
