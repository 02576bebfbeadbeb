package processor

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"类型错误", NewValidationError("validate", ErrInvalidType, "a.docx"), http.StatusBadRequest},
		{"空内容", NewValidationError("extract", ErrEmptyContent, ""), http.StatusBadRequest},
		{"岗位不存在", NewNotFoundError("job_profile", ErrJobNotFound, "job_id=9"), http.StatusNotFound},
		{"经理不存在", NewNotFoundError("lookup_manager", ErrManagerNotFound, "bob"), http.StatusNotFound},
		{"写库失败", NewPersistenceError("insert_applicant", errors.New("deadlock")), http.StatusInternalServerError},
		{"模型失败", NewExternalModelError("embed", errors.New("timeout")), http.StatusInternalServerError},
		{"未分类", errors.New("boom"), http.StatusInternalServerError},
		{"包装后仍可识别", fmt.Errorf("外层: %w", NewNotFoundError("x", ErrJobNotFound, "")), http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusCodeOf(tc.err))
		})
	}
}

func TestIngestErrorMessageAndIs(t *testing.T) {
	err := NewValidationError("extract", ErrEmptyContent, "")
	assert.Equal(t, "empty content", err.Error())
	assert.ErrorIs(t, err, ErrEmptyContent)
	assert.NotErrorIs(t, err, ErrInvalidType)

	err = NewPersistenceError("insert_application", errors.New("duplicate"))
	assert.Equal(t, "persistence failure: duplicate", err.Error())
	assert.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, KindPersistence, KindOf(err))
	assert.Equal(t, KindUnknown, KindOf(errors.New("x")))
}

func TestWithFilename(t *testing.T) {
	orig := NewValidationError("validate", ErrInvalidType, "")
	got := withFilename(orig, "cv.docx")

	var ie *IngestError
	assert.True(t, errors.As(got, &ie))
	assert.Equal(t, "cv.docx", ie.Filename)
	assert.Equal(t, "", orig.(*IngestError).Filename, "原错误不应被修改")

	plain := errors.New("plain")
	assert.Same(t, plain, withFilename(plain, "a.pdf"))
}
