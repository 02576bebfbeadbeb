package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"hiring-portal/internal/processor"
	"hiring-portal/internal/storage"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStatusOf(t *testing.T) {
	cases := map[string]struct {
		err  error
		want int
	}{
		"nil":          {nil, http.StatusOK},
		"validation":   {processor.NewValidationError("validate", processor.ErrEmptyContent, ""), http.StatusBadRequest},
		"manager":      {processor.NewNotFoundError("assign", processor.ErrManagerNotFound, "bob"), http.StatusNotFound},
		"persistence":  {processor.NewPersistenceError("commit", errors.New("x")), http.StatusInternalServerError},
		"storage 404":  {fmt.Errorf("查询岗位 1: %w", storage.ErrNotFound), http.StatusNotFound},
		"duplicate":    {fmt.Errorf("用户名已存在: %w", storage.ErrDuplicate), http.StatusConflict},
		"decided":      {storage.ErrRequestDecided, http.StatusConflict},
		"invalid user": {storage.ErrInvalidUser, http.StatusBadRequest},
		"bad request":  {badRequest("无效的 %s", "id"), http.StatusBadRequest},
		"unknown":      {errors.New("boom"), http.StatusInternalServerError},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, StatusOf(tc.err))
		})
	}
}

func TestBadRequestMessage(t *testing.T) {
	err := badRequest("job_id 必须是正整数")
	assert.Equal(t, "job_id 必须是正整数: bad request", err.Error())
}

func TestWriteErrorRecordsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /api/v1/jobs/:id")

	c := app.NewContext(0)
	writeError(ctx, c, fmt.Errorf("查询岗位 9: %w", storage.ErrNotFound))
	span.End()

	assert.Equal(t, http.StatusNotFound, c.Response.StatusCode())
	assert.JSONEq(t, `{"error":"查询岗位 9: record not found"}`, string(c.Response.Body()))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.Int("http.status_code", http.StatusNotFound))
}
