package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"hiring-portal/internal/processor"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/trace"
)

// StatusOf 把流水线和存储层错误映射为 HTTP 状态码
func StatusOf(err error) int {
	if err == nil {
		return consts.StatusOK
	}
	if processor.KindOf(err) != processor.KindUnknown {
		return processor.StatusCodeOf(err)
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return consts.StatusNotFound
	case errors.Is(err, storage.ErrDuplicate), errors.Is(err, storage.ErrRequestDecided):
		return consts.StatusConflict
	case errors.Is(err, storage.ErrInvalidUser), errors.Is(err, errBadRequest):
		return consts.StatusBadRequest
	default:
		return consts.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), errBadRequest)
}

// writeError 写 JSON 错误体，并把错误记到当前请求的 span 上
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	status := StatusOf(err)
	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
	c.JSON(status, utils.H{"error": err.Error()})
}

func decodeJSON(c *app.RequestContext, dest any) error {
	body := c.Request.Body()
	if len(body) == 0 {
		return badRequest("请求体不能为空")
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return badRequest("请求体不是合法的 JSON: %v", err)
	}
	return nil
}

func pathID(c *app.RequestContext, name string) (uint64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, badRequest("无效的 %s: %q", name, raw)
	}
	return id, nil
}

func queryInt(c *app.RequestContext, name string, def, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	if max > 0 && v > max {
		return max
	}
	return v
}
