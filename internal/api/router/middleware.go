package router

import (
	"context"
	"time"

	"hiring-portal/internal/logger"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/google/uuid"
)

// HeaderRequestID 请求 ID 头，客户端传入时沿用
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// RequestID 为每个请求分配 ID，写入响应头和 context
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Response.Header.Set(HeaderRequestID, id)
		c.Next(context.WithValue(ctx, requestIDKey{}, id))
	}
}

// RequestIDFrom 取出 RequestID 中间件写入的 ID
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// AccessLog 请求结束后记录一行访问日志
func AccessLog() app.HandlerFunc {
	log := logger.Component("http")
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)

		status := c.Response.StatusCode()
		ev := log.Info()
		if status >= 500 {
			ev = log.Error()
		} else if status >= 400 {
			ev = log.Warn()
		}
		ev.Str("request_id", c.GetString("request_id")).
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("HTTP 请求")
	}
}
