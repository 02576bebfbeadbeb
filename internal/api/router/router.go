package router

import (
	"context"
	"time"

	"hiring-portal/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Pinger 健康检查依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers 路由用到的全部处理器
type Handlers struct {
	Jobs         *handler.JobHandler
	Users        *handler.UserHandler
	Applicants   *handler.ApplicantHandler
	Applications *handler.ApplicationHandler
	Health       Pinger
}

// RegisterRoutes 注册 API 路由
func RegisterRoutes(h *server.Hertz, hs Handlers) {
	h.Use(RequestID(), AccessLog())

	h.GET("/healthz", healthz(hs.Health))

	api := h.Group("/api/v1")

	jobs := api.Group("/jobs")
	jobs.POST("", hs.Jobs.CreateJob)
	jobs.GET("", hs.Jobs.ListJobs)
	jobs.GET("/:id", hs.Jobs.GetJob)
	jobs.PATCH("/:id/status", hs.Jobs.UpdateJobStatus)
	jobs.GET("/:id/applications", hs.Applications.Ranked)
	jobs.GET("/:id/applications/export", hs.Applications.Export)

	reqs := api.Group("/job-requests")
	reqs.POST("", hs.Jobs.CreateJobRequest)
	reqs.GET("", hs.Jobs.ListJobRequests)
	reqs.POST("/:id/decision", hs.Jobs.DecideJobRequest)

	api.POST("/users", hs.Users.CreateUser)
	api.GET("/users/:username", hs.Users.GetUser)

	applicants := api.Group("/applicants")
	applicants.POST("/upload", hs.Applicants.Upload)
	applicants.POST("/bulk-upload", hs.Applicants.BulkUpload)
	applicants.GET("", hs.Applicants.List)
	applicants.GET("/:id", hs.Applicants.Get)

	api.POST("/applications/:id/evaluate", hs.Applications.Evaluate)
}

func healthz(p Pinger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if p == nil {
			c.JSON(consts.StatusOK, utils.H{"status": "ok"})
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := p.Ping(pingCtx); err != nil {
			c.JSON(consts.StatusServiceUnavailable, utils.H{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(consts.StatusOK, utils.H{"status": "ok"})
	}
}
