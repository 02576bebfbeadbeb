package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"hiring-portal/internal/api/handler"
	"hiring-portal/internal/api/router"
	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/outbox"
	"hiring-portal/internal/processor"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/tracing"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	hertzzerolog "github.com/hertz-contrib/logger/zerolog"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/spf13/pflag"
)

var (
	version     = "1.0.0"         //nolint:gochecknoglobals
	serviceName = "hiring-portal" //nolint:gochecknoglobals
)

func main() {
	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "config.yaml", "配置文件路径")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("加载配置失败")
	}

	logCloser, err := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
		File:         cfg.Logger.File,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化日志失败")
	}
	defer logCloser.Close()
	logger.Logger = logger.Logger.With().Str("app", serviceName).Str("version", version).Logger()
	hlog.SetLogger(hertzzerolog.From(logger.Logger))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitProvider(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化链路追踪失败")
	}

	st, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer st.Close()

	proc, err := processor.CreateProcessorFromConfig(ctx, cfg, st)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历处理器失败")
	}
	logger.Info().
		Int("bulk_workers", proc.BulkWorkers).
		Int("max_bulk_files", proc.MaxBulkFiles).
		Str("temp_dir", proc.TempDir).
		Msg("简历处理器初始化成功")

	var relay *outbox.MessageRelay
	if st.RabbitMQ != nil {
		if err := st.RabbitMQ.EnsureExchange(cfg.RabbitMQ.EventsExchange, "topic", true); err != nil {
			logger.Fatal().Err(err).Msg("声明事件 exchange 失败")
		}
		relay = outbox.NewMessageRelay(st.MySQL.DB(), st.RabbitMQ, &cfg.RabbitMQ)
		relay.Start(ctx)

		warmer := outbox.NewJobCacheWarmer(proc.JobProfiles, lockerOf(st))
		if err := warmer.Run(ctx, st.RabbitMQ, &cfg.RabbitMQ); err != nil {
			logger.Error().Err(err).Msg("启动岗位缓存预热消费者失败")
		}
	} else {
		logger.Warn().Msg("RabbitMQ 未启用，领域事件不投递")
	}

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithMaxRequestBodySize(cfg.Server.MaxRequestBodyMB<<20),
		server.WithExitWaitTime(time.Second),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	router.RegisterRoutes(h, router.Handlers{
		Jobs:         handler.NewJobHandler(st.MySQL, proc.JobProfiles),
		Users:        handler.NewUserHandler(st.MySQL),
		Applicants:   handler.NewApplicantHandler(st.MySQL, proc.Ingestor, proc.Bulk),
		Applications: handler.NewApplicationHandler(st.MySQL, proc.Matcher),
		Health:       st.MySQL,
	})

	go func() {
		logger.Info().Str("addr", cfg.Server.Address).Msg("HTTP 服务器启动")
		if err := h.Run(); err != nil {
			logger.Error().Err(err).Msg("HTTP 服务器退出")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("接收到终止信号，正在优雅退出...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout, 10*time.Second))
	defer cancel()

	if err := h.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP 服务器关闭失败")
	}
	if relay != nil {
		relay.Stop()
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("关闭 TracerProvider 失败")
	}
	logger.Info().Msg("优雅退出完成")
}

// lockerOf Redis 不可用时预热不加锁
func lockerOf(st *storage.Storage) outbox.Locker {
	if st.Redis == nil {
		return nil
	}
	return st.Redis
}
