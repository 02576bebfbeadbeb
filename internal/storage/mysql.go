package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/storage/models"
	"hiring-portal/internal/tracing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var mysqlTracer = otel.Tracer("hiring-portal/storage/mysql")

// spanCtxKey gorm 回调之间传递 span 用的 context key
type spanCtxKey struct{}

// GormTracingPlugin 为 gorm 的增删改查注册 OpenTelemetry 回调
type GormTracingPlugin struct {
	tracer         trace.Tracer
	dbName         string
	disableErrSkip bool
}

// NewGormTracingPlugin 创建追踪插件
func NewGormTracingPlugin(dbName string) *GormTracingPlugin {
	return &GormTracingPlugin{
		tracer:         mysqlTracer,
		dbName:         dbName,
		disableErrSkip: true,
	}
}

// WithDisableErrSkip 设置是否跳过 SkipHooks 的语句
func (p *GormTracingPlugin) WithDisableErrSkip(disable bool) *GormTracingPlugin {
	p.disableErrSkip = disable
	return p
}

// Name 插件名
func (p *GormTracingPlugin) Name() string {
	return "GormOpenTelemetryPlugin"
}

// Initialize 注册 before/after 回调
func (p *GormTracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()

	hooks := []struct {
		op       string
		register func(name string, before bool, fn func(*gorm.DB)) error
	}{
		{"CREATE", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Create().Before("gorm:create").Register(name, fn)
			}
			return cb.Create().After("gorm:create").Register(name, fn)
		}},
		{"SELECT", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Query().Before("gorm:query").Register(name, fn)
			}
			return cb.Query().After("gorm:query").Register(name, fn)
		}},
		{"UPDATE", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Update().Before("gorm:update").Register(name, fn)
			}
			return cb.Update().After("gorm:update").Register(name, fn)
		}},
		{"DELETE", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Delete().Before("gorm:delete").Register(name, fn)
			}
			return cb.Delete().After("gorm:delete").Register(name, fn)
		}},
		{"ROW", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Row().Before("gorm:row").Register(name, fn)
			}
			return cb.Row().After("gorm:row").Register(name, fn)
		}},
		{"RAW", func(name string, before bool, fn func(*gorm.DB)) error {
			if before {
				return cb.Raw().Before("gorm:raw").Register(name, fn)
			}
			return cb.Raw().After("gorm:raw").Register(name, fn)
		}},
	}

	for _, h := range hooks {
		suffix := strings.ToLower(h.op)
		if err := h.register("otel:before_"+suffix, true, p.before(h.op)); err != nil {
			return err
		}
		if err := h.register("otel:after_"+suffix, false, p.after()); err != nil {
			return err
		}
	}
	return nil
}

func (p *GormTracingPlugin) before(operation string) func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if p.disableErrSkip && db.Statement.SkipHooks {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}

		opts := []trace.SpanStartOption{
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				semconv.DBSystemMySQL,
				attribute.String("db.name", p.dbName),
				attribute.String("db.operation", operation),
				attribute.String("db.sql.table", table),
			),
		}

		newCtx, span := p.tracer.Start(ctx, operation+" "+table, opts...)
		db.Statement.Context = context.WithValue(newCtx, spanCtxKey{}, span)
	}
}

func (p *GormTracingPlugin) after() func(db *gorm.DB) {
	return func(db *gorm.DB) {
		if db.Statement.Context == nil {
			return
		}
		span, ok := db.Statement.Context.Value(spanCtxKey{}).(trace.Span)
		if !ok {
			return
		}
		defer span.End()

		if stmt := db.Statement.SQL.String(); stmt != "" {
			span.SetAttributes(attribute.String("db.statement", tracing.SafeSQL(stmt)))
		}
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

		switch {
		case db.Error == nil:
			span.SetStatus(codes.Ok, "")
		case errors.Is(db.Error, gorm.ErrRecordNotFound):
			// 查不到属于正常业务分支
			span.SetAttributes(attribute.String("error.type", "record_not_found"))
			span.SetStatus(codes.Ok, "record not found")
		default:
			span.SetAttributes(
				attribute.String("error.type", "database_error"),
				attribute.String("error.message", db.Error.Error()),
			)
			span.RecordError(db.Error)
			span.SetStatus(codes.Error, db.Error.Error())
		}
	}
}

// MySQL 招聘门户的关系存储。
// 事务内的 MySQL 与外层共享配置，只替换 db 句柄。
type MySQL struct {
	db     *gorm.DB
	cfg    *config.MySQLConfig
	events EventRouting
}

// EventRouting 岗位变更事件写入 outbox 时使用的交换机和路由键。
// Exchange 为空时不写岗位事件。
type EventRouting struct {
	Exchange      string
	JobRoutingKey string
}

// NewMySQL 连接 MySQL 并迁移表结构
func NewMySQL(cfg *config.MySQLConfig) (*MySQL, error) {
	if cfg == nil {
		return nil, fmt.Errorf("MySQL配置不能为空")
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local&timeout=%ds&readTimeout=%ds&writeTimeout=%ds",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database,
		cfg.ConnectTimeoutSeconds, cfg.ReadTimeoutSeconds, cfg.WriteTimeoutSeconds)

	gormConfig := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		PrepareStmt:                              true,
		TranslateError:                           true,
		NowFunc: func() time.Time {
			return time.Now().Local()
		},
	}

	db, err := gorm.Open(mysql.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("连接MySQL失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTimeMinutes) * time.Minute)

	if err := db.Use(NewGormTracingPlugin(cfg.Database)); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("注册追踪插件失败: %w", err)
	}

	m := &MySQL{db: db, cfg: cfg}
	if err := m.autoMigrateSchema(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("自动迁移数据库结构失败: %w", err)
	}

	logger.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("成功连接到MySQL并完成表结构迁移")
	return m, nil
}

func gormLogLevel(level int) gormlogger.LogLevel {
	switch level {
	case 1:
		return gormlogger.Silent
	case 2:
		return gormlogger.Error
	case 3:
		return gormlogger.Warn
	case 4:
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

// autoMigrateSchema 迁移时关闭 SQL 日志
func (m *MySQL) autoMigrateSchema() error {
	silentDB := m.db.Session(&gorm.Session{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	err := silentDB.AutoMigrate(
		&models.User{},
		&models.Job{},
		&models.JobRequest{},
		&models.Applicant{},
		&models.Application{},
		&models.OutboxMessage{},
	)
	if err != nil {
		return fmt.Errorf("GORM自动迁移失败: %w", err)
	}
	return nil
}

// WithEventRouting 设置岗位事件的路由
func (m *MySQL) WithEventRouting(r EventRouting) *MySQL {
	m.events = r
	return m
}

// DB 返回 gorm 句柄，outbox relay 直接使用
func (m *MySQL) DB() *gorm.DB {
	return m.db
}

// Close 关闭连接池
func (m *MySQL) Close() error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	return sqlDB.Close()
}

// Ping 健康检查
func (m *MySQL) Ping(ctx context.Context) error {
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// WithinTx 在一个数据库事务中执行 fn，fn 返回错误或 panic 时回滚
func (m *MySQL) WithinTx(ctx context.Context, fn func(tx ApplicationTx) error) error {
	return m.transaction(ctx, func(tx *MySQL) error {
		return fn(tx)
	})
}

func (m *MySQL) transaction(ctx context.Context, fn func(tx *MySQL) error) error {
	return m.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&MySQL{db: db, cfg: m.cfg, events: m.events})
	})
}

// notFound 把 gorm 的记录不存在转换为包内错误
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// isDuplicateKey MySQL 1062 唯一键冲突
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Error 1062")
}
