package storage

import (
	"context"
	"fmt"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
)

// Storage 聚合所有存储依赖。MySQL 必需，其余失败时为 nil
type Storage struct {
	MySQL    *MySQL
	Redis    *Redis
	RabbitMQ *RabbitMQ
	Files    FileStore
}

// NewStorage 按配置初始化各存储组件
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	log := logger.Component("storage")
	s := &Storage{}

	mysqlDB, err := NewMySQL(&cfg.MySQL)
	if err != nil {
		return nil, fmt.Errorf("初始化MySQL失败: %w", err)
	}
	s.MySQL = mysqlDB

	if !cfg.RabbitMQ.Disabled && cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ)
		if err != nil {
			log.Warn().Err(err).Msg("初始化RabbitMQ失败，领域事件只落库不投递")
		} else {
			// 只有 broker 可用时才写岗位事件，避免 outbox 无限堆积
			s.MySQL.WithEventRouting(EventRouting{
				Exchange:      cfg.RabbitMQ.EventsExchange,
				JobRoutingKey: cfg.RabbitMQ.JobRoutingKey,
			})
		}
	}

	if !cfg.Redis.Disabled && cfg.Redis.Address != "" {
		s.Redis, err = NewRedisAdapter(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("初始化Redis失败，岗位画像不走缓存")
		}
	}

	switch cfg.Storage.Backend {
	case "minio":
		s.Files, err = NewMinIOFileStore(ctx, &cfg.MinIO)
	default:
		s.Files, err = NewLocalFileStore(cfg.Storage.UploadDir)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("初始化简历文件存储(%s)失败: %w", cfg.Storage.Backend, err)
	}

	log.Info().
		Bool("redis", s.Redis != nil).
		Bool("rabbitmq", s.RabbitMQ != nil).
		Str("file_backend", cfg.Storage.Backend).
		Msg("存储组件初始化完成")
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	log := logger.Component("storage")
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			log.Error().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("关闭Redis连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			log.Error().Err(err).Msg("关闭MySQL连接失败")
		}
	}
}
