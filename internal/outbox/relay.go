// Package outbox 发件箱模式：业务写入时同事务落库事件，relay 异步投递到 RabbitMQ
package outbox

import (
	"context"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/storage"
	"hiring-portal/internal/storage/models"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultBatchSize       = 10
	defaultMaxRetry        = 5
)

// MessageRelay 轮询 outbox 表并把消息发布到 broker
type MessageRelay struct {
	db              *gorm.DB
	publisher       storage.MessageQueue
	log             zerolog.Logger
	pollingInterval time.Duration
	batchSize       int
	maxRetry        int
	done            chan struct{}
	stopped         chan struct{}
	tracer          trace.Tracer
	now             func() time.Time
}

// NewMessageRelay 轮询参数取自 RabbitMQ 配置，未配置时用默认值
func NewMessageRelay(db *gorm.DB, publisher storage.MessageQueue, cfg *config.RabbitMQConfig) *MessageRelay {
	r := &MessageRelay{
		db:              db,
		publisher:       publisher,
		log:             logger.Component("outbox_relay"),
		pollingInterval: defaultPollingInterval,
		batchSize:       defaultBatchSize,
		maxRetry:        defaultMaxRetry,
		done:            make(chan struct{}),
		stopped:         make(chan struct{}),
		tracer:          otel.Tracer("hiring-portal/outbox"),
		now:             time.Now,
	}
	if cfg != nil {
		r.pollingInterval = config.GetDuration(cfg.RelayInterval, defaultPollingInterval)
		if cfg.RelayBatchSize > 0 {
			r.batchSize = cfg.RelayBatchSize
		}
		if cfg.RelayMaxRetry > 0 {
			r.maxRetry = cfg.RelayMaxRetry
		}
	}
	return r
}

// Start 启动后台轮询，ctx 取消或调用 Stop 后退出
func (r *MessageRelay) Start(ctx context.Context) {
	r.log.Info().
		Dur("interval", r.pollingInterval).
		Int("batch_size", r.batchSize).
		Msg("MessageRelay 启动")
	ticker := time.NewTicker(r.pollingInterval)

	go func() {
		defer close(r.stopped)
		defer ticker.Stop()
		for {
			select {
			case <-r.done:
				r.log.Info().Msg("MessageRelay 已停止")
				return
			case <-ctx.Done():
				r.log.Info().Msg("MessageRelay 随上下文退出")
				return
			case <-ticker.C:
				if err := r.processPendingMessages(ctx); err != nil {
					r.log.Error().Err(err).Msg("处理 outbox 消息失败")
				}
			}
		}
	}()
}

// Stop 通知后台协程退出并等待当前批次完成
func (r *MessageRelay) Stop() {
	select {
	case <-r.done:
	default:
		close(r.done)
	}
	<-r.stopped
}

// processPendingMessages 取一批待投递消息逐条发布。
// FOR UPDATE SKIP LOCKED 让多个实例可以并行轮询而不重复投递
func (r *MessageRelay) processPendingMessages(ctx context.Context) error {
	var messages []models.OutboxMessage

	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	defer tx.Rollback()

	err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ?", models.OutboxStatusPending).
		Order("created_at asc").
		Limit(r.batchSize).
		Find(&messages).Error
	if err != nil {
		return err
	}
	// 空轮询不建 span
	if len(messages) == 0 {
		return tx.Commit().Error
	}

	ctx, span := r.tracer.Start(ctx, "outbox.ProcessBatch",
		trace.WithAttributes(attribute.Int("messaging.batch.message_count", len(messages))),
	)
	defer span.End()

	r.log.Debug().Int("count", len(messages)).Msg("取到待投递消息")

	for i := range messages {
		msg := &messages[i]
		pubErr := r.publisher.PublishMessage(ctx, msg.TargetExchange, msg.TargetRoutingKey, []byte(msg.Payload), true)
		r.applyResult(msg, pubErr)
		if pubErr != nil {
			r.log.Warn().Err(pubErr).
				Str("id", msg.ID).
				Str("event_type", msg.EventType).
				Int("retries", msg.RetryCount).
				Msg("发布 outbox 消息失败")
		}

		// 更新失败则整批回滚，下次轮询重新拾取
		if err := tx.Save(msg).Error; err != nil {
			return err
		}
	}
	return tx.Commit().Error
}

// applyResult 根据发布结果推进消息状态，超过重试次数标记 FAILED
func (r *MessageRelay) applyResult(msg *models.OutboxMessage, pubErr error) {
	if pubErr != nil {
		msg.RetryCount++
		msg.ErrorMessage = pubErr.Error()
		if msg.RetryCount >= r.maxRetry {
			msg.Status = models.OutboxStatusFailed
		}
		return
	}
	now := r.now()
	msg.Status = models.OutboxStatusSent
	msg.ProcessedAt = &now
	msg.ErrorMessage = ""
}
