package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/constants"
	"hiring-portal/internal/logger"
	"hiring-portal/internal/processor"
	"hiring-portal/internal/storage"

	"github.com/rs/zerolog"
)

// ProfileWarmer 刷新单个岗位的缓存画像
type ProfileWarmer interface {
	Warm(ctx context.Context, jobID uint64) error
}

// Locker 分布式锁，拿不到锁时返回空 token
type Locker interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) (bool, error)
}

// Subscriber 声明拓扑并启动消费
type Subscriber interface {
	EnsureExchange(exchangeName, exchangeType string, durable bool) error
	EnsureQueue(queueName string, durable bool) error
	BindQueue(queueName, exchangeName, routingKey string) error
	StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler storage.DeliveryHandler) error
}

var (
	_ ProfileWarmer = (*processor.JobProfileProvider)(nil)
	_ Locker        = (*storage.Redis)(nil)
	_ Subscriber    = (*storage.RabbitMQ)(nil)
)

const defaultWarmLockTTL = 30 * time.Second

// JobCacheWarmer 消费岗位变更事件，预热岗位画像和 JD 向量缓存。
// 多实例部署时用 Redis 锁保证同一岗位只有一个实例在刷新
type JobCacheWarmer struct {
	warmer  ProfileWarmer
	locker  Locker
	lockTTL time.Duration
	log     zerolog.Logger
}

// NewJobCacheWarmer locker 可以为 nil，此时不加锁
func NewJobCacheWarmer(warmer ProfileWarmer, locker Locker) *JobCacheWarmer {
	return &JobCacheWarmer{
		warmer:  warmer,
		locker:  locker,
		lockTTL: defaultWarmLockTTL,
		log:     logger.Component("job_cache_warmer"),
	}
}

// Run 声明 exchange、队列和绑定后开始消费
func (w *JobCacheWarmer) Run(ctx context.Context, sub Subscriber, cfg *config.RabbitMQConfig) error {
	if err := sub.EnsureExchange(cfg.EventsExchange, "topic", true); err != nil {
		return fmt.Errorf("声明事件 exchange 失败: %w", err)
	}
	if err := sub.EnsureQueue(cfg.JobCacheQueue, true); err != nil {
		return fmt.Errorf("声明缓存预热队列失败: %w", err)
	}
	if err := sub.BindQueue(cfg.JobCacheQueue, cfg.EventsExchange, cfg.JobRoutingKey); err != nil {
		return err
	}
	return sub.StartConsumer(ctx, cfg.JobCacheQueue, cfg.PrefetchCount, w.Handle)
}

// Handle 处理一条岗位事件。返回 false 时消息重新入队
func (w *JobCacheWarmer) Handle(ctx context.Context, body []byte) bool {
	var event storage.JobChangedEvent
	if err := json.Unmarshal(body, &event); err != nil || event.JobID == 0 {
		// 格式错误的消息重试也没用，直接丢弃
		w.log.Error().Err(err).Bytes("body", body).Msg("无法解析岗位事件，丢弃")
		return true
	}
	log := w.log.With().Uint64("job_id", event.JobID).Str("event_type", event.EventType).Logger()

	if w.locker != nil {
		key := lockKey(event.JobID)
		token, err := w.locker.AcquireLock(ctx, key, w.lockTTL)
		if err != nil {
			log.Warn().Err(err).Msg("获取预热锁失败，稍后重试")
			return false
		}
		if token == "" {
			log.Debug().Msg("其他实例正在预热该岗位，跳过")
			return true
		}
		defer func() {
			if _, err := w.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
				log.Warn().Err(err).Msg("释放预热锁失败")
			}
		}()
	}

	if err := w.warmer.Warm(ctx, event.JobID); err != nil {
		if errors.Is(err, processor.ErrJobNotFound) {
			log.Warn().Msg("岗位已不存在，忽略事件")
			return true
		}
		log.Error().Err(err).Msg("预热岗位缓存失败")
		return false
	}
	log.Info().Str("status", event.Status).Msg("岗位缓存已刷新")
	return true
}

func lockKey(jobID uint64) string {
	return fmt.Sprintf(constants.KeyJobWarmLock, jobID)
}
