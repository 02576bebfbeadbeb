package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"hiring-portal/internal/config"
	"hiring-portal/internal/logger"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// MessageQueue 消息发布接口，outbox relay 依赖它
type MessageQueue interface {
	PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error
}

var _ MessageQueue = (*RabbitMQ)(nil)

// DeliveryHandler 处理一条消息，返回 false 时消息重新入队
type DeliveryHandler func(ctx context.Context, body []byte) bool

// RabbitMQ 领域事件的发布和消费
type RabbitMQ struct {
	conn        *amqp.Connection
	channelPool sync.Pool
	mu          sync.Mutex // 保护下面三个声明缓存和发布
	exchangeMap map[string]bool
	queueMap    map[string]bool
	bindingMap  map[string]bool
	cfg         *config.RabbitMQConfig
	log         zerolog.Logger
}

// NewRabbitMQ 连接 broker 并验证可以打开通道
func NewRabbitMQ(cfg *config.RabbitMQConfig) (*RabbitMQ, error) {
	if cfg == nil {
		return nil, fmt.Errorf("RabbitMQ配置不能为空")
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("RabbitMQ URL配置不能为空")
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("无法连接到RabbitMQ服务器: %w", err)
	}

	mq := &RabbitMQ{
		conn:        conn,
		exchangeMap: make(map[string]bool),
		queueMap:    make(map[string]bool),
		bindingMap:  make(map[string]bool),
		cfg:         cfg,
		log:         logger.Component("rabbitmq"),
	}
	mq.channelPool = sync.Pool{
		New: func() any {
			ch, errPool := conn.Channel()
			if errPool != nil {
				mq.log.Error().Err(errPool).Msg("创建RabbitMQ通道失败")
				return nil
			}
			return ch
		},
	}

	testCh := mq.getChannel()
	if testCh == nil {
		conn.Close()
		return nil, fmt.Errorf("无法创建RabbitMQ通道")
	}
	mq.putChannel(testCh)

	mq.log.Info().Msg("成功连接到RabbitMQ服务器")
	return mq, nil
}

func (r *RabbitMQ) getChannel() *amqp.Channel {
	if v := r.channelPool.Get(); v != nil {
		if ch, ok := v.(*amqp.Channel); ok && !ch.IsClosed() {
			return ch
		}
	}
	ch, err := r.conn.Channel()
	if err != nil {
		r.log.Error().Err(err).Msg("创建新RabbitMQ通道失败")
		return nil
	}
	return ch
}

func (r *RabbitMQ) putChannel(ch *amqp.Channel) {
	if ch != nil && !ch.IsClosed() {
		r.channelPool.Put(ch)
	}
}

// Close 关闭连接
func (r *RabbitMQ) Close() error {
	return r.conn.Close()
}

// EnsureExchange 声明 exchange，已声明过的直接返回
func (r *RabbitMQ) EnsureExchange(exchangeName, exchangeType string, durable bool) error {
	if exchangeName == "" {
		return fmt.Errorf("exchange名称不能为空")
	}
	if exchangeName == "amq.default" || exchangeName == "default" {
		return fmt.Errorf("不能声明默认交换机 '%s'", exchangeName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exchangeMap[exchangeName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := ch.ExchangeDeclare(exchangeName, exchangeType, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明exchange失败: %w", err)
	}
	r.exchangeMap[exchangeName] = true
	r.log.Info().Str("exchange", exchangeName).Str("type", exchangeType).Msg("已确保exchange存在")
	return nil
}

// EnsureQueue 声明队列
func (r *RabbitMQ) EnsureQueue(queueName string, durable bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queueMap[queueName] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if _, err := ch.QueueDeclare(queueName, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("声明队列失败: %w", err)
	}
	r.queueMap[queueName] = true
	r.log.Info().Str("queue", queueName).Msg("已确保队列存在")
	return nil
}

// BindQueue 绑定队列到 exchange
func (r *RabbitMQ) BindQueue(queueName, exchangeName, routingKey string) error {
	bindingKey := fmt.Sprintf("%s:%s:%s", exchangeName, queueName, routingKey)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bindingMap[bindingKey] {
		return nil
	}

	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	if err := ch.QueueBind(queueName, routingKey, exchangeName, false, nil); err != nil {
		return fmt.Errorf("绑定队列到exchange失败: %w", err)
	}
	r.bindingMap[bindingKey] = true
	r.log.Info().
		Str("queue", queueName).
		Str("exchange", exchangeName).
		Str("routing_key", routingKey).
		Msg("已绑定队列")
	return nil
}

// PublishMessage 发布原始消息
func (r *RabbitMQ) PublishMessage(ctx context.Context, exchangeName, routingKey string, message []byte, persistent bool) error {
	ch := r.getChannel()
	if ch == nil {
		return fmt.Errorf("无法获取RabbitMQ通道")
	}
	defer r.putChannel(ch)

	deliveryMode := amqp.Transient
	if persistent {
		deliveryMode = amqp.Persistent
	}

	return ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, amqp.Publishing{
		DeliveryMode: deliveryMode,
		ContentType:  "application/json",
		Body:         message,
		Timestamp:    time.Now(),
	})
}

// StartConsumer 在独立通道上消费队列，ctx 取消后停止
func (r *RabbitMQ) StartConsumer(ctx context.Context, queueName string, prefetchCount int, handler DeliveryHandler) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return fmt.Errorf("无法获取RabbitMQ通道: %w", err)
	}
	if err := ch.Qos(prefetchCount, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("设置QoS失败: %w", err)
	}

	deliveries, err := ch.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		ch.Close()
		return fmt.Errorf("注册消费者失败: %w", err)
	}

	go func() {
		defer ch.Close()
		r.log.Info().Str("queue", queueName).Int("prefetch", prefetchCount).Msg("RabbitMQ消费者已启动")
		defer r.log.Info().Str("queue", queueName).Msg("RabbitMQ消费者已停止")

		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					r.log.Warn().Str("queue", queueName).Msg("RabbitMQ通道已关闭")
					return
				}
				if handler(ctx, d.Body) {
					if err := d.Ack(false); err != nil {
						r.log.Error().Err(err).Msg("确认消息失败")
					}
				} else if err := d.Nack(false, true); err != nil {
					r.log.Error().Err(err).Msg("拒绝消息失败")
				}
			}
		}
	}()
	return nil
}
