package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"
)

// Outbox 消息状态
const (
	OutboxStatusPending = "PENDING"
	OutboxStatusSent    = "SENT"
	OutboxStatusFailed  = "FAILED"
)

// OutboxMessage 与业务写入同事务落库，由 relay 异步投递到 RabbitMQ
type OutboxMessage struct {
	ID               string         `gorm:"type:char(36);primaryKey"`
	AggregateID      string         `gorm:"type:varchar(64);not null;index"`
	EventType        string         `gorm:"type:varchar(255);not null"`
	Payload          datatypes.JSON `gorm:"type:json;not null"`
	TargetExchange   string         `gorm:"type:varchar(255);not null"`
	TargetRoutingKey string         `gorm:"type:varchar(255);not null"`
	Status           string         `gorm:"type:varchar(20);default:'PENDING';not null;index:idx_outbox_status_created_at"`
	RetryCount       int            `gorm:"default:0"`
	CreatedAt        time.Time      `gorm:"type:datetime(6);default:CURRENT_TIMESTAMP(6);index:idx_outbox_status_created_at,sort:asc"`
	ProcessedAt      *time.Time     `gorm:"type:datetime(6);null"`
	ErrorMessage     string         `gorm:"type:text"`
}

// TableName specifies the table name for the OutboxMessage model.
func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// NewOutboxMessage 构造一条待投递消息，ID 使用 UUIDv7 保证按时间有序
func NewOutboxMessage(aggregateID, eventType, exchange, routingKey string, payload any) (*OutboxMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成消息ID失败: %w", err)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("序列化事件 %s 失败: %w", eventType, err)
	}
	return &OutboxMessage{
		ID:               id.String(),
		AggregateID:      aggregateID,
		EventType:        eventType,
		Payload:          datatypes.JSON(body),
		TargetExchange:   exchange,
		TargetRoutingKey: routingKey,
		Status:           OutboxStatusPending,
	}, nil
}
