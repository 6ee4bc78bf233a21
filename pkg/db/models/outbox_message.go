package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is a serialized domain event persisted in the same
// transaction as the aggregate change that raised it. A row with a nil
// ProcessedOnUTC is pending; processed rows keep the failure text in
// Error when dispatch failed, and are never retried.
type OutboxMessage struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OccurredOnUTC  time.Time       `gorm:"column:occurred_on_utc;not null;index:ix_outbox_messages_occurred_on"`
	EventType      string          `gorm:"column:type;type:text;not null"`
	Content        json.RawMessage `gorm:"column:content;type:jsonb;not null"`
	ProcessedOnUTC *time.Time      `gorm:"column:processed_on_utc"`
	Error          *string         `gorm:"column:error;type:text"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// Pending reports whether the message has not yet been dispatched.
func (m *OutboxMessage) Pending() bool {
	return m.ProcessedOnUTC == nil
}
