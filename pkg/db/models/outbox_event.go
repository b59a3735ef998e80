package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/blankhall98/Metaleria-API/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the note,
// price or stock change it describes. The outbox publisher drains it.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;type:varchar(40);not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;type:varchar(40);not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;size:64;not null;index:ix_outbox_events_aggregate"`
	Payload       json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime;index:ix_outbox_events_created_at"`
	PublishedAt   *time.Time                `gorm:"column:published_at"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}
