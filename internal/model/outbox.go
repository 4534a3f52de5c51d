package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxProcessed OutboxStatus = "processed"
	OutboxDead      OutboxStatus = "dead"
)

// Outbox event types. Both are written alongside a new item.
const (
	OutboxItemMatch     = "item.match"
	OutboxItemBroadcast = "item.broadcast"
)

// OutboxEvent is a unit of deferred work committed with the write that caused it
type OutboxEvent struct {
	ID            uuid.UUID    `json:"id" gorm:"type:uuid;primaryKey"`
	Type          string       `json:"type" gorm:"size:50;not null"`
	AggregateID   uuid.UUID    `json:"aggregate_id" gorm:"type:uuid;index;not null"`
	Status        OutboxStatus `json:"status" gorm:"type:varchar(20);index:idx_outbox_due,priority:1;not null"`
	Attempts      int          `json:"attempts" gorm:"not null;default:0"`
	LastError     string       `json:"last_error,omitempty" gorm:"type:text"`
	NextAttemptAt time.Time    `json:"next_attempt_at" gorm:"index:idx_outbox_due,priority:2;not null"`
	LockedUntil   *time.Time   `json:"locked_until,omitempty"`
	ProcessedAt   *time.Time   `json:"processed_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// NewItemEvents returns the outbox rows written with a freshly created item
func NewItemEvents(itemID uuid.UUID, now time.Time) []OutboxEvent {
	return []OutboxEvent{
		{ID: uuid.New(), Type: OutboxItemMatch, AggregateID: itemID, Status: OutboxPending, NextAttemptAt: now},
		{ID: uuid.New(), Type: OutboxItemBroadcast, AggregateID: itemID, Status: OutboxPending, NextAttemptAt: now},
	}
}
