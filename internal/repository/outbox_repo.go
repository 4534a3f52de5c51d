package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
)

// OutboxRepository stores deferred work written alongside primary rows
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// FindByID finds an event by ID
func (r *OutboxRepository) FindByID(id uuid.UUID) (*model.OutboxEvent, error) {
	var ev model.OutboxEvent
	err := r.db.Where("id = ?", id).First(&ev).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// ListDue returns pending events whose next attempt is due and whose lease
// (if any) has expired, oldest first
func (r *OutboxRepository) ListDue(now time.Time, limit int) ([]model.OutboxEvent, error) {
	events := []model.OutboxEvent{}
	err := r.db.
		Where("status = ? AND next_attempt_at <= ?", model.OutboxPending, now).
		Where("locked_until IS NULL OR locked_until < ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

// Claim takes a lease on a pending event. It returns false when another
// worker holds the lease or the event is no longer pending.
func (r *OutboxRepository) Claim(id uuid.UUID, now, until time.Time) (bool, error) {
	result := r.db.Model(&model.OutboxEvent{}).
		Where("id = ? AND status = ?", id, model.OutboxPending).
		Where("locked_until IS NULL OR locked_until < ?", now).
		Update("locked_until", until)
	return result.RowsAffected == 1, result.Error
}

// MarkProcessed completes an event and releases its lease
func (r *OutboxRepository) MarkProcessed(id uuid.UUID, at time.Time) error {
	return r.db.Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       model.OutboxProcessed,
			"processed_at": at,
			"locked_until": nil,
		}).Error
}

// MarkFailed records a failed attempt. When dead is set the event is not retried.
func (r *OutboxRepository) MarkFailed(id uuid.UUID, attempts int, lastErr string, nextAttempt time.Time, dead bool) error {
	status := model.OutboxPending
	if dead {
		status = model.OutboxDead
	}
	return r.db.Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"last_error":      lastErr,
			"next_attempt_at": nextAttempt,
			"locked_until":    nil,
		}).Error
}
