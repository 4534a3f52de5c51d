package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
)

// NotificationRepository handles database operations for Notification.
// Every per-row mutation is scoped by owner.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(n *model.Notification) error {
	return r.db.Create(n).Error
}

// FindForUser finds a notification owned by userID
func (r *NotificationRepository) FindForUser(id, userID uuid.UUID) (*model.Notification, error) {
	var n model.Notification
	err := r.db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// ListForUser returns a page of the user's notifications, newest first
func (r *NotificationRepository) ListForUser(userID uuid.UUID, offset, limit int) ([]model.Notification, int64, error) {
	items := []model.Notification{}
	var total int64

	query := r.db.Model(&model.Notification{}).Where("user_id = ?", userID).Session(&gorm.Session{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	return items, total, err
}

// CountUnread counts the user's unread notifications
func (r *NotificationRepository) CountUnread(userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flags one notification as read
func (r *NotificationRepository) MarkRead(id, userID uuid.UUID) error {
	return r.db.Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true).Error
}

// MarkAllRead flags every unread notification of the user as read
func (r *NotificationRepository) MarkAllRead(userID uuid.UUID) (int64, error) {
	result := r.db.Model(&model.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// Delete removes one notification owned by userID
func (r *NotificationRepository) Delete(id, userID uuid.UUID) (int64, error) {
	result := r.db.
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}

// DeleteOlderThan removes notifications created before cutoff
func (r *NotificationRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	result := r.db.
		Where("created_at < ?", cutoff).
		Delete(&model.Notification{})
	return result.RowsAffected, result.Error
}
