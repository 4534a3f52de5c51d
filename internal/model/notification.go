package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationNewItem     NotificationType = "new_item"
	NotificationMatchFound  NotificationType = "match_found"
	NotificationItemClaimed NotificationType = "item_claimed"
	NotificationNewMessage  NotificationType = "new_message"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationNewItem, NotificationMatchFound, NotificationItemClaimed, NotificationNewMessage:
		return true
	}
	return false
}

// Notification is the persisted record of a user-directed event.
// RelatedItemID is deliberately not a foreign key: the item may be deleted later.
type Notification struct {
	ID            uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID        `json:"user_id" gorm:"type:uuid;index;not null"`
	Type          NotificationType `json:"type" gorm:"type:varchar(30);not null"`
	Title         string           `json:"title" gorm:"size:200;not null"`
	Body          string           `json:"body" gorm:"type:text"`
	RelatedItemID *uuid.UUID       `json:"related_item_id,omitempty" gorm:"type:uuid"`
	IsRead        bool             `json:"is_read" gorm:"not null;default:false"`
	CreatedAt     time.Time        `json:"created_at" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
