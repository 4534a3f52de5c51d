package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemKind tells whether the report is about something lost or something found
type ItemKind string

const (
	ItemKindLost  ItemKind = "lost"
	ItemKindFound ItemKind = "found"
)

// Opposite returns the kind an item is matched against
func (k ItemKind) Opposite() ItemKind {
	if k == ItemKindLost {
		return ItemKindFound
	}
	return ItemKindLost
}

func (k ItemKind) Valid() bool {
	return k == ItemKindLost || k == ItemKindFound
}

type ItemStatus string

const (
	ItemStatusActive   ItemStatus = "active"
	ItemStatusResolved ItemStatus = "resolved"
)

// Item is a lost or found report
type Item struct {
	ID          uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID  `json:"user_id" gorm:"type:uuid;index;not null"`
	Kind        ItemKind   `json:"kind" gorm:"type:varchar(10);index:idx_items_candidate,priority:1;not null"`
	Title       string     `json:"title" gorm:"size:200"`
	Description string     `json:"description" gorm:"type:text"`
	Category    string     `json:"category" gorm:"size:50;index:idx_items_candidate,priority:3;not null"`
	Color       string     `json:"color" gorm:"size:30;not null"`
	Brand       string     `json:"brand,omitempty" gorm:"size:100"` // empty = unknown
	Location    string     `json:"location" gorm:"size:255;not null"`
	OccurredAt  time.Time  `json:"occurred_at" gorm:"index;not null"`
	Status      ItemStatus `json:"status" gorm:"type:varchar(20);index:idx_items_candidate,priority:2;not null"`
	PhotoURL    string     `json:"photo_url,omitempty" gorm:"size:500"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relations
	User User `json:"user" gorm:"foreignKey:UserID"`
}

func (i *Item) BeforeCreate(tx *gorm.DB) error {
	ensureID(&i.ID)
	return nil
}

func (i *Item) IsActive() bool {
	return i.Status == ItemStatusActive
}
