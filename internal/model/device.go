package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceToken is a push gateway registration. Token is unique across all
// users: registering a known token moves it to the new user.
type DeviceToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;index;not null"`
	Token     string    `json:"-" gorm:"size:512;uniqueIndex;not null"`
	Platform  string    `json:"platform" gorm:"size:20"` // android, ios, web
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *DeviceToken) BeforeCreate(tx *gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
