package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is owned by the account service; this service only reads it for
// display fields and the verified flag.
type User struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	Name            string     `json:"name" gorm:"size:100;not null"`
	Email           string     `json:"-" gorm:"uniqueIndex;not null;size:255"`
	Avatar          string     `json:"avatar" gorm:"size:500;default:''"`
	EmailVerifiedAt *time.Time `json:"-"` // NULL = not verified
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// IsVerified reports whether the user completed email verification.
// Only verified users receive broadcast notifications.
func (u *User) IsVerified() bool {
	return u.EmailVerifiedAt != nil
}
