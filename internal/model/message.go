package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a chat message. Only IsRead changes after creation.
type Message struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ChatID    uuid.UUID `json:"chat_id" gorm:"type:uuid;index;not null"`
	SenderID  uuid.UUID `json:"sender_id" gorm:"type:uuid;index;not null"`
	Text      string    `json:"text" gorm:"type:text;not null"`
	IsRead    bool      `json:"is_read" gorm:"index;not null;default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`

	// Relations
	Sender User `json:"sender" gorm:"foreignKey:SenderID"`
	Chat   Chat `json:"-" gorm:"foreignKey:ChatID;constraint:OnDelete:CASCADE"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
