package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat is a two-party conversation about one item. The participant pair is
// stored ordered (User1ID < User2ID) so the unique index covers both directions.
type Chat struct {
	ID              uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ItemID          uuid.UUID  `json:"item_id" gorm:"type:uuid;uniqueIndex:idx_chat_item_pair;not null"`
	User1ID         uuid.UUID  `json:"user1_id" gorm:"type:uuid;uniqueIndex:idx_chat_item_pair;index;not null"`
	User2ID         uuid.UUID  `json:"user2_id" gorm:"type:uuid;uniqueIndex:idx_chat_item_pair;index;not null"`
	LastMessage     string     `json:"last_message" gorm:"type:text"`
	LastMessageTime *time.Time `json:"last_message_time"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	// Relations
	Item  Item `json:"item" gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	User1 User `json:"user1" gorm:"foreignKey:User1ID"`
	User2 User `json:"user2" gorm:"foreignKey:User2ID"`
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// HasParticipant reports whether userID is one of the two members
func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// OtherParticipant returns the member that is not userID
func (c *Chat) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// OrderedPair returns a and b in storage order
func OrderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}
