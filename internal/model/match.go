package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Match pairs one lost item with one found item. At most one row exists per pair.
type Match struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	LostItemID  uuid.UUID `json:"lost_item_id" gorm:"type:uuid;uniqueIndex:idx_match_pair;not null"`
	FoundItemID uuid.UUID `json:"found_item_id" gorm:"type:uuid;uniqueIndex:idx_match_pair;index;not null"`
	Score       int       `json:"score" gorm:"not null"`
	Notified    bool      `json:"notified" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	LostItem  Item `json:"lost_item" gorm:"foreignKey:LostItemID;constraint:OnDelete:CASCADE"`
	FoundItem Item `json:"found_item" gorm:"foreignKey:FoundItemID;constraint:OnDelete:CASCADE"`
}

func (m *Match) BeforeCreate(tx *gorm.DB) error {
	ensureID(&m.ID)
	return nil
}

// NewMatch orders a and b into the lost/found slots
func NewMatch(a, b *Item, score int) *Match {
	lost, found := a, b
	if a.Kind == ItemKindFound {
		lost, found = b, a
	}
	return &Match{
		LostItemID:  lost.ID,
		FoundItemID: found.ID,
		Score:       score,
	}
}
