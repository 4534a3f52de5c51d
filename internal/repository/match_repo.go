package repository

import (
	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchRepository handles database operations for Match
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// CreateIfAbsent inserts m unless a row for the same (lost, found) pair exists.
// When the pair already exists m is overwritten with the stored row and
// created is false.
func (r *MatchRepository) CreateIfAbsent(m *model.Match) (bool, error) {
	result := r.db.
		Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "lost_item_id"}, {Name: "found_item_id"}},
			DoNothing: true,
		}).
		Create(m)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}

	var existing model.Match
	err := r.db.
		Where("lost_item_id = ? AND found_item_id = ?", m.LostItemID, m.FoundItemID).
		First(&existing).Error
	if err != nil {
		return false, err
	}
	*m = existing
	return false, nil
}

// MarkNotified flags that both owners were told about the match
func (r *MatchRepository) MarkNotified(id uuid.UUID) error {
	return r.db.Model(&model.Match{}).
		Where("id = ?", id).
		Update("notified", true).Error
}

// ListForItem returns all matches that involve itemID, best score first
func (r *MatchRepository) ListForItem(itemID uuid.UUID) ([]model.Match, error) {
	matches := []model.Match{}
	err := r.db.
		Preload("LostItem.User").
		Preload("FoundItem.User").
		Where("lost_item_id = ? OR found_item_id = ?", itemID, itemID).
		Order("score DESC, created_at DESC").
		Find(&matches).Error
	return matches, err
}
