package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemRepository handles database operations for Item
type ItemRepository struct {
	db *gorm.DB
}

func NewItemRepository(db *gorm.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// CandidateQuery selects items that may match a new report
type CandidateQuery struct {
	Kind          model.ItemKind
	Category      string
	Color         string
	From          time.Time
	To            time.Time
	ExcludeUserID uuid.UUID
}

// Create inserts a new item
func (r *ItemRepository) Create(item *model.Item) error {
	return r.db.Omit(clause.Associations).Create(item).Error
}

// CreateWithEvents inserts the item and its outbox rows in one transaction
func (r *ItemRepository) CreateWithEvents(item *model.Item, events []model.OutboxEvent) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.Create(&events).Error
	})
}

// FindByID finds an item with its owner
func (r *ItemRepository) FindByID(id uuid.UUID) (*model.Item, error) {
	var item model.Item
	err := r.db.
		Preload("User").
		Where("id = ?", id).
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// FindCandidates returns active items matching the gate fields of q.
// Category and color compare case-insensitively.
func (r *ItemRepository) FindCandidates(q CandidateQuery) ([]model.Item, error) {
	items := []model.Item{}
	err := r.db.
		Preload("User").
		Where("kind = ? AND status = ?", q.Kind, model.ItemStatusActive).
		Where("LOWER(category) = LOWER(?) AND LOWER(color) = LOWER(?)", q.Category, q.Color).
		Where("occurred_at BETWEEN ? AND ?", q.From, q.To).
		Where("user_id <> ?", q.ExcludeUserID).
		Order("occurred_at ASC").
		Find(&items).Error
	return items, err
}

// UpdateStatus sets the item's status
func (r *ItemRepository) UpdateStatus(id uuid.UUID, status model.ItemStatus) error {
	return r.db.Model(&model.Item{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdatePhoto stores the public URL of the item's photo
func (r *ItemRepository) UpdatePhoto(id uuid.UUID, url string) error {
	return r.db.Model(&model.Item{}).
		Where("id = ?", id).
		Update("photo_url", url).Error
}
