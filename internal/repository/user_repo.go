package repository

import (
	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
)

// UserRepository reads user records owned by the account service
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user (seeding and tests)
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListVerifiedIDs returns every verified user except excludeID, oldest first
func (r *UserRepository) ListVerifiedIDs(excludeID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{}
	err := r.db.Model(&model.User{}).
		Where("email_verified_at IS NOT NULL AND id <> ?", excludeID).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}
