package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository handles push token registrations
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert registers token for userID. A token already known for another user
// is reassigned: the last registrant wins.
func (r *DeviceRepository) Upsert(userID uuid.UUID, token, platform string) error {
	device := model.DeviceToken{
		UserID:   userID,
		Token:    token,
		Platform: platform,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"user_id":    userID,
			"platform":   platform,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(&device).Error
}

// FindByToken returns the registration for token
func (r *DeviceRepository) FindByToken(token string) (*model.DeviceToken, error) {
	var device model.DeviceToken
	err := r.db.Where("token = ?", token).First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// TokensForUser returns all push tokens registered by userID
func (r *DeviceRepository) TokensForUser(userID uuid.UUID) ([]string, error) {
	tokens := []string{}
	err := r.db.Model(&model.DeviceToken{}).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Pluck("token", &tokens).Error
	return tokens, err
}

// Delete removes the user's registration of token
func (r *DeviceRepository) Delete(userID uuid.UUID, token string) (int64, error) {
	result := r.db.
		Where("user_id = ? AND token = ?", userID, token).
		Delete(&model.DeviceToken{})
	return result.RowsAffected, result.Error
}

// DeleteTokens removes tokens the push gateway reported as invalid
func (r *DeviceRepository) DeleteTokens(tokens []string) error {
	if len(tokens) == 0 {
		return nil
	}
	return r.db.
		Where("token IN ?", tokens).
		Delete(&model.DeviceToken{}).Error
}
