package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ChatRepository handles database operations for Chat
type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Create inserts a new chat. The participant pair must already be ordered.
func (r *ChatRepository) Create(chat *model.Chat) error {
	return r.db.Omit(clause.Associations).Create(chat).Error
}

// FindByID finds a chat with its item and participants
func (r *ChatRepository) FindByID(id uuid.UUID) (*model.Chat, error) {
	var chat model.Chat
	err := r.db.
		Preload("Item").
		Preload("User1").
		Preload("User2").
		Where("id = ?", id).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// FindByItemAndPair finds the chat about itemID between two users, in either order
func (r *ChatRepository) FindByItemAndPair(itemID, userA, userB uuid.UUID) (*model.Chat, error) {
	u1, u2 := model.OrderedPair(userA, userB)

	var chat model.Chat
	err := r.db.
		Preload("Item").
		Preload("User1").
		Preload("User2").
		Where("item_id = ? AND user1_id = ? AND user2_id = ?", itemID, u1, u2).
		First(&chat).Error
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// ListForUser returns the user's chats ordered by latest activity
func (r *ChatRepository) ListForUser(userID uuid.UUID) ([]model.Chat, error) {
	chats := []model.Chat{}
	err := r.db.
		Preload("Item").
		Preload("User1").
		Preload("User2").
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("COALESCE(last_message_time, created_at) DESC").
		Find(&chats).Error
	return chats, err
}

// UpdateLastMessage refreshes the denormalized listing fields
func (r *ChatRepository) UpdateLastMessage(chatID uuid.UUID, text string, at time.Time) error {
	return r.db.Model(&model.Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]interface{}{
			"last_message":      text,
			"last_message_time": at,
		}).Error
}
