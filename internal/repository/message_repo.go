package repository

import (
	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MessageRepository handles database operations for Message
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a new message
func (r *MessageRepository) Create(msg *model.Message) error {
	return r.db.Omit(clause.Associations).Create(msg).Error
}

// FindByID finds a message by ID with its sender
func (r *MessageRepository) FindByID(id uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.
		Preload("Sender").
		Where("id = ?", id).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByChat returns messages for a chat, newest first (cursor-based)
func (r *MessageRepository) ListByChat(chatID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	messages := []model.Message{}
	query := r.db.
		Preload("Sender").
		Where("chat_id = ?", chatID).
		Order("created_at DESC").
		Limit(limit)

	// Cursor-based pagination: get messages before a specific message
	if before != nil {
		var beforeMsg model.Message
		if err := r.db.Select("created_at").Where("id = ? AND chat_id = ?", before, chatID).First(&beforeMsg).Error; err != nil {
			return nil, err
		}
		query = query.Where("created_at < ?", beforeMsg.CreatedAt)
	}

	err := query.Find(&messages).Error
	return messages, err
}

// MarkReadForReader flips is_read on every message in the chat not sent by readerID
func (r *MessageRepository) MarkReadForReader(chatID, readerID uuid.UUID) (int64, error) {
	result := r.db.Model(&model.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, readerID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// CountUnreadInChat counts messages in one chat waiting for userID
func (r *MessageRepository) CountUnreadInChat(chatID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&model.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND is_read = ?", chatID, userID, false).
		Count(&count).Error
	return count, err
}

// CountUnreadForUser counts unread messages across all of userID's chats
func (r *MessageRepository) CountUnreadForUser(userID uuid.UUID) (int64, error) {
	var count int64

	chatIDs := r.db.Model(&model.Chat{}).
		Select("id").
		Where("user1_id = ? OR user2_id = ?", userID, userID)

	err := r.db.Model(&model.Message{}).
		Where("chat_id IN (?)", chatIDs).
		Where("sender_id <> ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}
