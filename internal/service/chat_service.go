package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RoomBroadcaster publishes an event to a room
type RoomBroadcaster interface {
	PublishToRoom(room string, event *model.WSEvent, exceptConnID string) error
}

// ChatService handles conversation business logic
type ChatService struct {
	chatRepo *repository.ChatRepository
	msgRepo  *repository.MessageRepository
	itemRepo *repository.ItemRepository
	userRepo *repository.UserRepository
	rooms    RoomBroadcaster
	roomName func(chatID uuid.UUID) string
	notifier Notifier
	locks    stripedLock
	log      *zap.Logger
}

func NewChatService(
	chatRepo *repository.ChatRepository,
	msgRepo *repository.MessageRepository,
	itemRepo *repository.ItemRepository,
	userRepo *repository.UserRepository,
	rooms RoomBroadcaster,
	roomName func(chatID uuid.UUID) string,
	notifier Notifier,
	log *zap.Logger,
) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		msgRepo:  msgRepo,
		itemRepo: itemRepo,
		userRepo: userRepo,
		rooms:    rooms,
		roomName: roomName,
		notifier: notifier,
		log:      log.Named("chat"),
	}
}

// GetOrCreateChat returns the conversation about itemID between userID and
// participantID, creating it on first use. One of the two must own the item.
func (s *ChatService) GetOrCreateChat(userID uuid.UUID, req model.OpenChatRequest) (*model.Chat, bool, error) {
	if req.ParticipantID == uuid.Nil || req.ItemID == uuid.Nil {
		return nil, false, validationError("item_id and participant_id are required")
	}
	if req.ParticipantID == userID {
		return nil, false, validationError("cannot start a chat with yourself")
	}

	item, err := s.itemRepo.FindByID(req.ItemID)
	if err != nil {
		return nil, false, lookupError("find item", err)
	}
	if item.UserID != userID && item.UserID != req.ParticipantID {
		return nil, false, ErrNotFound
	}
	if _, err := s.userRepo.FindByID(req.ParticipantID); err != nil {
		return nil, false, lookupError("find participant", err)
	}

	chat, err := s.chatRepo.FindByItemAndPair(req.ItemID, userID, req.ParticipantID)
	if err == nil {
		return chat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, persistenceError("find chat", err)
	}

	u1, u2 := model.OrderedPair(userID, req.ParticipantID)
	newChat := &model.Chat{ItemID: req.ItemID, User1ID: u1, User2ID: u2}
	if err := s.chatRepo.Create(newChat); err != nil {
		// A concurrent open may have won the unique index
		if existing, findErr := s.chatRepo.FindByItemAndPair(req.ItemID, u1, u2); findErr == nil {
			return existing, false, nil
		}
		return nil, false, persistenceError("create chat", err)
	}

	chat, err = s.chatRepo.FindByID(newChat.ID)
	if err != nil {
		return nil, false, persistenceError("reload chat", err)
	}
	return chat, true, nil
}

// GetChats returns all chats of a user with their unread counts
func (s *ChatService) GetChats(userID uuid.UUID) ([]model.ChatResponse, error) {
	chats, err := s.chatRepo.ListForUser(userID)
	if err != nil {
		return nil, persistenceError("list chats", err)
	}

	result := make([]model.ChatResponse, 0, len(chats))
	for i := range chats {
		unread, err := s.msgRepo.CountUnreadInChat(chats[i].ID, userID)
		if err != nil {
			return nil, persistenceError("count unread messages", err)
		}
		result = append(result, model.ChatResponse{
			Chat:        chats[i],
			UnreadCount: unread,
		})
	}
	return result, nil
}

// GetChat returns one chat if userID participates in it
func (s *ChatService) GetChat(chatID, userID uuid.UUID) (*model.Chat, error) {
	chat, err := s.chatRepo.FindByID(chatID)
	if err != nil {
		return nil, lookupError("find chat", err)
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotFound
	}
	return chat, nil
}

// IsParticipant reports whether userID is one of the chat's two members
func (s *ChatService) IsParticipant(chatID, userID uuid.UUID) (bool, error) {
	_, err := s.GetChat(chatID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// GetMessages returns a page of messages, newest first. Opening the first
// page marks the other participant's messages as read.
func (s *ChatService) GetMessages(chatID, userID uuid.UUID, before *uuid.UUID, limit int) ([]model.Message, error) {
	if _, err := s.GetChat(chatID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}

	msgs, err := s.msgRepo.ListByChat(chatID, before, limit)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationError("unknown cursor")
		}
		return nil, persistenceError("list messages", err)
	}

	if before == nil {
		if _, err := s.MarkRead(chatID, userID); err != nil {
			s.log.Warn("mark read on open failed", zap.Stringer("chat_id", chatID), zap.Error(err))
		}
	}
	return msgs, nil
}

// SendMessage persists a message and relays it. Messages of one chat are
// persisted and broadcast in send order. Broadcast and notification
// failures are logged and do not fail the send.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID uuid.UUID, text string) (*model.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, validationError("message text is required")
	}

	chat, err := s.GetChat(chatID, senderID)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.lock(chatID)
	msg, err := s.persistAndBroadcast(chat, senderID, text)
	unlock()
	if err != nil {
		return nil, err
	}

	title := "New message"
	if msg.Sender.Name != "" {
		title = "New message from " + msg.Sender.Name
	}
	recipient := chat.OtherParticipant(senderID)
	if _, err := s.notifier.CreateNotification(ctx, recipient, model.NotificationNewMessage,
		title, preview(text), &chat.ItemID); err != nil {
		s.log.Warn("message notification failed",
			zap.Stringer("chat_id", chatID),
			zap.Stringer("recipient_id", recipient),
			zap.Error(err))
	}

	return msg, nil
}

func (s *ChatService) persistAndBroadcast(chat *model.Chat, senderID uuid.UUID, text string) (*model.Message, error) {
	msg := &model.Message{
		ChatID:   chat.ID,
		SenderID: senderID,
		Text:     text,
	}
	if err := s.msgRepo.Create(msg); err != nil {
		return nil, persistenceError("create message", err)
	}

	if err := s.chatRepo.UpdateLastMessage(chat.ID, text, msg.CreatedAt); err != nil {
		s.log.Warn("failed to update last message", zap.Stringer("chat_id", chat.ID), zap.Error(err))
	}

	// Reload with sender info
	full, err := s.msgRepo.FindByID(msg.ID)
	if err != nil {
		s.log.Warn("failed to reload message", zap.Stringer("message_id", msg.ID), zap.Error(err))
		full = msg
	}

	if err := s.rooms.PublishToRoom(s.roomName(chat.ID), model.NewMessageEvent(full), ""); err != nil {
		s.log.Warn("message broadcast failed", zap.Stringer("chat_id", chat.ID), zap.Error(err))
	}
	return full, nil
}

// MarkRead flips every message of the other participant to read and tells
// the chat room how many were updated. Calling it again is a no-op.
func (s *ChatService) MarkRead(chatID, userID uuid.UUID) (int64, error) {
	if _, err := s.GetChat(chatID, userID); err != nil {
		return 0, err
	}

	n, err := s.msgRepo.MarkReadForReader(chatID, userID)
	if err != nil {
		return 0, persistenceError("mark messages read", err)
	}
	if n == 0 {
		return 0, nil
	}

	event := model.NewMessagesReadEvent(model.MessagesReadPayload{
		ChatID:   chatID,
		ReaderID: userID,
		Count:    n,
	})
	if err := s.rooms.PublishToRoom(s.roomName(chatID), event, ""); err != nil {
		s.log.Warn("read receipt broadcast failed", zap.Stringer("chat_id", chatID), zap.Error(err))
	}
	return n, nil
}

// GetUnreadCount counts unread messages waiting for userID across all chats
func (s *ChatService) GetUnreadCount(userID uuid.UUID) (int64, error) {
	n, err := s.msgRepo.CountUnreadForUser(userID)
	if err != nil {
		return 0, persistenceError("count unread messages", err)
	}
	return n, nil
}

const previewLength = 100

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLength {
		return text
	}
	return string(r[:previewLength]) + "…"
}
