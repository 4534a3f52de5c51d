package model

import (
	"time"

	"github.com/google/uuid"
)

// ========== Item DTOs ==========

type CreateItemRequest struct {
	Kind        ItemKind  `json:"kind" binding:"required,oneof=lost found"`
	Title       string    `json:"title" binding:"max=200"`
	Description string    `json:"description"`
	Category    string    `json:"category" binding:"required,max=50"`
	Color       string    `json:"color" binding:"required,max=30"`
	Brand       string    `json:"brand" binding:"max=100"`
	Location    string    `json:"location" binding:"required,max=255"`
	OccurredAt  time.Time `json:"occurred_at" binding:"required"`
}

type ClaimItemRequest struct {
	Message string `json:"message" binding:"max=500"`
}

// MatchResult is a candidate accepted by the matching engine
type MatchResult struct {
	MatchID uuid.UUID `json:"match_id"`
	Item    Item      `json:"item"`
	Score   int       `json:"score"`
}

type CreateItemResponse struct {
	Item Item `json:"item"`
	// Matches is empty when matching was deferred to the background worker
	Matches         []MatchResult `json:"matches"`
	MatchingPending bool          `json:"matching_pending"`
}

// ========== Device DTOs ==========

type RegisterDeviceRequest struct {
	Token    string `json:"token" binding:"required,max=512"`
	Platform string `json:"platform" binding:"omitempty,oneof=android ios web"`
}

type UnregisterDeviceRequest struct {
	Token string `json:"token" binding:"required"`
}

// ========== Notification DTOs ==========

type NotificationListRequest struct {
	Page  int `form:"page,default=1"`
	Limit int `form:"limit,default=20"`
}

type NotificationListResponse struct {
	Items       []Notification `json:"items"`
	Total       int64          `json:"total"`
	UnreadCount int64          `json:"unread_count"`
	Page        int            `json:"page"`
	Limit       int            `json:"limit"`
}

// ========== Chat DTOs ==========

type OpenChatRequest struct {
	ItemID        uuid.UUID `json:"item_id" binding:"required"`
	ParticipantID uuid.UUID `json:"participant_id" binding:"required"`
}

type ChatResponse struct {
	Chat
	UnreadCount int64 `json:"unread_count"`
}

type SendMessageRequest struct {
	Text string `json:"text" binding:"required,max=4000"`
}

type MessageListRequest struct {
	Before string `form:"before"` // cursor for pagination (message ID)
	Limit  int    `form:"limit,default=50"`
}

// ========== Common ==========

type CountResponse struct {
	Count int64 `json:"count"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
