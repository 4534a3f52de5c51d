package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/service"
)

// ChatHandler handles chat-related HTTP endpoints
type ChatHandler struct {
	chatService *service.ChatService
}

func NewChatHandler(chatService *service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// OpenChat godoc
// @Summary Get or create a chat about an item
// @Description Finds the chat between the caller and participant_id about item_id, or creates it. One of the two must own the item.
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body model.OpenChatRequest true "Item and participant"
// @Success 200 {object} model.Chat
// @Success 201 {object} model.Chat
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /chats [post]
func (h *ChatHandler) OpenChat(c *gin.Context) {
	var req model.OpenChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	chat, created, err := h.chatService.GetOrCreateChat(currentUserID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}

// GetChats godoc
// @Summary Get all chats for the current user
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.ChatResponse
// @Router /chats [get]
func (h *ChatHandler) GetChats(c *gin.Context) {
	chats, err := h.chatService.GetChats(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, chats)
}

// GetMessages godoc
// @Summary Get messages for a chat
// @Description Newest first. Loading the first page marks the other participant's messages as read.
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param before query string false "Cursor: message ID to get messages before"
// @Param limit query int false "Number of messages to return (default: 50)"
// @Success 200 {array} model.Message
// @Failure 404 {object} model.ErrorResponse
// @Router /chats/{id}/messages [get]
func (h *ChatHandler) GetMessages(c *gin.Context) {
	chatID, ok := pathID(c, "chat")
	if !ok {
		return
	}

	var req model.MessageListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request"})
		return
	}

	var before *uuid.UUID
	if req.Before != "" {
		parsed, err := uuid.Parse(req.Before)
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid cursor"})
			return
		}
		before = &parsed
	}

	messages, err := h.chatService.GetMessages(chatID, currentUserID(c), before, req.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, messages)
}

// SendMessage godoc
// @Summary Send a message to a chat
// @Tags Chats
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Param body body model.SendMessageRequest true "Message"
// @Success 201 {object} model.Message
// @Failure 400 {object} model.ErrorResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /chats/{id}/messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	chatID, ok := pathID(c, "chat")
	if !ok {
		return
	}

	var req model.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Invalid request", Message: err.Error()})
		return
	}

	msg, err := h.chatService.SendMessage(c.Request.Context(), chatID, currentUserID(c), req.Text)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// MarkAsRead godoc
// @Summary Mark the other participant's messages as read
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Param id path string true "Chat ID"
// @Success 200 {object} model.CountResponse
// @Failure 404 {object} model.ErrorResponse
// @Router /chats/{id}/read [post]
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	chatID, ok := pathID(c, "chat")
	if !ok {
		return
	}

	n, err := h.chatService.MarkRead(chatID, currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CountResponse{Count: n})
}

// UnreadCount godoc
// @Summary Count unread messages across all chats
// @Tags Chats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.CountResponse
// @Router /chats/unread-count [get]
func (h *ChatHandler) UnreadCount(c *gin.Context) {
	n, err := h.chatService.GetUnreadCount(currentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, model.CountResponse{Count: n})
}
