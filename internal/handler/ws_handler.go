package handler

import (
	"encoding/json"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/lostfound/internal/middleware"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/service"
	"github.com/quocanhngo/lostfound/internal/ws"
	"github.com/quocanhngo/lostfound/pkg/auth"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// WSHandler handles WebSocket connections
type WSHandler struct {
	hub         *ws.Hub
	chatService *service.ChatService
	jwtManager  *auth.JWTManager
	rdb         *redis.Client
	upgrader    websocket.Upgrader
	log         *zap.Logger
}

// NewWSHandler creates the handler. Browser origins are checked against
// allowedOrigins; "*" allows any origin.
func NewWSHandler(hub *ws.Hub, chatService *service.ChatService, jwtManager *auth.JWTManager, rdb *redis.Client, allowedOrigins []string, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub:         hub,
		chatService: chatService,
		jwtManager:  jwtManager,
		rdb:         rdb,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
		log: log.Named("ws"),
	}
}

// HandleWebSocket authenticates the handshake, upgrades the connection and
// joins it to the caller's personal room.
// Clients connect with ws://host/ws?token=<jwt> or an Authorization header.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		tokenString, _ = auth.BearerToken(c.GetHeader("Authorization"))
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}

	revoked, err := middleware.IsRevoked(c.Request.Context(), h.rdb, tokenString)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Auth server error"})
		return
	}
	claims, err := h.jwtManager.ValidateToken(tokenString)
	if revoked || err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade error", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, claims.UserID, claims.Name)
	h.hub.Register(client)

	go client.WritePump()
	go client.ReadPump(h.handleWSMessage)
}

// handleWSMessage processes incoming WebSocket messages from clients
func (h *WSHandler) handleWSMessage(client *ws.Client, event model.WSInbound) {
	switch event.Type {
	case model.WSEventJoinChat:
		h.handleJoinChat(client, event)
	case model.WSEventLeaveChat:
		h.handleLeaveChat(client, event)
	case model.WSEventTyping:
		h.handleTyping(client, event)
	default:
		client.SendEvent(model.NewErrorEvent(event.Type, "unknown event type"))
	}
}

func decodeChatID(event model.WSInbound) (uuid.UUID, bool) {
	var payload model.ChatRoomPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.ChatID == uuid.Nil {
		return uuid.Nil, false
	}
	return payload.ChatID, true
}

// handleJoinChat admits the connection to a chat room it participates in
func (h *WSHandler) handleJoinChat(client *ws.Client, event model.WSInbound) {
	chatID, ok := decodeChatID(event)
	if !ok {
		client.SendEvent(model.NewErrorEvent(event.Type, "chat_id is required"))
		return
	}

	member, err := h.chatService.IsParticipant(chatID, client.UserID)
	if err != nil {
		h.log.Warn("participant check failed", zap.Stringer("chat_id", chatID), zap.Error(err))
		client.SendEvent(model.NewErrorEvent(event.Type, "could not join chat"))
		return
	}
	if !member {
		client.SendEvent(model.NewErrorEvent(event.Type, "chat not found"))
		return
	}

	h.hub.Join(client, ws.ChatRoom(chatID))
}

func (h *WSHandler) handleLeaveChat(client *ws.Client, event model.WSInbound) {
	chatID, ok := decodeChatID(event)
	if !ok {
		client.SendEvent(model.NewErrorEvent(event.Type, "chat_id is required"))
		return
	}
	h.hub.Leave(client, ws.ChatRoom(chatID))
}

// handleTyping relays a typing state to the other members of a joined room
func (h *WSHandler) handleTyping(client *ws.Client, event model.WSInbound) {
	var payload model.TypingPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil || payload.ChatID == uuid.Nil {
		client.SendEvent(model.NewErrorEvent(event.Type, "chat_id is required"))
		return
	}

	room := ws.ChatRoom(payload.ChatID)
	if !h.hub.InRoom(client, room) {
		client.SendEvent(model.NewErrorEvent(event.Type, "join the chat first"))
		return
	}

	typing := model.NewUserTypingEvent(model.UserTypingPayload{
		ChatID:   payload.ChatID,
		UserID:   client.UserID,
		Name:     client.Name,
		IsTyping: payload.IsTyping,
	})
	if err := h.hub.PublishToRoom(room, typing, client.ID); err != nil {
		h.log.Warn("typing relay failed", zap.Stringer("chat_id", payload.ChatID), zap.Error(err))
	}
}
