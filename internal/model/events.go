package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// WSEvent is the envelope for every frame sent to a client
type WSEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// WSInbound is a frame received from a client; Payload is decoded per Type
type WSInbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client -> server
const (
	WSEventJoinChat  = "join_chat"
	WSEventLeaveChat = "leave_chat"
	WSEventTyping    = "typing"
)

// Server -> client
const (
	WSEventNewMessage      = "new_message"
	WSEventUserTyping      = "user_typing"
	WSEventNewNotification = "new_notification"
	WSEventMessagesRead    = "messages_read"
	WSEventError           = "error"
)

type ChatRoomPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

type TypingPayload struct {
	ChatID   uuid.UUID `json:"chat_id"`
	IsTyping bool      `json:"is_typing"`
}

type UserTypingPayload struct {
	ChatID   uuid.UUID `json:"chat_id"`
	UserID   uuid.UUID `json:"user_id"`
	Name     string    `json:"name"`
	IsTyping bool      `json:"is_typing"`
}

type MessagesReadPayload struct {
	ChatID   uuid.UUID `json:"chat_id"`
	ReaderID uuid.UUID `json:"reader_id"`
	Count    int64     `json:"count"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Message string `json:"message"`
}

func NewMessageEvent(msg *Message) *WSEvent {
	return &WSEvent{Type: WSEventNewMessage, Payload: msg}
}

func NewNotificationEvent(n *Notification) *WSEvent {
	return &WSEvent{Type: WSEventNewNotification, Payload: n}
}

func NewUserTypingEvent(p UserTypingPayload) *WSEvent {
	return &WSEvent{Type: WSEventUserTyping, Payload: p}
}

func NewMessagesReadEvent(p MessagesReadPayload) *WSEvent {
	return &WSEvent{Type: WSEventMessagesRead, Payload: p}
}

func NewErrorEvent(event, message string) *WSEvent {
	return &WSEvent{Type: WSEventError, Payload: ErrorPayload{Event: event, Message: message}}
}
