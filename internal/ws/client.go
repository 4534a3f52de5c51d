package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/lostfound/internal/model"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096

	sendBufferSize = 256
)

// Client represents a single WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	ID     string
	UserID uuid.UUID
	Name   string

	// guarded by hub.mu
	rooms  map[string]struct{}
	closed bool
}

// NewClient creates a new WebSocket client. conn may be nil for in-process
// clients that only consume Messages().
func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, name string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		ID:     uuid.NewString(),
		UserID: userID,
		Name:   name,
		rooms:  make(map[string]struct{}),
	}
}

// Messages exposes the outbound queue of the connection
func (c *Client) Messages() <-chan []byte {
	return c.send
}

// SendEvent queues an event for this connection only
func (c *Client) SendEvent(event *model.WSEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// MessageHandler is a callback for processing incoming WebSocket messages
type MessageHandler func(client *Client, event model.WSInbound)

// ReadPump pumps messages from the WebSocket connection to the handler
// Runs in a per-client goroutine
func (c *Client) ReadPump(handler MessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("WebSocket error", zap.Error(err))
			}
			break
		}

		var event model.WSInbound
		if err := json.Unmarshal(message, &event); err != nil {
			c.hub.log.Debug("Error parsing WebSocket message", zap.Error(err))
			continue
		}

		if handler != nil {
			handler(c, event)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Each event is written as its own text frame.
// Runs in a per-client goroutine
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
