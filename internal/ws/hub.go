package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/metrics"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "lostfound:rooms"

// UserRoom is the personal room every admitted connection joins
func UserRoom(userID uuid.UUID) string {
	return "user:" + userID.String()
}

// ChatRoom is the room for one conversation
func ChatRoom(chatID uuid.UUID) string {
	return "chat:" + chatID.String()
}

// Hub tracks live connections and the rooms they joined.
// Rooms are only changed by a connection's own lifecycle: Register, Join,
// Leave and Unregister. With a Redis client, room publishes go through Redis
// Pub/Sub so every instance delivers to its own members.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}

	// Redis client for Pub/Sub (horizontal scaling); nil = single instance
	rdb *redis.Client

	log *zap.Logger
}

// NewHub creates a new WebSocket Hub
func NewHub(rdb *redis.Client, log *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		rdb:   rdb,
		log:   log.Named("ws"),
	}
}

// Run relays room publishes from Redis until ctx is cancelled
func (h *Hub) Run(ctx context.Context) {
	if h.rdb == nil {
		<-ctx.Done()
		return
	}
	h.subscribeRedis(ctx)
}

// Register admits an authenticated connection and joins it to its user room
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	h.joinLocked(client, UserRoom(client.UserID))
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	h.log.Info("✅ Client connected", zap.Stringer("user_id", client.UserID), zap.String("conn_id", client.ID))
}

// Unregister drops every room membership of the connection and closes its
// send channel. Calling it twice is safe.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if client.closed {
		h.mu.Unlock()
		return
	}
	for room := range client.rooms {
		h.leaveLocked(client, room)
	}
	client.closed = true
	close(client.send)
	h.mu.Unlock()

	metrics.WSConnections.Dec()
	h.log.Info("❌ Client disconnected", zap.Stringer("user_id", client.UserID), zap.String("conn_id", client.ID))
}

// Join adds the connection to room
func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client.closed {
		return
	}
	h.joinLocked(client, room)
}

// Leave removes the connection from room
func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(client, room)
}

func (h *Hub) joinLocked(client *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
	client.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(client *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(client.rooms, room)
}

// InRoom reports whether the connection is a member of room
func (h *Hub) InRoom(client *Client, room string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := client.rooms[room]
	return ok
}

// RoomSize returns the number of local connections in room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// IsUserOnline checks if a user has any active connections on this instance
func (h *Hub) IsUserOnline(userID uuid.UUID) bool {
	return h.RoomSize(UserRoom(userID)) > 0
}

// PublishToUser sends an event to every connection of the user.
// A user without a live connection is a silent no-op.
func (h *Hub) PublishToUser(userID uuid.UUID, event *model.WSEvent) error {
	return h.PublishToRoom(UserRoom(userID), event, "")
}

// PublishToRoom sends an event to all members of room except the connection
// whose ID equals exceptConnID (empty = nobody excluded)
func (h *Hub) PublishToRoom(room string, event *model.WSEvent, exceptConnID string) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	if h.rdb == nil {
		h.deliverLocal(room, data, exceptConnID)
		return nil
	}

	envelope, err := json.Marshal(roomEnvelope{
		Room:   room,
		Except: exceptConnID,
		Event:  data,
	})
	if err != nil {
		return err
	}
	return h.rdb.Publish(context.Background(), redisChannel, envelope).Err()
}

// deliverLocal writes data to the room's members on this instance.
// Connections whose buffer is full are dropped.
func (h *Hub) deliverLocal(room string, data []byte, exceptConnID string) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.rooms[room] {
		if client.ID == exceptConnID {
			continue
		}
		select {
		case client.send <- data:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		h.log.Warn("send buffer full, dropping connection", zap.String("conn_id", client.ID))
		h.Unregister(client)
	}
}

// ========== Redis Pub/Sub for Horizontal Scaling ==========

// roomEnvelope wraps an encoded event with its target room for Redis Pub/Sub
type roomEnvelope struct {
	Room   string          `json:"room"`
	Except string          `json:"except,omitempty"`
	Event  json.RawMessage `json:"event"`
}

// subscribeRedis subscribes to Redis and delivers events to local clients
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	h.log.Info("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var envelope roomEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
				h.log.Warn("Error unmarshaling Redis message", zap.Error(err))
				continue
			}
			h.deliverLocal(envelope.Room, envelope.Event, envelope.Except)
		}
	}
}
