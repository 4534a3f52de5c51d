package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/database"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"github.com/quocanhngo/lostfound/pkg/push"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeLive struct {
	mu     sync.Mutex
	events map[uuid.UUID][]*model.WSEvent
	err    error
}

func (f *fakeLive) PublishToUser(userID uuid.UUID, event *model.WSEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.events == nil {
		f.events = map[uuid.UUID][]*model.WSEvent{}
	}
	f.events[userID] = append(f.events[userID], event)
	return nil
}

func (f *fakeLive) count(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events[userID])
}

type roomPublish struct {
	room  string
	event *model.WSEvent
}

type fakeRooms struct {
	mu        sync.Mutex
	published []roomPublish
}

func (f *fakeRooms) PublishToRoom(room string, event *model.WSEvent, exceptConnID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, roomPublish{room: room, event: event})
	return nil
}

func (f *fakeRooms) ofType(typ string) []roomPublish {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []roomPublish
	for _, p := range f.published {
		if p.event.Type == typ {
			out = append(out, p)
		}
	}
	return out
}

type fakePush struct {
	mu      sync.Mutex
	calls   [][]string
	invalid []string
}

func (f *fakePush) SendBatch(ctx context.Context, tokens []string, msg push.Message) *push.BatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string(nil), tokens...))
	return &push.BatchResult{Sent: len(tokens), Chunks: 1, InvalidTokens: f.invalid}
}

func (f *fakePush) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testEnv struct {
	db       *gorm.DB
	users    *repository.UserRepository
	items    *repository.ItemRepository
	matches  *repository.MatchRepository
	notifs   *repository.NotificationRepository
	devices  *repository.DeviceRepository
	chats    *repository.ChatRepository
	messages *repository.MessageRepository
	outboxes *repository.OutboxRepository

	live  *fakeLive
	rooms *fakeRooms
	push  *fakePush

	notifications *NotificationService
	matcher       *MatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := database.NewTestDB(t)
	e := &testEnv{
		db:       db,
		users:    repository.NewUserRepository(db),
		items:    repository.NewItemRepository(db),
		matches:  repository.NewMatchRepository(db),
		notifs:   repository.NewNotificationRepository(db),
		devices:  repository.NewDeviceRepository(db),
		chats:    repository.NewChatRepository(db),
		messages: repository.NewMessageRepository(db),
		outboxes: repository.NewOutboxRepository(db),
		live:     &fakeLive{},
		rooms:    &fakeRooms{},
		push:     &fakePush{},
	}
	e.notifications = NewNotificationService(e.notifs, e.devices, e.users, e.live, e.push, 4, zap.NewNop())
	e.matcher = NewMatchService(e.items, e.matches, e.notifications, DefaultMatchThreshold, DefaultMatchWindowDays, zap.NewNop())
	return e
}

func (e *testEnv) user(t *testing.T, name string, verified bool) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com"}
	if verified {
		now := time.Now().UTC()
		u.EmailVerifiedAt = &now
	}
	if err := e.users.Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) item(t *testing.T, owner *model.User, kind model.ItemKind, location string, at time.Time) *model.Item {
	t.Helper()
	it := &model.Item{
		UserID:     owner.ID,
		Kind:       kind,
		Category:   "Bag",
		Color:      "Black",
		Location:   location,
		OccurredAt: at,
		Status:     model.ItemStatusActive,
	}
	if err := e.items.Create(it); err != nil {
		t.Fatalf("create item: %v", err)
	}
	return it
}

func (e *testEnv) countNotifications(t *testing.T, userID uuid.UUID, typ model.NotificationType) int64 {
	t.Helper()
	var n int64
	if err := e.db.Model(&model.Notification{}).
		Where("user_id = ? AND type = ?", userID, typ).
		Count(&n).Error; err != nil {
		t.Fatalf("count notifications: %v", err)
	}
	return n
}

var day0 = time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
