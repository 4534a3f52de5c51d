package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
)

func TestCreateNotificationDeliversBothChannels(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)
	if err := e.devices.Upsert(alice.ID, "tok-1", "android"); err != nil {
		t.Fatal(err)
	}
	if err := e.devices.Upsert(alice.ID, "tok-2", "ios"); err != nil {
		t.Fatal(err)
	}

	n, err := e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationItemClaimed, "Claimed", "body", nil)
	if err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if n.ID == uuid.Nil || n.IsRead {
		t.Errorf("notification = %+v", n)
	}

	if e.live.count(alice.ID) != 1 {
		t.Errorf("live events = %d, want 1", e.live.count(alice.ID))
	}
	if e.push.callCount() != 1 || len(e.push.calls[0]) != 2 {
		t.Errorf("push calls = %v, want one call with 2 tokens", e.push.calls)
	}
}

func TestCreateNotificationWithoutTokensSkipsPush(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)

	if _, err := e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "New", "", nil); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if e.push.callCount() != 0 {
		t.Errorf("push called %d times, want 0", e.push.callCount())
	}
}

func TestCreateNotificationSurvivesLiveFailure(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)
	e.live.err = errors.New("redis down")

	if _, err := e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "New", "", nil); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}
	if n := e.countNotifications(t, alice.ID, model.NotificationNewItem); n != 1 {
		t.Errorf("persisted %d notifications, want 1", n)
	}
}

func TestCreateNotificationPrunesInvalidTokens(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)
	e.devices.Upsert(alice.ID, "good", "android")
	e.devices.Upsert(alice.ID, "stale", "android")
	e.push.invalid = []string{"stale"}

	if _, err := e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "New", "", nil); err != nil {
		t.Fatal(err)
	}

	tokens, err := e.devices.TokensForUser(alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 1 || tokens[0] != "good" {
		t.Errorf("tokens = %v, want [good]", tokens)
	}
}

func TestCreateNotificationValidation(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)

	cases := []struct {
		name   string
		userID uuid.UUID
		typ    model.NotificationType
		title  string
	}{
		{"no recipient", uuid.Nil, model.NotificationNewItem, "t"},
		{"bad type", alice.ID, "bogus", "t"},
		{"blank title", alice.ID, model.NotificationNewItem, "  "},
	}
	for _, tc := range cases {
		_, err := e.notifications.CreateNotification(context.Background(), tc.userID, tc.typ, tc.title, "", nil)
		if !errors.Is(err, ErrValidation) {
			t.Errorf("%s: error = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestNotifyAllUsersCompleteness(t *testing.T) {
	e := newTestEnv(t)
	actor := e.user(t, "actor", true)
	unverified := e.user(t, "unverified", false)

	const eligible = 12
	var recipients []*model.User
	for i := range eligible {
		recipients = append(recipients, e.user(t, "user"+string(rune('a'+i)), true))
	}

	itemID := uuid.New()
	created, err := e.notifications.NotifyAllUsers(context.Background(), model.NotificationNewItem, "New item", "body", &itemID, actor.ID)
	if err != nil {
		t.Fatalf("NotifyAllUsers: %v", err)
	}
	if len(created) != eligible {
		t.Fatalf("created %d notifications, want %d", len(created), eligible)
	}
	for i, n := range created {
		if n.UserID != recipients[i].ID {
			t.Errorf("notification %d for %s, want %s", i, n.UserID, recipients[i].ID)
		}
	}

	var total int64
	e.db.Model(&model.Notification{}).Count(&total)
	if total != eligible {
		t.Errorf("persisted %d notifications, want %d", total, eligible)
	}
	if n := e.countNotifications(t, actor.ID, model.NotificationNewItem); n != 0 {
		t.Errorf("actor received %d notifications", n)
	}
	if n := e.countNotifications(t, unverified.ID, model.NotificationNewItem); n != 0 {
		t.Errorf("unverified user received %d notifications", n)
	}
}

func TestMarkReadIsIdempotentAndScoped(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)

	n, err := e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "New", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := e.notifications.MarkRead(n.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkRead by other user error = %v, want ErrNotFound", err)
	}

	for range 2 {
		if err := e.notifications.MarkRead(n.ID, alice.ID); err != nil {
			t.Fatalf("MarkRead: %v", err)
		}
	}
	unread, err := e.notifications.UnreadCount(alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}
}

func TestMarkAllReadAndList(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)
	for range 3 {
		e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "New", "", nil)
	}

	page, err := e.notifications.List(alice.ID, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 || len(page.Items) != 2 || page.UnreadCount != 3 {
		t.Errorf("page = total %d, items %d, unread %d", page.Total, len(page.Items), page.UnreadCount)
	}

	n, err := e.notifications.MarkAllRead(alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("MarkAllRead updated %d, want 3", n)
	}
	if n, _ := e.notifications.MarkAllRead(alice.ID); n != 0 {
		t.Errorf("second MarkAllRead updated %d, want 0", n)
	}
}

func TestDeleteNotificationScoped(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)
	bob := e.user(t, "bob", true)
	n, _ := e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "New", "", nil)

	if err := e.notifications.Delete(n.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete by other user error = %v, want ErrNotFound", err)
	}
	if err := e.notifications.Delete(n.ID, alice.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := e.notifications.Delete(n.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete error = %v, want ErrNotFound", err)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	e := newTestEnv(t)
	alice := e.user(t, "alice", true)

	old := &model.Notification{
		UserID:    alice.ID,
		Type:      model.NotificationNewItem,
		Title:     "old",
		CreatedAt: time.Now().UTC().Add(-31 * 24 * time.Hour),
	}
	if err := e.notifs.Create(old); err != nil {
		t.Fatal(err)
	}
	e.notifications.CreateNotification(context.Background(), alice.ID, model.NotificationNewItem, "fresh", "", nil)

	n, err := e.notifications.PurgeOlderThan(30 * 24 * time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("purged %d, want 1", n)
	}
	if _, err := e.notifs.FindForUser(old.ID, alice.ID); err == nil {
		t.Error("old notification still present")
	}
}
