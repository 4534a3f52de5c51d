package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/database"
	"github.com/quocanhngo/lostfound/internal/model"
)

func createUser(t *testing.T, r *UserRepository, name string, verified bool) *model.User {
	t.Helper()
	u := &model.User{Name: name, Email: name + "@example.com"}
	if verified {
		now := time.Now().UTC()
		u.EmailVerifiedAt = &now
	}
	if err := r.Create(u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func TestDeviceUpsertReassignsToken(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewUserRepository(db)
	devices := NewDeviceRepository(db)
	alice := createUser(t, users, "alice", true)
	bob := createUser(t, users, "bob", true)

	if err := devices.Upsert(alice.ID, "tok", "ios"); err != nil {
		t.Fatal(err)
	}
	if err := devices.Upsert(bob.ID, "tok", "android"); err != nil {
		t.Fatal(err)
	}

	var count int64
	db.Model(&model.DeviceToken{}).Where("token = ?", "tok").Count(&count)
	if count != 1 {
		t.Fatalf("%d rows for token, want 1", count)
	}

	d, err := devices.FindByToken("tok")
	if err != nil {
		t.Fatal(err)
	}
	if d.UserID != bob.ID || d.Platform != "android" {
		t.Errorf("device = %+v, want owned by bob on android", d)
	}

	if tokens, _ := devices.TokensForUser(alice.ID); len(tokens) != 0 {
		t.Errorf("alice still has tokens %v", tokens)
	}
}

func TestDeleteTokens(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewUserRepository(db)
	devices := NewDeviceRepository(db)
	alice := createUser(t, users, "alice", true)
	for _, tok := range []string{"a", "b", "c"} {
		devices.Upsert(alice.ID, tok, "web")
	}

	if err := devices.DeleteTokens([]string{"a", "c"}); err != nil {
		t.Fatal(err)
	}
	tokens, _ := devices.TokensForUser(alice.ID)
	if len(tokens) != 1 || tokens[0] != "b" {
		t.Errorf("tokens = %v, want [b]", tokens)
	}
}

func TestListVerifiedIDs(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewUserRepository(db)
	actor := createUser(t, users, "actor", true)
	v := createUser(t, users, "verified", true)
	createUser(t, users, "pending", false)

	ids, err := users.ListVerifiedIDs(actor.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != v.ID {
		t.Errorf("ids = %v, want [%s]", ids, v.ID)
	}
}

func TestMatchCreateIfAbsent(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewUserRepository(db)
	items := NewItemRepository(db)
	matches := NewMatchRepository(db)
	alice := createUser(t, users, "alice", true)
	bob := createUser(t, users, "bob", true)

	now := time.Now().UTC()
	lost := &model.Item{UserID: alice.ID, Kind: model.ItemKindLost, Category: "Bag", Color: "Black", Location: "Hall", OccurredAt: now, Status: model.ItemStatusActive}
	found := &model.Item{UserID: bob.ID, Kind: model.ItemKindFound, Category: "Bag", Color: "Black", Location: "Hall", OccurredAt: now, Status: model.ItemStatusActive}
	items.Create(lost)
	items.Create(found)

	first := model.NewMatch(lost, found, 90)
	created, err := matches.CreateIfAbsent(first)
	if err != nil || !created {
		t.Fatalf("first CreateIfAbsent = %v, %v", created, err)
	}
	matches.MarkNotified(first.ID)

	// argument order does not matter
	second := model.NewMatch(found, lost, 90)
	created, err = matches.CreateIfAbsent(second)
	if err != nil || created {
		t.Fatalf("second CreateIfAbsent = %v, %v", created, err)
	}
	if second.ID != first.ID || !second.Notified {
		t.Errorf("second = %+v, want the stored row", second)
	}
}

func TestOutboxClaimLease(t *testing.T) {
	db := database.NewTestDB(t)
	outbox := NewOutboxRepository(db)
	now := time.Now().UTC()

	events := model.NewItemEvents(uuid.New(), now)
	if err := db.Create(&events).Error; err != nil {
		t.Fatal(err)
	}
	id := events[0].ID

	ok, err := outbox.Claim(id, now, now.Add(time.Minute))
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	if ok, _ := outbox.Claim(id, now, now.Add(time.Minute)); ok {
		t.Error("second claim succeeded while leased")
	}

	due, err := outbox.ListDue(now, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != events[1].ID {
		t.Errorf("due = %v, want only the unleased event", due)
	}

	// lease expired
	later := now.Add(2 * time.Minute)
	if ok, _ := outbox.Claim(id, later, later.Add(time.Minute)); !ok {
		t.Error("claim after lease expiry failed")
	}

	if err := outbox.MarkProcessed(id, later); err != nil {
		t.Fatal(err)
	}
	if ok, _ := outbox.Claim(id, later.Add(time.Hour), later.Add(2*time.Hour)); ok {
		t.Error("processed event was claimed")
	}
}

func TestMessageUnreadCounts(t *testing.T) {
	db := database.NewTestDB(t)
	users := NewUserRepository(db)
	items := NewItemRepository(db)
	chats := NewChatRepository(db)
	messages := NewMessageRepository(db)
	alice := createUser(t, users, "alice", true)
	bob := createUser(t, users, "bob", true)

	item := &model.Item{UserID: alice.ID, Kind: model.ItemKindLost, Category: "Bag", Color: "Black", Location: "Hall", OccurredAt: time.Now().UTC(), Status: model.ItemStatusActive}
	items.Create(item)
	u1, u2 := model.OrderedPair(alice.ID, bob.ID)
	chat := &model.Chat{ItemID: item.ID, User1ID: u1, User2ID: u2}
	if err := chats.Create(chat); err != nil {
		t.Fatal(err)
	}

	for _, sender := range []uuid.UUID{bob.ID, bob.ID, alice.ID} {
		if err := messages.Create(&model.Message{ChatID: chat.ID, SenderID: sender, Text: "x"}); err != nil {
			t.Fatal(err)
		}
	}

	if n, _ := messages.CountUnreadForUser(alice.ID); n != 2 {
		t.Errorf("alice unread = %d, want 2", n)
	}
	if n, _ := messages.MarkReadForReader(chat.ID, alice.ID); n != 2 {
		t.Errorf("MarkReadForReader = %d, want 2", n)
	}
	if n, _ := messages.MarkReadForReader(chat.ID, alice.ID); n != 0 {
		t.Errorf("second MarkReadForReader = %d, want 0", n)
	}
	if n, _ := messages.CountUnreadInChat(chat.ID, bob.ID); n != 1 {
		t.Errorf("bob unread = %d, want 1", n)
	}

	if _, err := chats.FindByItemAndPair(item.ID, bob.ID, alice.ID); err != nil {
		t.Errorf("FindByItemAndPair reversed: %v", err)
	}
}
