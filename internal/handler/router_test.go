package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/lostfound/internal/database"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"github.com/quocanhngo/lostfound/internal/service"
	"github.com/quocanhngo/lostfound/internal/ws"
	"github.com/quocanhngo/lostfound/pkg/auth"
	"github.com/quocanhngo/lostfound/pkg/push"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	*httptest.Server
	db    *gorm.DB
	hub   *ws.Hub
	jwt   *auth.JWTManager
	users *repository.UserRepository
	items *repository.ItemRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zap.NewNop()

	db := database.NewTestDB(t)
	userRepo := repository.NewUserRepository(db)
	itemRepo := repository.NewItemRepository(db)
	matchRepo := repository.NewMatchRepository(db)
	notifRepo := repository.NewNotificationRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	chatRepo := repository.NewChatRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	outboxRepo := repository.NewOutboxRepository(db)

	hub := ws.NewHub(nil, log)
	pushClient := push.New(nil, push.DefaultChunkSize, log)

	notifSvc := service.NewNotificationService(notifRepo, deviceRepo, userRepo, hub, pushClient, 4, log)
	matchSvc := service.NewMatchService(itemRepo, matchRepo, notifSvc, 80, 3, log)
	outbox := service.NewOutboxProcessor(outboxRepo, itemRepo, matchSvc, notifSvc, service.OutboxConfig{}, log)
	itemSvc := service.NewItemService(itemRepo, outbox, notifSvc, nil, log)
	chatSvc := service.NewChatService(chatRepo, msgRepo, itemRepo, userRepo, hub, ws.ChatRoom, notifSvc, log)
	deviceSvc := service.NewDeviceService(deviceRepo)

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	router := NewRouter(RouterConfig{
		CORSOrigins:   []string{"http://localhost:3000"},
		JWT:           jwtManager,
		Log:           log,
		Items:         NewItemHandler(itemSvc, matchSvc),
		Notifications: NewNotificationHandler(notifSvc),
		Devices:       NewDeviceHandler(deviceSvc),
		Chats:         NewChatHandler(chatSvc),
		WS:            NewWSHandler(hub, chatSvc, jwtManager, nil, []string{"http://localhost:3000"}, log),
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, db: db, hub: hub, jwt: jwtManager, users: userRepo, items: itemRepo}
}

type testUser struct {
	*model.User
	token string
}

func (s *testServer) user(t *testing.T, name string) testUser {
	t.Helper()
	now := time.Now().UTC()
	u := &model.User{Name: name, Email: name + "@example.com", EmailVerifiedAt: &now}
	if err := s.users.Create(u); err != nil {
		t.Fatal(err)
	}
	token, err := s.jwt.GenerateToken(u.ID, u.Name)
	if err != nil {
		t.Fatal(err)
	}
	return testUser{User: u, token: token}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, s.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (s *testServer) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) model.WSInbound {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev model.WSInbound
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func expectSilence(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var ev model.WSInbound
	if err := conn.ReadJSON(&ev); err == nil {
		t.Errorf("unexpected event %q", ev.Type)
	}
}

func TestRequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/api/v1/notifications", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}

	resp = s.do(t, http.MethodGet, "/api/v1/notifications", "not-a-jwt", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", resp.StatusCode)
	}

	url := "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
	_, wsResp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("handshake without token succeeded")
	}
	if wsResp == nil || wsResp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %v, want 401", wsResp)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

func TestCreateItemReturnsMatches(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")
	day := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	bobConn := s.dial(t, bob.token)
	waitFor(t, "bob online", func() bool { return s.hub.IsUserOnline(bob.ID) })

	resp := s.do(t, http.MethodPost, "/api/v1/items", bob.token, model.CreateItemRequest{
		Kind: model.ItemKindFound, Category: "Bag", Color: "Black", Location: "Main Library", OccurredAt: day,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create found: status %d", resp.StatusCode)
	}

	resp = s.do(t, http.MethodPost, "/api/v1/items", alice.token, model.CreateItemRequest{
		Kind: model.ItemKindLost, Category: "bag", Color: "black", Location: "main library", OccurredAt: day,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create lost: status %d", resp.StatusCode)
	}
	created := decode[model.CreateItemResponse](t, resp)
	if created.MatchingPending || len(created.Matches) != 1 || created.Matches[0].Score != 100 {
		t.Fatalf("response = %+v", created)
	}

	ev := readEvent(t, bobConn)
	if ev.Type != model.WSEventNewNotification {
		t.Fatalf("bob got %q, want new_notification", ev.Type)
	}
	var n model.Notification
	json.Unmarshal(ev.Payload, &n)
	if n.Type != model.NotificationMatchFound {
		t.Errorf("notification type = %q, want match_found", n.Type)
	}

	resp = s.do(t, http.MethodGet, "/api/v1/items/"+created.Item.ID.String()+"/matches", bob.token, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("matches of someone else's item: status %d, want 404", resp.StatusCode)
	}
}

func TestCreateItemValidation(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice")

	resp := s.do(t, http.MethodPost, "/api/v1/items", alice.token, map[string]any{"kind": "stolen"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestDeviceTokenReassignment(t *testing.T) {
	s := newTestServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")
	req := model.RegisterDeviceRequest{Token: "shared-token", Platform: "android"}

	for _, u := range []testUser{alice, bob} {
		if resp := s.do(t, http.MethodPost, "/api/v1/devices", u.token, req); resp.StatusCode != http.StatusOK {
			t.Fatalf("register for %s: status %d", u.Name, resp.StatusCode)
		}
	}

	var rows []model.DeviceToken
	s.db.Where("token = ?", "shared-token").Find(&rows)
	if len(rows) != 1 || rows[0].UserID != bob.ID {
		t.Errorf("rows = %+v, want a single row owned by bob", rows)
	}

	if resp := s.do(t, http.MethodDelete, "/api/v1/devices", alice.token, model.UnregisterDeviceRequest{Token: "shared-token"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("alice unregister: status %d, want 404", resp.StatusCode)
	}
}

func TestNotificationEndpoints(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	claimer := s.user(t, "claimer")
	item := &model.Item{
		UserID: owner.ID, Kind: model.ItemKindFound, Category: "Phone", Color: "Red",
		Location: "Gym", OccurredAt: time.Now().UTC(), Status: model.ItemStatusActive,
	}
	if err := s.items.Create(item); err != nil {
		t.Fatal(err)
	}

	if resp := s.do(t, http.MethodPost, "/api/v1/items/"+item.ID.String()+"/claim", claimer.token, model.ClaimItemRequest{Message: "mine"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("claim: status %d", resp.StatusCode)
	}

	list := decode[model.NotificationListResponse](t, s.do(t, http.MethodGet, "/api/v1/notifications", owner.token, nil))
	if list.Total != 1 || list.UnreadCount != 1 || list.Items[0].Type != model.NotificationItemClaimed {
		t.Fatalf("list = %+v", list)
	}
	id := list.Items[0].ID.String()

	if resp := s.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", claimer.token, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("foreign mark read: status %d, want 404", resp.StatusCode)
	}
	for range 2 {
		if resp := s.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", owner.token, nil); resp.StatusCode != http.StatusOK {
			t.Errorf("mark read: status %d", resp.StatusCode)
		}
	}

	count := decode[model.CountResponse](t, s.do(t, http.MethodGet, "/api/v1/notifications/unread-count", owner.token, nil))
	if count.Count != 0 {
		t.Errorf("unread = %d, want 0", count.Count)
	}

	if resp := s.do(t, http.MethodDelete, "/api/v1/notifications/"+id, owner.token, nil); resp.StatusCode != http.StatusOK {
		t.Errorf("delete: status %d", resp.StatusCode)
	}
	if resp := s.do(t, http.MethodPatch, "/api/v1/notifications/not-a-uuid/read", owner.token, nil); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id: status %d, want 400", resp.StatusCode)
	}
}

// openChat creates an item owned by owner and a chat about it with other
func (s *testServer) openChat(t *testing.T, owner, other testUser) uuid.UUID {
	t.Helper()
	item := &model.Item{
		UserID: owner.ID, Kind: model.ItemKindLost, Category: "Bag", Color: "Black",
		Location: "Hall", OccurredAt: time.Now().UTC(), Status: model.ItemStatusActive,
	}
	if err := s.items.Create(item); err != nil {
		t.Fatal(err)
	}
	resp := s.do(t, http.MethodPost, "/api/v1/chats", other.token, model.OpenChatRequest{ItemID: item.ID, ParticipantID: owner.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("open chat: status %d", resp.StatusCode)
	}
	return decode[model.Chat](t, resp).ID
}

func join(t *testing.T, s *testServer, conn *websocket.Conn, chatID uuid.UUID, members int) {
	t.Helper()
	err := conn.WriteJSON(map[string]any{
		"type":    model.WSEventJoinChat,
		"payload": model.ChatRoomPayload{ChatID: chatID},
	})
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "join", func() bool { return s.hub.RoomSize(ws.ChatRoom(chatID)) == members })
}

func TestTypingStaysInConversation(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	finder := s.user(t, "finder")
	outsider := s.user(t, "outsider")
	stranger := s.user(t, "stranger")

	chatC := s.openChat(t, owner, finder)
	chatD := s.openChat(t, outsider, stranger)

	ownerConn := s.dial(t, owner.token)
	finderConn := s.dial(t, finder.token)
	outsiderConn := s.dial(t, outsider.token)

	join(t, s, ownerConn, chatC, 1)
	join(t, s, finderConn, chatC, 2)
	join(t, s, outsiderConn, chatD, 1)

	err := finderConn.WriteJSON(map[string]any{
		"type":    model.WSEventTyping,
		"payload": model.TypingPayload{ChatID: chatC, IsTyping: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	ev := readEvent(t, ownerConn)
	if ev.Type != model.WSEventUserTyping {
		t.Fatalf("owner got %q, want user_typing", ev.Type)
	}
	var typing model.UserTypingPayload
	json.Unmarshal(ev.Payload, &typing)
	if typing.UserID != finder.ID || typing.ChatID != chatC || !typing.IsTyping || typing.Name != "finder" {
		t.Errorf("typing payload = %+v", typing)
	}

	expectSilence(t, finderConn)
	expectSilence(t, outsiderConn)
}

func TestJoinChatRequiresParticipant(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	finder := s.user(t, "finder")
	outsider := s.user(t, "outsider")
	chatID := s.openChat(t, owner, finder)

	conn := s.dial(t, outsider.token)
	conn.WriteJSON(map[string]any{
		"type":    model.WSEventJoinChat,
		"payload": model.ChatRoomPayload{ChatID: chatID},
	})

	ev := readEvent(t, conn)
	if ev.Type != model.WSEventError {
		t.Errorf("got %q, want error", ev.Type)
	}
	if s.hub.RoomSize(ws.ChatRoom(chatID)) != 0 {
		t.Error("outsider joined the chat room")
	}
}

func TestSendMessageBroadcastsAndNotifies(t *testing.T) {
	s := newTestServer(t)
	owner := s.user(t, "owner")
	finder := s.user(t, "finder")
	chatID := s.openChat(t, owner, finder)

	ownerConn := s.dial(t, owner.token)
	join(t, s, ownerConn, chatID, 1)

	resp := s.do(t, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", finder.token, model.SendMessageRequest{Text: "found it"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("send: status %d", resp.StatusCode)
	}

	got := map[string]bool{}
	for range 2 {
		got[readEvent(t, ownerConn).Type] = true
	}
	if !got[model.WSEventNewMessage] || !got[model.WSEventNewNotification] {
		t.Errorf("owner events = %v, want new_message and new_notification", got)
	}

	unread := decode[model.CountResponse](t, s.do(t, http.MethodGet, "/api/v1/chats/unread-count", owner.token, nil))
	if unread.Count != 1 {
		t.Errorf("unread = %d, want 1", unread.Count)
	}

	if resp := s.do(t, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", finder.token, model.SendMessageRequest{Text: "   "}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank message: status %d, want 400", resp.StatusCode)
	}

	outsider := s.user(t, "outsider")
	if resp := s.do(t, http.MethodPost, "/api/v1/chats/"+chatID.String()+"/messages", outsider.token, model.SendMessageRequest{Text: "hi"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("outsider send: status %d, want 404", resp.StatusCode)
	}
}
