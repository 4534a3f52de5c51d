package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/metrics"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"github.com/quocanhngo/lostfound/pkg/push"
	"go.uber.org/zap"
)

const DefaultFanoutWorkers = 8

// LivePublisher delivers an event to a user's live connections
type LivePublisher interface {
	PublishToUser(userID uuid.UUID, event *model.WSEvent) error
}

// PushSender hands a message to the push gateway
type PushSender interface {
	SendBatch(ctx context.Context, tokens []string, msg push.Message) *push.BatchResult
}

// NotificationService persists notifications and delivers them over the
// live channel and the push channel
type NotificationService struct {
	notifRepo  *repository.NotificationRepository
	deviceRepo *repository.DeviceRepository
	userRepo   *repository.UserRepository
	live       LivePublisher
	push       PushSender
	workers    int
	log        *zap.Logger
}

func NewNotificationService(
	notifRepo *repository.NotificationRepository,
	deviceRepo *repository.DeviceRepository,
	userRepo *repository.UserRepository,
	live LivePublisher,
	pushSender PushSender,
	workers int,
	log *zap.Logger,
) *NotificationService {
	if workers <= 0 {
		workers = DefaultFanoutWorkers
	}
	return &NotificationService{
		notifRepo:  notifRepo,
		deviceRepo: deviceRepo,
		userRepo:   userRepo,
		live:       live,
		push:       pushSender,
		workers:    workers,
		log:        log.Named("notification"),
	}
}

// CreateNotification persists a notification and then attempts live and push
// delivery concurrently. Only the persistence step can fail the call.
func (s *NotificationService) CreateNotification(
	ctx context.Context,
	userID uuid.UUID,
	typ model.NotificationType,
	title, body string,
	relatedItemID *uuid.UUID,
) (*model.Notification, error) {
	if userID == uuid.Nil {
		return nil, validationError("recipient is required")
	}
	if !typ.Valid() {
		return nil, validationError("unknown notification type")
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, validationError("title is required")
	}

	n := &model.Notification{
		UserID:        userID,
		Type:          typ,
		Title:         title,
		Body:          body,
		RelatedItemID: relatedItemID,
	}
	if err := s.notifRepo.Create(n); err != nil {
		return nil, persistenceError("create notification", err)
	}
	metrics.NotificationsCreated.WithLabelValues(string(typ)).Inc()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.deliverLive(n)
	}()
	go func() {
		defer wg.Done()
		s.deliverPush(ctx, n)
	}()
	wg.Wait()

	return n, nil
}

func (s *NotificationService) deliverLive(n *model.Notification) {
	if s.live == nil {
		return
	}
	if err := s.live.PublishToUser(n.UserID, model.NewNotificationEvent(n)); err != nil {
		metrics.LiveDeliveries.WithLabelValues("failed").Inc()
		s.log.Warn("live delivery failed",
			zap.Stringer("notification_id", n.ID),
			zap.Stringer("user_id", n.UserID),
			zap.Error(err))
		return
	}
	metrics.LiveDeliveries.WithLabelValues("published").Inc()
}

func (s *NotificationService) deliverPush(ctx context.Context, n *model.Notification) {
	if s.push == nil {
		return
	}
	tokens, err := s.deviceRepo.TokensForUser(n.UserID)
	if err != nil {
		s.log.Warn("device token lookup failed", zap.Stringer("user_id", n.UserID), zap.Error(err))
		return
	}
	if len(tokens) == 0 {
		return
	}

	data := map[string]string{
		"notification_id": n.ID.String(),
		"type":            string(n.Type),
	}
	if n.RelatedItemID != nil {
		data["item_id"] = n.RelatedItemID.String()
	}

	result := s.push.SendBatch(ctx, tokens, push.Message{Title: n.Title, Body: n.Body, Data: data})
	metrics.PushTokensSent.Add(float64(result.Sent))
	metrics.PushChunkFailures.Add(float64(result.FailedChunks))
	if err := result.Err(); err != nil {
		s.log.Warn("push delivery incomplete",
			zap.Stringer("notification_id", n.ID),
			zap.Int("sent", result.Sent),
			zap.Error(err))
	}

	if len(result.InvalidTokens) > 0 {
		metrics.PushInvalidTokens.Add(float64(len(result.InvalidTokens)))
		if err := s.deviceRepo.DeleteTokens(result.InvalidTokens); err != nil {
			s.log.Warn("failed to prune invalid tokens", zap.Error(err))
		}
	}
}

// NotifyAllUsers creates the same notification for every verified user except
// excludeID. Recipients are processed by a bounded pool of workers. The
// returned notifications keep recipient order; on failure the successful ones
// are still returned together with the first error.
func (s *NotificationService) NotifyAllUsers(
	ctx context.Context,
	typ model.NotificationType,
	title, body string,
	relatedItemID *uuid.UUID,
	excludeID uuid.UUID,
) ([]model.Notification, error) {
	recipients, err := s.userRepo.ListVerifiedIDs(excludeID)
	if err != nil {
		return nil, persistenceError("list recipients", err)
	}
	if len(recipients) == 0 {
		return []model.Notification{}, nil
	}

	created := make([]*model.Notification, len(recipients))
	errs := make([]error, len(recipients))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range min(s.workers, len(recipients)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				created[i], errs[i] = s.CreateNotification(ctx, recipients[i], typ, title, body, relatedItemID)
			}
		}()
	}
	for i := range recipients {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	out := make([]model.Notification, 0, len(recipients))
	var firstErr error
	for i, n := range created {
		if errs[i] != nil {
			if firstErr == nil {
				firstErr = errs[i]
			}
			continue
		}
		out = append(out, *n)
	}

	s.log.Info("broadcast notification",
		zap.String("type", string(typ)),
		zap.Int("recipients", len(recipients)),
		zap.Int("created", len(out)))
	return out, firstErr
}

// List returns one page of the user's notifications, newest first
func (s *NotificationService) List(userID uuid.UUID, page, limit int) (*model.NotificationListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	items, total, err := s.notifRepo.ListForUser(userID, (page-1)*limit, limit)
	if err != nil {
		return nil, persistenceError("list notifications", err)
	}
	unread, err := s.notifRepo.CountUnread(userID)
	if err != nil {
		return nil, persistenceError("count unread notifications", err)
	}

	return &model.NotificationListResponse{
		Items:       items,
		Total:       total,
		UnreadCount: unread,
		Page:        page,
		Limit:       limit,
	}, nil
}

func (s *NotificationService) UnreadCount(userID uuid.UUID) (int64, error) {
	n, err := s.notifRepo.CountUnread(userID)
	if err != nil {
		return 0, persistenceError("count unread notifications", err)
	}
	return n, nil
}

// MarkRead marks one notification read. Ownership is checked before the
// update; a notification of another user is reported as not found. Marking
// an already-read notification succeeds without changes.
func (s *NotificationService) MarkRead(id, userID uuid.UUID) error {
	n, err := s.notifRepo.FindForUser(id, userID)
	if err != nil {
		return lookupError("find notification", err)
	}
	if n.IsRead {
		return nil
	}
	if err := s.notifRepo.MarkRead(id, userID); err != nil {
		return persistenceError("mark notification read", err)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(userID uuid.UUID) (int64, error) {
	n, err := s.notifRepo.MarkAllRead(userID)
	if err != nil {
		return 0, persistenceError("mark all notifications read", err)
	}
	return n, nil
}

// Delete removes one notification owned by userID
func (s *NotificationService) Delete(id, userID uuid.UUID) error {
	n, err := s.notifRepo.Delete(id, userID)
	if err != nil {
		return persistenceError("delete notification", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// PurgeOlderThan deletes notifications created before now-maxAge
func (s *NotificationService) PurgeOlderThan(maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	n, err := s.notifRepo.DeleteOlderThan(cutoff)
	if err != nil {
		return 0, persistenceError("purge notifications", err)
	}
	metrics.NotificationsPurged.Add(float64(n))
	return n, nil
}
