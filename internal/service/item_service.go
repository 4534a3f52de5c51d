package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"go.uber.org/zap"
)

// PhotoStore keeps item photos and returns their public URL
type PhotoStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}

// MaxPhotoSize bounds item photo uploads
const MaxPhotoSize = 10 << 20

// ItemService handles lost and found reports
type ItemService struct {
	itemRepo *repository.ItemRepository
	outbox   *OutboxProcessor
	notifier Notifier
	photos   PhotoStore
	log      *zap.Logger
}

func NewItemService(
	itemRepo *repository.ItemRepository,
	outbox *OutboxProcessor,
	notifier Notifier,
	photos PhotoStore,
	log *zap.Logger,
) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		outbox:   outbox,
		notifier: notifier,
		photos:   photos,
		log:      log.Named("item"),
	}
}

// Create stores the item together with its matching and broadcast work.
// Matching is attempted before returning so the response can list matches;
// if that attempt fails the item is still reported as created and the
// outbox worker retries it. The broadcast always runs in the background.
func (s *ItemService) Create(ctx context.Context, userID uuid.UUID, req model.CreateItemRequest) (*model.CreateItemResponse, error) {
	item, err := newItem(userID, req)
	if err != nil {
		return nil, err
	}

	events := model.NewItemEvents(item.ID, time.Now().UTC())
	if err := s.itemRepo.CreateWithEvents(item, events); err != nil {
		return nil, persistenceError("create item", err)
	}
	s.log.Info("item created",
		zap.Stringer("item_id", item.ID),
		zap.String("kind", string(item.Kind)),
		zap.Stringer("user_id", userID))

	if full, err := s.itemRepo.FindByID(item.ID); err == nil {
		item = full
	}

	resp := &model.CreateItemResponse{Item: *item, Matches: []model.MatchResult{}}
	matches, err := s.outbox.Dispatch(ctx, events[0].ID)
	if err != nil {
		s.log.Warn("inline matching deferred", zap.Stringer("item_id", item.ID), zap.Error(err))
		resp.MatchingPending = true
		return resp, nil
	}
	if matches != nil {
		resp.Matches = matches
	}
	return resp, nil
}

func newItem(userID uuid.UUID, req model.CreateItemRequest) (*model.Item, error) {
	if !req.Kind.Valid() {
		return nil, validationError("kind must be lost or found")
	}
	item := &model.Item{
		ID:          uuid.New(),
		UserID:      userID,
		Kind:        req.Kind,
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		Color:       strings.TrimSpace(req.Color),
		Brand:       strings.TrimSpace(req.Brand),
		Location:    strings.TrimSpace(req.Location),
		OccurredAt:  req.OccurredAt.UTC(),
		Status:      model.ItemStatusActive,
	}
	switch {
	case item.Category == "":
		return nil, validationError("category is required")
	case item.Color == "":
		return nil, validationError("color is required")
	case item.Location == "":
		return nil, validationError("location is required")
	case req.OccurredAt.IsZero():
		return nil, validationError("occurred_at is required")
	}
	if item.Title == "" {
		item.Title = fmt.Sprintf("%s %s %s", strings.ToUpper(string(item.Kind[:1]))+string(item.Kind[1:]), item.Color, item.Category)
	}
	return item, nil
}

// Get returns an item by ID
func (s *ItemService) Get(id uuid.UUID) (*model.Item, error) {
	item, err := s.itemRepo.FindByID(id)
	if err != nil {
		return nil, lookupError("find item", err)
	}
	return item, nil
}

// Claim tells the owner of an active item that claimerID believes it is theirs
func (s *ItemService) Claim(ctx context.Context, itemID, claimerID uuid.UUID, message string) (*model.Notification, error) {
	item, err := s.Get(itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID == claimerID {
		return nil, validationError("cannot claim your own item")
	}
	if !item.IsActive() {
		return nil, validationError("item is already resolved")
	}

	body := strings.TrimSpace(message)
	if body == "" {
		body = fmt.Sprintf("Someone believes your %s %s is theirs", item.Color, item.Category)
	}
	return s.notifier.CreateNotification(ctx, item.UserID, model.NotificationItemClaimed,
		"Your item was claimed", body, &item.ID)
}

// Resolve closes an item so it no longer takes part in matching. Only the
// owner may resolve; resolving twice is a no-op.
func (s *ItemService) Resolve(itemID, userID uuid.UUID) (*model.Item, error) {
	item, err := s.Get(itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrNotFound
	}
	if !item.IsActive() {
		return item, nil
	}

	if err := s.itemRepo.UpdateStatus(itemID, model.ItemStatusResolved); err != nil {
		return nil, persistenceError("resolve item", err)
	}
	item.Status = model.ItemStatusResolved
	return item, nil
}

// SetPhoto uploads a photo for an item owned by userID
func (s *ItemService) SetPhoto(ctx context.Context, itemID, userID uuid.UUID, r io.Reader, size int64, contentType, ext string) (*model.Item, error) {
	if s.photos == nil {
		return nil, errors.New("photo storage is not configured")
	}
	if size <= 0 || size > MaxPhotoSize {
		return nil, validationError("photo must be between 1 byte and 10MB")
	}

	item, err := s.Get(itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, ErrNotFound
	}

	key := fmt.Sprintf("items/%s/%s%s", item.ID, uuid.NewString(), ext)
	url, err := s.photos.Upload(ctx, key, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload photo: %w", err)
	}
	if err := s.itemRepo.UpdatePhoto(item.ID, url); err != nil {
		return nil, persistenceError("save photo url", err)
	}
	item.PhotoURL = url
	return item, nil
}
