package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/metrics"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNotClaimed is returned by Dispatch when another worker holds the event
var ErrNotClaimed = errors.New("outbox event not claimed")

const (
	backoffBase = 2 * time.Second
	backoffMax  = 10 * time.Minute
)

// Broadcaster notifies every eligible user
type Broadcaster interface {
	NotifyAllUsers(ctx context.Context, typ model.NotificationType, title, body string, relatedItemID *uuid.UUID, excludeID uuid.UUID) ([]model.Notification, error)
}

type OutboxConfig struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	Lease        time.Duration
}

// OutboxProcessor drains outbox events written with new items: matching and
// the new-item broadcast. Failed events are retried with exponential backoff
// until MaxAttempts, then parked as dead.
type OutboxProcessor struct {
	repo        *repository.OutboxRepository
	itemRepo    *repository.ItemRepository
	matcher     *MatchService
	broadcaster Broadcaster
	cfg         OutboxConfig
	now         func() time.Time
	log         *zap.Logger
}

func NewOutboxProcessor(
	repo *repository.OutboxRepository,
	itemRepo *repository.ItemRepository,
	matcher *MatchService,
	broadcaster Broadcaster,
	cfg OutboxConfig,
	log *zap.Logger,
) *OutboxProcessor {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 30 * time.Second
	}
	return &OutboxProcessor{
		repo:        repo,
		itemRepo:    itemRepo,
		matcher:     matcher,
		broadcaster: broadcaster,
		cfg:         cfg,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.Named("outbox"),
	}
}

// Run polls for due events until ctx is cancelled
func (p *OutboxProcessor) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.log.Info("🔄 Outbox worker started", zap.Duration("interval", p.cfg.PollInterval))
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Outbox worker stopped")
			return
		case <-ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.log.Error("outbox poll failed", zap.Error(err))
			}
		}
	}
}

// RunOnce processes one batch of due events and returns how many succeeded
func (p *OutboxProcessor) RunOnce(ctx context.Context) (int, error) {
	events, err := p.repo.ListDue(p.now(), p.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	done := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			break
		}
		if _, err := p.Dispatch(ctx, ev.ID); err == nil {
			done++
		}
	}
	return done, nil
}

// Dispatch claims and processes a single event. For item.match events the
// accepted matches are returned.
func (p *OutboxProcessor) Dispatch(ctx context.Context, id uuid.UUID) ([]model.MatchResult, error) {
	now := p.now()
	claimed, err := p.repo.Claim(id, now, now.Add(p.cfg.Lease))
	if err != nil {
		return nil, persistenceError("claim outbox event", err)
	}
	if !claimed {
		return nil, ErrNotClaimed
	}

	ev, err := p.repo.FindByID(id)
	if err != nil {
		return nil, persistenceError("load outbox event", err)
	}

	matches, handleErr := p.handle(ctx, ev)
	if handleErr != nil {
		p.fail(ev, handleErr)
		return nil, handleErr
	}

	if err := p.repo.MarkProcessed(ev.ID, p.now()); err != nil {
		// the work is done; a retry re-runs it idempotently for matches
		p.log.Warn("failed to mark outbox event processed", zap.Stringer("event_id", ev.ID), zap.Error(err))
	}
	metrics.OutboxEvents.WithLabelValues(ev.Type, string(model.OutboxProcessed)).Inc()
	return matches, nil
}

func (p *OutboxProcessor) handle(ctx context.Context, ev *model.OutboxEvent) ([]model.MatchResult, error) {
	item, err := p.itemRepo.FindByID(ev.AggregateID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		p.log.Info("item gone, skipping outbox event", zap.Stringer("event_id", ev.ID), zap.Stringer("item_id", ev.AggregateID))
		return nil, nil
	}
	if err != nil {
		return nil, persistenceError("load item", err)
	}

	switch ev.Type {
	case model.OutboxItemMatch:
		if !item.IsActive() {
			return []model.MatchResult{}, nil
		}
		return p.matcher.FindMatches(ctx, item)

	case model.OutboxItemBroadcast:
		title, body := newItemMessage(item)
		_, err := p.broadcaster.NotifyAllUsers(ctx, model.NotificationNewItem, title, body, &item.ID, item.UserID)
		return nil, err

	default:
		return nil, fmt.Errorf("unknown outbox event type %q", ev.Type)
	}
}

func (p *OutboxProcessor) fail(ev *model.OutboxEvent, cause error) {
	attempts := ev.Attempts + 1
	dead := attempts >= p.cfg.MaxAttempts
	next := p.now().Add(backoff(attempts))

	if err := p.repo.MarkFailed(ev.ID, attempts, cause.Error(), next, dead); err != nil {
		p.log.Error("failed to record outbox failure", zap.Stringer("event_id", ev.ID), zap.Error(err))
	}

	status := "retry"
	if dead {
		status = string(model.OutboxDead)
	}
	metrics.OutboxEvents.WithLabelValues(ev.Type, status).Inc()
	p.log.Warn("outbox event failed",
		zap.Stringer("event_id", ev.ID),
		zap.String("type", ev.Type),
		zap.Int("attempts", attempts),
		zap.Bool("dead", dead),
		zap.Error(cause))
}

// backoff returns the delay before the given attempt number is retried
func backoff(attempts int) time.Duration {
	d := backoffBase
	for i := 1; i < attempts; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	return d
}

func newItemMessage(item *model.Item) (string, string) {
	title := "New lost item reported"
	if item.Kind == model.ItemKindFound {
		title = "New found item reported"
	}
	body := fmt.Sprintf("%s %s near %s", item.Color, item.Category, item.Location)
	if item.Title != "" {
		body = item.Title + ": " + body
	}
	return title, body
}
