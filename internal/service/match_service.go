package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quocanhngo/lostfound/internal/metrics"
	"github.com/quocanhngo/lostfound/internal/model"
	"github.com/quocanhngo/lostfound/internal/repository"
	"go.uber.org/zap"
)

const (
	DefaultMatchThreshold  = 80
	DefaultMatchWindowDays = 3
)

// Notifier creates and delivers one notification
type Notifier interface {
	CreateNotification(ctx context.Context, userID uuid.UUID, typ model.NotificationType, title, body string, relatedItemID *uuid.UUID) (*model.Notification, error)
}

// MatchService scores new items against active items of the opposite kind
// and persists the pairs that clear the threshold
type MatchService struct {
	itemRepo   *repository.ItemRepository
	matchRepo  *repository.MatchRepository
	notifier   Notifier
	threshold  int
	windowDays int
	log        *zap.Logger
}

func NewMatchService(
	itemRepo *repository.ItemRepository,
	matchRepo *repository.MatchRepository,
	notifier Notifier,
	threshold, windowDays int,
	log *zap.Logger,
) *MatchService {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	if windowDays <= 0 {
		windowDays = DefaultMatchWindowDays
	}
	return &MatchService{
		itemRepo:   itemRepo,
		matchRepo:  matchRepo,
		notifier:   notifier,
		threshold:  threshold,
		windowDays: windowDays,
		log:        log.Named("match"),
	}
}

// FindMatches scores item against its candidate pool, persists every
// candidate scoring at least the threshold and notifies both owners of each
// new match. Running it again for the same item creates no duplicate
// matches; owners of a match whose notification did not complete earlier
// are notified again.
func (s *MatchService) FindMatches(ctx context.Context, item *model.Item) ([]model.MatchResult, error) {
	if !item.Kind.Valid() {
		return nil, validationError("unknown item kind")
	}

	// window covers whole UTC calendar days on both sides
	day := civilDate(item.OccurredAt)
	candidates, err := s.itemRepo.FindCandidates(repository.CandidateQuery{
		Kind:          item.Kind.Opposite(),
		Category:      item.Category,
		Color:         item.Color,
		From:          day.AddDate(0, 0, -s.windowDays),
		To:            day.AddDate(0, 0, s.windowDays+1).Add(-time.Nanosecond),
		ExcludeUserID: item.UserID,
	})
	if err != nil {
		return nil, persistenceError("query match candidates", err)
	}

	results := []model.MatchResult{}
	for i := range candidates {
		candidate := &candidates[i]
		score := Score(item, candidate)
		if score < s.threshold {
			continue
		}

		match := model.NewMatch(item, candidate, score)
		created, err := s.matchRepo.CreateIfAbsent(match)
		if err != nil {
			return nil, persistenceError("create match", err)
		}
		if created {
			metrics.MatchesCreated.Inc()
			s.log.Info("match created",
				zap.Stringer("match_id", match.ID),
				zap.Stringer("lost_item_id", match.LostItemID),
				zap.Stringer("found_item_id", match.FoundItemID),
				zap.Int("score", score))
		}

		if !match.Notified {
			if err := s.notifyOwners(ctx, item, candidate, score); err != nil {
				return nil, err
			}
			if err := s.matchRepo.MarkNotified(match.ID); err != nil {
				return nil, persistenceError("mark match notified", err)
			}
		}

		results = append(results, model.MatchResult{
			MatchID: match.ID,
			Item:    *candidate,
			Score:   score,
		})
	}

	return results, nil
}

// notifyOwners tells each owner about the other item
func (s *MatchService) notifyOwners(ctx context.Context, item, candidate *model.Item, score int) error {
	if _, err := s.notifier.CreateNotification(ctx, item.UserID, model.NotificationMatchFound,
		"Possible match found", matchBody(item, candidate, score), &candidate.ID); err != nil {
		return err
	}
	if _, err := s.notifier.CreateNotification(ctx, candidate.UserID, model.NotificationMatchFound,
		"Possible match found", matchBody(candidate, item, score), &item.ID); err != nil {
		return err
	}
	return nil
}

func matchBody(own, other *model.Item, score int) string {
	return fmt.Sprintf("Your %s %s %s may match a %s report near %s (%d%% match)",
		own.Kind, own.Color, own.Category, other.Kind, other.Location, score)
}

// ListMatches returns the persisted matches of an item, visible to its owner only
func (s *MatchService) ListMatches(itemID, userID uuid.UUID) ([]model.Match, error) {
	item, err := s.itemRepo.FindByID(itemID)
	if err != nil {
		return nil, lookupError("find item", err)
	}
	if item.UserID != userID {
		return nil, ErrNotFound
	}

	matches, err := s.matchRepo.ListForItem(itemID)
	if err != nil {
		return nil, persistenceError("list matches", err)
	}
	return matches, nil
}
