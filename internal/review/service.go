// Package review records recall events: it reads a card, asks the leitner
// scheduler for the next state and writes it back under optimistic
// concurrency control.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/conorfennell/memobox/internal/domain"
	"github.com/conorfennell/memobox/internal/leitner"
	"github.com/conorfennell/memobox/internal/storage"
)

// DefaultMaxAttempts bounds the read-compute-write loop of Recall.
const DefaultMaxAttempts = 3

// CardStore is the persistence Service needs. *storage.DB implements it.
type CardStore interface {
	GetCard(ctx context.Context, id int64) (*domain.Card, error)
	UpdateRecallState(ctx context.Context, card *domain.Card, next leitner.State, event domain.RecallEvent) error
	DueCards(ctx context.Context, boxID int64, now time.Time, limit int) ([]domain.Card, error)
}

// Service orchestrates recall events.
type Service struct {
	store       CardStore
	scheduler   *leitner.Scheduler
	clock       Clock
	logger      *slog.Logger
	maxAttempts int
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the system clock.
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithMaxAttempts sets how often Recall tries before giving up on conflicts.
func WithMaxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// NewService returns a Service over store and scheduler.
func NewService(store CardStore, scheduler *leitner.Scheduler, opts ...Option) *Service {
	s := &Service{
		store:       store,
		scheduler:   scheduler,
		clock:       SystemClock{},
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scheduler returns the scheduler in use.
func (s *Service) Scheduler() *leitner.Scheduler { return s.scheduler }

// Recall records that the card was remembered or forgotten and returns the
// card with its new schedule. If another recall of the same card lands
// between read and write, the card is re-read and the transition recomputed.
// After maxAttempts conflicts the returned error wraps storage.ErrConflict.
func (s *Service) Recall(ctx context.Context, cardID int64, remembered bool) (*domain.Card, error) {
	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		card, err := s.store.GetCard(ctx, cardID)
		if err != nil {
			return nil, err
		}

		current := card.RecallState()
		if err := s.scheduler.Check(current); err != nil {
			return nil, fmt.Errorf("card %d: %w", cardID, err)
		}

		// The store keeps UTC milliseconds; return what a later read returns.
		now := s.clock.Now().UTC().Truncate(time.Millisecond)
		next := s.scheduler.RecordRecall(current, remembered, now)
		event := domain.RecallEvent{
			CardID:     card.ID,
			Remembered: remembered,
			FromIndex:  current.IntervalIndex,
			ToIndex:    next.IntervalIndex,
			RecordedAt: now,
		}

		err = s.store.UpdateRecallState(ctx, card, next, event)
		if err == nil {
			s.logger.Info("recall recorded",
				"card_id", card.ID,
				"remembered", remembered,
				"from", event.FromIndex,
				"to", event.ToIndex,
				"next_recall", next.NextRecallAt,
			)
			return card, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			return nil, err
		}

		lastErr = err
		s.logger.Warn("recall conflict, retrying", "card_id", cardID, "attempt", attempt, "error", err)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("recall card %d: gave up after %d attempts: %w", cardID, s.maxAttempts, lastErr)
}

// Due lists cards due now, optionally limited to one box.
func (s *Service) Due(ctx context.Context, boxID int64, limit int) ([]domain.Card, error) {
	return s.store.DueCards(ctx, boxID, s.clock.Now(), limit)
}
