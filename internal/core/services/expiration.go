package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

// ExpirationSweeper moves lapsed offers to expired and hands the freed
// capacity to the promotion pass.
type ExpirationSweeper struct {
	repos    Repositories
	promoter *PromotionService
	opts     options
}

func NewExpirationSweeper(repos Repositories, promoter *PromotionService, opts ...Option) *ExpirationSweeper {
	return &ExpirationSweeper{
		repos:    repos,
		promoter: promoter,
		opts:     newOptions(opts),
	}
}

// ExpireEntry is the per-entry timer path. It reports false when the entry
// was already settled or is still live; both are normal outcomes.
func (s *ExpirationSweeper) ExpireEntry(ctx context.Context, entryID uuid.UUID) (bool, error) {
	entry, err := s.expire(ctx, entryID)
	if err != nil || entry == nil {
		return false, err
	}

	s.promoter.promoteAfter(ctx, entry.Key(), "expiry")
	return true, nil
}

// Sweep expires every lapsed offer, then runs one promotion pass per
// affected pool. Each entry commits in its own transaction.
func (s *ExpirationSweeper) Sweep(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("expiration").Observe(time.Since(start).Seconds())
	}()

	var lapsed []domain.WaitingListEntry
	err := withRetry(ctx, s.opts.logger, "list lapsed offers", s.opts.maxRetries, s.opts.retryBackoff, func() error {
		var err error
		lapsed, err = s.repos.Entries.LapsedOffers(ctx, s.opts.clock.Now(), s.opts.sweepBatch)
		return err
	})
	if err != nil {
		metrics.SweepFailures.WithLabelValues("expiration").Inc()
		return 0, fmt.Errorf("list lapsed offers: %w", err)
	}

	expired := 0
	touched := make(map[domain.InventoryKey]struct{})
	var errs []error

	for _, candidate := range lapsed {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		entry, err := s.expire(ctx, candidate.ID)
		if err != nil {
			metrics.SweepFailures.WithLabelValues("expiration").Inc()
			errs = append(errs, fmt.Errorf("expire entry %s: %w", candidate.ID, err))
			continue
		}
		if entry == nil {
			continue
		}

		expired++
		touched[entry.Key()] = struct{}{}
	}

	for key := range touched {
		s.promoter.promoteAfter(ctx, key, "sweep")
	}

	if expired > 0 {
		s.opts.logger.Info("expiration sweep finished", "expired", expired, "pools", len(touched))
	}

	return expired, errors.Join(errs...)
}

// expire commits one offered -> expired transition. A nil entry with a nil
// error means there was nothing to do.
func (s *ExpirationSweeper) expire(ctx context.Context, entryID uuid.UUID) (*domain.WaitingListEntry, error) {
	var expired *domain.WaitingListEntry

	err := withRetry(ctx, s.opts.logger, "expire offer", s.opts.maxRetries, s.opts.retryBackoff, func() error {
		var candidate *domain.WaitingListEntry

		err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
			entry, err := s.repos.Entries.GetEntry(ctx, entryID)
			if err != nil {
				return err
			}
			if entry.Status != domain.EntryOffered {
				return nil
			}

			if _, err := s.repos.Events.LockInventory(ctx, entry.Key()); err != nil {
				return err
			}

			entry, err = s.repos.Entries.GetEntry(ctx, entryID)
			if err != nil {
				return err
			}
			if !entry.IsOfferLapsed(s.opts.clock.Now()) {
				return nil
			}

			if err := entry.Expire(s.opts.clock.Now()); err != nil {
				return err
			}

			if err := s.repos.Entries.UpdateEntry(ctx, entry, domain.EntryOffered); err != nil {
				return err
			}

			candidate = entry
			return nil
		})
		if err != nil {
			return err
		}

		expired = candidate
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if expired == nil {
		return nil, nil
	}

	s.opts.scheduler.Cancel(entryID)
	metrics.OfferTransitions.WithLabelValues("expired").Inc()
	s.opts.logger.Info("offer expired", "entry_id", entryID, "user_id", expired.UserID)
	s.opts.publish(ctx, expired.EventID, domain.OfferExpired{
		EntryID: expired.ID,
		EventID: expired.EventID,
		UserID:  expired.UserID,
		At:      expired.UpdatedAt,
	})

	return expired, nil
}
