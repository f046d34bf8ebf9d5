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

// PromotionService turns waiting entries into offers as capacity frees up.
type PromotionService struct {
	repos  Repositories
	ledger *InventoryLedger
	locks  *KeyedMutex
	opts   options
}

func NewPromotionService(repos Repositories, ledger *InventoryLedger, opts ...Option) *PromotionService {
	return &PromotionService{
		repos:  repos,
		ledger: ledger,
		locks:  NewKeyedMutex(),
		opts:   newOptions(opts),
	}
}

// Promote offers freed capacity of key to waiting entries in strict FIFO
// order. Entries asking for more than what is left are skipped, never
// partially served. It returns the number of offers issued.
func (p *PromotionService) Promote(ctx context.Context, key domain.InventoryKey) (int, error) {
	unlock := p.locks.Lock(key.String())
	defer unlock()

	var promoted []domain.WaitingListEntry

	err := withRetry(ctx, p.opts.logger, "promote", p.opts.maxRetries, p.opts.retryBackoff, func() error {
		return p.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
			promoted = nil

			event, err := p.repos.Events.LockInventory(ctx, key)
			if err != nil {
				return err
			}

			if event.IsCancelled {
				return nil
			}

			avail, err := p.ledger.Availability(ctx, event, key)
			if err != nil {
				return err
			}

			remaining := avail.Remaining
			if remaining <= 0 {
				return nil
			}

			waiting, err := p.repos.Entries.WaitingEntries(ctx, key)
			if err != nil {
				return err
			}

			now := p.opts.clock.Now()
			for i := range waiting {
				if remaining <= 0 {
					break
				}

				entry := &waiting[i]
				if entry.Quantity > remaining {
					continue
				}

				if err := entry.Offer(now, p.opts.offerTTL); err != nil {
					return err
				}

				if err := p.repos.Entries.UpdateEntry(ctx, entry, domain.EntryWaiting); err != nil {
					return fmt.Errorf("promote entry %s: %w", entry.ID, err)
				}

				remaining -= entry.Quantity
				promoted = append(promoted, *entry)
			}

			return nil
		})
	})
	if err != nil {
		return 0, err
	}

	if len(promoted) == 0 {
		return 0, nil
	}

	events := make([]domain.DomainEvent, 0, len(promoted))
	for _, entry := range promoted {
		p.opts.scheduler.Schedule(entry.ID, *entry.OfferExpiresAt)
		events = append(events, offerIssued(&entry))
	}

	metrics.OfferTransitions.WithLabelValues("promoted").Add(float64(len(promoted)))
	p.opts.logger.Info("promoted waiting entries", "key", key.String(), "count", len(promoted))
	p.opts.publish(ctx, key.EventID, events...)

	return len(promoted), nil
}

// PromoteEvent runs a promotion pass for every pool of the event that has
// waiting entries.
func (p *PromotionService) PromoteEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	waiting, err := p.repos.Entries.EntriesByEventAndStatus(ctx, eventID, domain.EntryWaiting)
	if err != nil {
		return 0, err
	}
	if len(waiting) == 0 {
		if _, err := p.repos.Events.GetEvent(ctx, eventID); err != nil {
			return 0, err
		}
		return 0, nil
	}

	total := 0
	var errs []error
	for _, key := range poolsOf(waiting) {
		n, err := p.Promote(ctx, key)
		if err != nil {
			errs = append(errs, fmt.Errorf("promote %s: %w", key, err))
			continue
		}
		total += n
	}

	return total, errors.Join(errs...)
}

// PromoteAll is the periodic promotion pass over every open event. It
// picks up capacity whose follow-up promotion failed or never ran.
func (p *PromotionService) PromoteAll(ctx context.Context) (int, error) {
	start := time.Now()
	defer func() {
		metrics.SweepDuration.WithLabelValues("promotion").Observe(time.Since(start).Seconds())
	}()

	eventIDs, err := p.repos.Events.ListOpenEventIDs(ctx)
	if err != nil {
		metrics.SweepFailures.WithLabelValues("promotion").Inc()
		return 0, err
	}

	total := 0
	var errs []error
	for _, eventID := range eventIDs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := p.PromoteEvent(ctx, eventID)
		total += n
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		metrics.SweepFailures.WithLabelValues("promotion").Inc()
		return total, err
	}
	return total, nil
}

// poolsOf lists the distinct inventory keys of entries, in the order
// their oldest entry appears.
func poolsOf(entries []domain.WaitingListEntry) []domain.InventoryKey {
	seen := make(map[domain.InventoryKey]bool)
	var keys []domain.InventoryKey
	for _, e := range entries {
		if key := e.Key(); !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// promoteAfter is the follow-up pass triggered by a capacity change. Its
// failure is logged; PromoteAll picks the pool up on the next tick.
func (p *PromotionService) promoteAfter(ctx context.Context, key domain.InventoryKey, cause string) {
	if _, err := p.Promote(ctx, key); err != nil {
		p.opts.logger.Error("promotion pass failed",
			"key", key.String(),
			"cause", cause,
			"error", err,
		)
	}
}

func offerIssued(entry *domain.WaitingListEntry) domain.OfferIssued {
	return domain.OfferIssued{
		EntryID:      entry.ID,
		EventID:      entry.EventID,
		TicketTypeID: entry.TicketTypeID,
		UserID:       entry.UserID,
		Quantity:     entry.Quantity,
		ExpiresAt:    *entry.OfferExpiresAt,
		At:           entry.UpdatedAt,
	}
}
