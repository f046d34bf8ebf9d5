package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

// InventoryLedger derives availability from live ticket and entry rows.
type InventoryLedger struct {
	repos Repositories
	opts  options
}

func NewInventoryLedger(repos Repositories, opts ...Option) *InventoryLedger {
	return &InventoryLedger{repos: repos, opts: newOptions(opts)}
}

// Availability reads sold and offered units for key. Callers that act on
// the result must pass the transaction context holding the key's lock.
func (l *InventoryLedger) Availability(ctx context.Context, event *domain.Event, key domain.InventoryKey) (domain.Availability, error) {
	capacity, err := event.Capacity(key)
	if err != nil {
		return domain.Availability{}, err
	}

	sold, err := l.repos.Tickets.CountSold(ctx, key)
	if err != nil {
		return domain.Availability{}, fmt.Errorf("count sold for %s: %w", key, err)
	}

	offered, err := l.repos.Entries.SumActiveOffers(ctx, key, l.opts.clock.Now())
	if err != nil {
		return domain.Availability{}, fmt.Errorf("sum active offers for %s: %w", key, err)
	}

	avail := domain.ComputeAvailability(key, capacity, sold, offered)
	if avail.Overcommitted() {
		l.opts.consistencyViolation("overcommitted", domain.ErrOversell,
			"key", key.String(),
			"capacity", capacity,
			"sold", sold,
			"active_offers", offered,
		)
	}

	return avail, nil
}

// EventAvailability lists availability for every visible pool of an event,
// served from the cache when possible.
func (l *InventoryLedger) EventAvailability(ctx context.Context, eventID uuid.UUID) ([]domain.Availability, error) {
	if l.opts.cache != nil {
		cached, ok, err := l.opts.cache.Get(ctx, eventID)
		if err != nil {
			l.opts.logger.Warn("availability cache read failed", "event_id", eventID, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	event, err := l.repos.Events.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	result := make([]domain.Availability, 0, len(event.TicketTypes)+1)
	for _, key := range event.Keys() {
		if tt, ok := event.TicketType(key.TicketTypeID); ok && tt.IsHidden {
			continue
		}

		avail, err := l.Availability(ctx, event, key)
		if err != nil {
			return nil, err
		}
		result = append(result, avail)
	}

	if l.opts.cache != nil {
		if err := l.opts.cache.Set(ctx, eventID, result); err != nil {
			l.opts.logger.Warn("availability cache write failed", "event_id", eventID, "error", err)
		}
	}

	return result, nil
}

// Reconcile rewrites each ticket type's persisted remaining count from the
// tickets actually sold.
func (l *InventoryLedger) Reconcile(ctx context.Context, eventID uuid.UUID) error {
	event, err := l.repos.Events.GetEvent(ctx, eventID)
	if err != nil {
		return err
	}

	var errs []error
	for _, key := range event.Keys() {
		if key.IsLegacy() {
			continue
		}

		err := l.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
			locked, err := l.repos.Events.LockInventory(ctx, key)
			if err != nil {
				return err
			}

			tt, ok := locked.TicketType(key.TicketTypeID)
			if !ok {
				return domain.ErrNotFound
			}

			sold, err := l.repos.Tickets.CountSold(ctx, key)
			if err != nil {
				return err
			}

			remaining := max(tt.Quantity-sold, 0)
			soldOut := remaining == 0
			if tt.Remaining == remaining && tt.IsSoldOut == soldOut {
				return nil
			}

			metrics.StockDrift.Inc()
			l.opts.logger.Warn("ticket type stock drifted, correcting",
				"key", key.String(),
				"stored_remaining", tt.Remaining,
				"derived_remaining", remaining,
			)

			return l.repos.Events.UpdateTicketTypeStock(ctx, tt.ID, remaining, soldOut)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

func (l *InventoryLedger) ReconcileAll(ctx context.Context) error {
	ids, err := l.repos.Events.ListOpenEventIDs(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		if err := l.Reconcile(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
