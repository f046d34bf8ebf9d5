package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

// PurchaseService converts a live offer into tickets once payment is
// confirmed.
type PurchaseService struct {
	repos    Repositories
	promoter *PromotionService
	opts     options
}

func NewPurchaseService(repos Repositories, promoter *PromotionService, opts ...Option) *PurchaseService {
	return &PurchaseService{
		repos:    repos,
		promoter: promoter,
		opts:     newOptions(opts),
	}
}

// Finalize mints one ticket per unit of the offer, updates the ticket type
// stock and marks the entry purchased in a single transaction. Replaying
// the same payment reference for an already purchased entry returns the
// tickets issued the first time.
func (s *PurchaseService) Finalize(ctx context.Context, entryID uuid.UUID, payment domain.PaymentConfirmation) ([]domain.Ticket, error) {
	var (
		tickets  []domain.Ticket
		entry    *domain.WaitingListEntry
		replayed bool
	)

	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		entry, err = s.repos.Entries.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}

		if isReplay(entry, payment) {
			tickets, err = s.repos.Tickets.ListByEntry(ctx, entryID)
			replayed = true
			return err
		}

		if err := checkOffer(entry, payment.UserID, s.opts.clock.Now()); err != nil {
			return err
		}

		event, err := s.repos.Events.LockInventory(ctx, entry.Key())
		if err != nil {
			return err
		}

		// Re-read under the lock: the sweeper may have won the race.
		entry, err = s.repos.Entries.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		now := s.opts.clock.Now()
		if err := checkOffer(entry, payment.UserID, now); err != nil {
			return err
		}

		if event.IsCancelled {
			return domain.ErrEventCancelled
		}

		key := entry.Key()
		unitPrice, err := event.UnitPrice(key)
		if err != nil {
			return err
		}
		if err := checkPayment(event, unitPrice, entry.Quantity, payment); err != nil {
			return err
		}

		capacity, err := event.Capacity(key)
		if err != nil {
			return err
		}
		sold, err := s.repos.Tickets.CountSold(ctx, key)
		if err != nil {
			return err
		}
		if sold+entry.Quantity > capacity {
			err := fmt.Errorf("%w: %s has %d of %d sold, cannot add %d", domain.ErrOversell, key, sold, capacity, entry.Quantity)
			s.opts.consistencyViolation("oversell", err, "entry_id", entryID)
			return err
		}

		if err := entry.MarkPurchased(payment.Reference, now); err != nil {
			return err
		}
		if err := s.repos.Entries.UpdateEntry(ctx, entry, domain.EntryOffered); err != nil {
			return fmt.Errorf("mark entry %s purchased: %w", entryID, err)
		}

		currency := event.Currency
		if currency == "" {
			currency = payment.Currency
		}
		tickets = domain.IssueTickets(entry, unitPrice, payment, currency, now)
		if err := s.repos.Tickets.CreateTickets(ctx, tickets); err != nil {
			return fmt.Errorf("create tickets for entry %s: %w", entryID, err)
		}

		if !key.IsLegacy() {
			remaining := max(capacity-(sold+entry.Quantity), 0)
			if err := s.repos.Events.UpdateTicketTypeStock(ctx, key.TicketTypeID, remaining, remaining == 0); err != nil {
				return fmt.Errorf("update stock for %s: %w", key, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if replayed {
		s.opts.logger.Info("purchase replayed", "entry_id", entryID, "reference", payment.Reference)
		return tickets, nil
	}

	s.opts.scheduler.Cancel(entryID)
	metrics.OfferTransitions.WithLabelValues("purchased").Inc()
	metrics.TicketsSold.Add(float64(len(tickets)))
	s.opts.logger.Info("purchase finalized",
		"entry_id", entryID,
		"user_id", entry.UserID,
		"key", entry.Key().String(),
		"tickets", len(tickets),
		"reference", payment.Reference,
	)
	s.opts.publish(ctx, entry.EventID, domain.TicketsPurchased{
		EntryID:   entry.ID,
		TicketIDs: domain.TicketIDs(tickets),
		EventID:   entry.EventID,
		UserID:    entry.UserID,
		At:        entry.UpdatedAt,
	})

	s.promoter.promoteAfter(ctx, entry.Key(), "purchase")

	return tickets, nil
}

func (s *PurchaseService) ListUserTickets(ctx context.Context, eventID uuid.UUID, userID string) ([]domain.Ticket, error) {
	return s.repos.Tickets.ListByUserAndEvent(ctx, userID, eventID)
}

func isReplay(entry *domain.WaitingListEntry, payment domain.PaymentConfirmation) bool {
	return entry.Status == domain.EntryPurchased &&
		payment.Reference != "" &&
		entry.PaymentReference == payment.Reference &&
		entry.UserID == payment.UserID
}

func checkOffer(entry *domain.WaitingListEntry, userID string, now time.Time) error {
	if entry.Status != domain.EntryOffered {
		return domain.ErrInvalidState
	}
	if entry.IsOfferLapsed(now) {
		return domain.ErrOfferExpired
	}
	if entry.UserID != userID {
		return domain.ErrUnauthorized
	}
	return nil
}

func checkPayment(event *domain.Event, unitPrice decimal.Decimal, quantity int, payment domain.PaymentConfirmation) error {
	if !payment.Amount.IsZero() {
		expected := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		if !payment.Amount.Equal(expected) {
			return fmt.Errorf("%w: paid %s, expected %s", domain.ErrPaymentMismatch, payment.Amount, expected)
		}
	}
	if payment.Currency != "" && event.Currency != "" && !strings.EqualFold(payment.Currency, event.Currency) {
		return fmt.Errorf("%w: currency %s, expected %s", domain.ErrPaymentMismatch, payment.Currency, event.Currency)
	}
	return nil
}
