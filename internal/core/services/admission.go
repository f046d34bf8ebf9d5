package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

type JoinRequest struct {
	EventID      uuid.UUID
	UserID       string
	TicketTypeID uuid.UUID
	Quantity     int
}

func (r JoinRequest) Key() domain.InventoryKey {
	return domain.InventoryKey{EventID: r.EventID, TicketTypeID: r.TicketTypeID}
}

type JoinResult struct {
	EntryID        uuid.UUID          `json:"entryId"`
	Status         domain.EntryStatus `json:"status"`
	OfferExpiresAt *time.Time         `json:"offerExpiresAt,omitempty"`
	QueuePosition  int                `json:"queuePosition,omitempty"`
}

type Position struct {
	EntryID        uuid.UUID          `json:"entryId"`
	Status         domain.EntryStatus `json:"status"`
	OfferExpiresAt *time.Time         `json:"offerExpiresAt,omitempty"`
	QueuePosition  int                `json:"queuePosition,omitempty"`
}

// AdmissionService decides whether a join request becomes an offer or a
// waiting entry, and serves the user-facing queue operations.
type AdmissionService struct {
	repos    Repositories
	ledger   *InventoryLedger
	limiter  ports.RateLimiter
	promoter *PromotionService
	opts     options
}

func NewAdmissionService(repos Repositories, ledger *InventoryLedger, limiter ports.RateLimiter, promoter *PromotionService, opts ...Option) *AdmissionService {
	return &AdmissionService{
		repos:    repos,
		ledger:   ledger,
		limiter:  limiter,
		promoter: promoter,
		opts:     newOptions(opts),
	}
}

func (s *AdmissionService) JoinQueue(ctx context.Context, req JoinRequest) (*JoinResult, error) {
	if req.UserID == "" {
		return nil, domain.ErrUnauthorized
	}

	if err := s.checkRateLimit(ctx, req); err != nil {
		metrics.JoinOutcomes.WithLabelValues("rate_limited").Inc()
		return nil, err
	}

	existing, err := s.repos.Entries.ActiveEntryForUser(ctx, req.UserID, req.EventID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		metrics.JoinOutcomes.WithLabelValues("already_queued").Inc()
		return nil, domain.ErrAlreadyQueued
	}

	event, err := s.repos.Events.GetEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if event.IsCancelled {
		return nil, domain.ErrEventCancelled
	}
	if err := event.ValidateRequest(req.Key(), req.Quantity); err != nil {
		return nil, err
	}

	var entry *domain.WaitingListEntry
	var position int

	err = s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		event, err := s.repos.Events.LockInventory(ctx, req.Key())
		if err != nil {
			return err
		}
		if event.IsCancelled {
			return domain.ErrEventCancelled
		}

		avail, err := s.ledger.Availability(ctx, event, req.Key())
		if err != nil {
			return err
		}

		now := s.opts.clock.Now()
		if avail.Remaining >= req.Quantity {
			entry = domain.NewOfferedEntry(req.Key(), req.UserID, req.Quantity, now, s.opts.offerTTL)
		} else {
			entry = domain.NewWaitingEntry(req.Key(), req.UserID, req.Quantity, now)
		}

		if err := s.repos.Entries.CreateEntry(ctx, entry); err != nil {
			return err
		}

		if entry.Status == domain.EntryWaiting {
			ahead, err := s.repos.Entries.CountWaitingAhead(ctx, entry)
			if err != nil {
				return err
			}
			position = ahead + 1
		}

		return nil
	})
	if err != nil {
		// A concurrent join by the same user committed first; the unique
		// index did its job.
		if errors.Is(err, domain.ErrDuplicateActiveEntry) && s.hasActiveEntry(ctx, req) {
			metrics.JoinOutcomes.WithLabelValues("already_queued").Inc()
			return nil, domain.ErrAlreadyQueued
		}
		if domain.IsConsistencyViolation(err) {
			s.opts.consistencyViolation("duplicate_active_entry", err,
				"user_id", req.UserID,
				"event_id", req.EventID,
			)
		}
		return nil, err
	}

	result := &JoinResult{
		EntryID:        entry.ID,
		Status:         entry.Status,
		OfferExpiresAt: entry.OfferExpiresAt,
		QueuePosition:  position,
	}

	metrics.JoinOutcomes.WithLabelValues(string(entry.Status)).Inc()
	s.opts.logger.Info("user joined queue",
		"entry_id", entry.ID,
		"key", req.Key().String(),
		"user_id", req.UserID,
		"status", entry.Status,
		"quantity", entry.Quantity,
	)

	if entry.Status == domain.EntryOffered {
		s.opts.scheduler.Schedule(entry.ID, *entry.OfferExpiresAt)
		s.opts.publish(ctx, entry.EventID, offerIssued(entry))
	} else {
		s.opts.publish(ctx, entry.EventID, domain.QueueJoined{
			EntryID:       entry.ID,
			EventID:       entry.EventID,
			UserID:        entry.UserID,
			QueuePosition: position,
			At:            entry.CreatedAt,
		})
	}

	return result, nil
}

func (s *AdmissionService) hasActiveEntry(ctx context.Context, req JoinRequest) bool {
	existing, err := s.repos.Entries.ActiveEntryForUser(ctx, req.UserID, req.EventID)
	if err != nil {
		s.opts.logger.Warn("active entry lookup failed", "user_id", req.UserID, "event_id", req.EventID, "error", err)
		return false
	}
	return existing != nil
}

// checkRateLimit fails open when the limiter backend is unavailable.
func (s *AdmissionService) checkRateLimit(ctx context.Context, req JoinRequest) error {
	key := req.UserID
	if s.opts.rateLimitPerEvent {
		key = req.UserID + ":" + req.EventID.String()
	}

	decision, err := s.limiter.Allow(ctx, key)
	if err != nil {
		metrics.RateLimiterErrors.Inc()
		s.opts.logger.Warn("rate limiter unavailable, allowing join", "user_id", req.UserID, "error", err)
		return nil
	}

	if !decision.Allowed {
		return &domain.RateLimitedError{RetryAfter: decision.RetryAfter}
	}

	return nil
}

// QueryPosition reports the caller's most recent entry for the event. An
// offer whose deadline has passed is reported as expired even before the
// sweeper records it.
func (s *AdmissionService) QueryPosition(ctx context.Context, eventID uuid.UUID, userID string) (*Position, error) {
	entry, err := s.repos.Entries.LatestEntryForUser(ctx, userID, eventID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, domain.ErrNotFound
	}

	pos := &Position{
		EntryID:        entry.ID,
		Status:         entry.Status,
		OfferExpiresAt: entry.OfferExpiresAt,
	}

	switch {
	case entry.Status == domain.EntryWaiting:
		ahead, err := s.repos.Entries.CountWaitingAhead(ctx, entry)
		if err != nil {
			return nil, err
		}
		pos.QueuePosition = ahead + 1
	case entry.IsOfferLapsed(s.opts.clock.Now()):
		pos.Status = domain.EntryExpired
		pos.OfferExpiresAt = nil
	}

	return pos, nil
}

// Release gives a live offer back voluntarily and promotes the next entries.
func (s *AdmissionService) Release(ctx context.Context, entryID uuid.UUID, userID string) error {
	var released *domain.WaitingListEntry

	err := s.repos.Tx.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.repos.Entries.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.UserID != userID {
			return domain.ErrUnauthorized
		}

		if _, err := s.repos.Events.LockInventory(ctx, entry.Key()); err != nil {
			return err
		}

		entry, err = s.repos.Entries.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}

		if err := entry.Release(s.opts.clock.Now()); err != nil {
			return err
		}

		if err := s.repos.Entries.UpdateEntry(ctx, entry, domain.EntryOffered); err != nil {
			return fmt.Errorf("release entry %s: %w", entryID, err)
		}

		released = entry
		return nil
	})
	if err != nil {
		return err
	}

	s.opts.scheduler.Cancel(entryID)
	metrics.OfferTransitions.WithLabelValues("released").Inc()
	s.opts.logger.Info("offer released", "entry_id", entryID, "user_id", userID)
	s.opts.publish(ctx, released.EventID, domain.OfferReleased{
		EntryID: released.ID,
		EventID: released.EventID,
		UserID:  released.UserID,
		At:      released.UpdatedAt,
	})

	s.promoter.promoteAfter(ctx, released.Key(), "release")

	return nil
}
