package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

type RateLimitDecision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// RateLimiter counts join attempts per key in a fixed window.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitDecision, error)
}

// Notifier delivers domain events. Failures never roll back state.
type Notifier interface {
	Notify(ctx context.Context, event domain.DomainEvent) error
}

// AvailabilityCache fronts the read-only availability query.
type AvailabilityCache interface {
	Get(ctx context.Context, eventID uuid.UUID) ([]domain.Availability, bool, error)
	Set(ctx context.Context, eventID uuid.UUID, availability []domain.Availability) error
	Invalidate(ctx context.Context, eventID uuid.UUID) error
}

type Clock interface {
	Now() time.Time
}
