package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/platform/clock"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

const (
	DefaultOfferTTL     = 15 * time.Minute
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
	defaultSweepBatch   = 500
)

// Repositories groups the storage ports a service needs. Tx must be the
// unit of work the repositories take part in.
type Repositories struct {
	Tx      ports.UnitOfWork
	Events  ports.EventRepository
	Entries ports.WaitingListRepository
	Tickets ports.TicketRepository
}

// OfferScheduler arms a best-effort expiry check for one offer.
type OfferScheduler interface {
	Schedule(entryID uuid.UUID, at time.Time)
	Cancel(entryID uuid.UUID)
}

type options struct {
	clock             ports.Clock
	logger            *slog.Logger
	notifier          ports.Notifier
	cache             ports.AvailabilityCache
	scheduler         OfferScheduler
	offerTTL          time.Duration
	rateLimitPerEvent bool
	maxRetries        int
	retryBackoff      time.Duration
	sweepBatch        int
}

type Option func(*options)

func WithClock(c ports.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func WithNotifier(n ports.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithAvailabilityCache(c ports.AvailabilityCache) Option {
	return func(o *options) { o.cache = c }
}

func WithScheduler(s OfferScheduler) Option {
	return func(o *options) { o.scheduler = s }
}

func WithOfferTTL(ttl time.Duration) Option {
	return func(o *options) { o.offerTTL = ttl }
}

// WithRateLimitPerEvent keys the join limiter by user and event instead
// of by user alone.
func WithRateLimitPerEvent(enabled bool) Option {
	return func(o *options) { o.rateLimitPerEvent = enabled }
}

func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(o *options) {
		o.maxRetries = maxRetries
		o.retryBackoff = backoff
	}
}

func WithSweepBatch(n int) Option {
	return func(o *options) { o.sweepBatch = n }
}

func newOptions(opts []Option) options {
	o := options{
		clock:        clock.System{},
		logger:       slog.Default(),
		notifier:     nopNotifier{},
		scheduler:    nopScheduler{},
		offerTTL:     DefaultOfferTTL,
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
		sweepBatch:   defaultSweepBatch,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish runs the post-commit side effects of a state change. Nothing
// here can fail the operation that produced the events.
func (o *options) publish(ctx context.Context, eventID uuid.UUID, events ...domain.DomainEvent) {
	if o.cache != nil {
		if err := o.cache.Invalidate(ctx, eventID); err != nil {
			o.logger.Warn("failed to invalidate availability cache", "event_id", eventID, "error", err)
		}
	}

	for _, ev := range events {
		if err := o.notifier.Notify(ctx, ev); err != nil {
			metrics.NotificationFailures.WithLabelValues("service", string(ev.Type())).Inc()
			o.logger.Warn("failed to deliver domain event",
				"type", ev.Type(),
				"recipient", ev.Recipient(),
				"error", err,
			)
		}
	}
}

func (o *options) consistencyViolation(kind string, err error, attrs ...any) {
	metrics.ConsistencyViolations.WithLabelValues(kind).Inc()
	o.logger.Error("consistency violation", append([]any{"kind", kind, "error", err}, attrs...)...)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, domain.DomainEvent) error { return nil }

type nopScheduler struct{}

func (nopScheduler) Schedule(uuid.UUID, time.Time) {}
func (nopScheduler) Cancel(uuid.UUID)              {}
