package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// withRetry retries transient failures with doubling backoff. Domain errors
// and context cancellation are returned immediately.
func withRetry(ctx context.Context, logger *slog.Logger, op string, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || domain.IsDomainError(err) || ctx.Err() != nil || attempt >= attempts {
			return err
		}

		logger.Warn("transient failure, retrying",
			"op", op,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
}
