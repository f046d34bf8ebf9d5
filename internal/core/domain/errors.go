package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrRateLimited           = errors.New("too many attempts")
	ErrAlreadyQueued         = errors.New("user already has an active entry for this event")
	ErrEventCancelled        = errors.New("event is cancelled")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrNotFound              = errors.New("not found")
	ErrInvalidState          = errors.New("entry is not in the expected state")
	ErrOfferExpired          = errors.New("offer has expired")
	ErrOfferStillLive        = errors.New("offer has not expired yet")
	ErrUnauthorized          = errors.New("entry does not belong to the requester")
	ErrDuplicateActiveEntry  = errors.New("duplicate active entry")
	ErrOversell              = errors.New("purchase would exceed capacity")
	ErrInvalidQuantity       = errors.New("invalid quantity")
	ErrTicketTypeRequired    = errors.New("ticket type is required for this event")
	ErrTicketTypeUnavailable = errors.New("ticket type is not available")
	ErrPaymentMismatch       = errors.New("payment does not match offer")
)

// RateLimitedError carries the instant the caller may retry.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("%s: retry after %s", ErrRateLimited, e.RetryAfter.Round(time.Second))
}

func (e *RateLimitedError) Unwrap() error {
	return ErrRateLimited
}

// IsConsistencyViolation marks errors that mean atomicity was broken.
func IsConsistencyViolation(err error) bool {
	return errors.Is(err, ErrDuplicateActiveEntry) || errors.Is(err, ErrOversell)
}

// IsDomainError reports errors that retrying cannot fix.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrRateLimited, ErrAlreadyQueued, ErrEventCancelled, ErrInsufficientInventory,
		ErrNotFound, ErrInvalidState, ErrOfferExpired, ErrOfferStillLive, ErrUnauthorized,
		ErrDuplicateActiveEntry, ErrOversell, ErrInvalidQuantity, ErrTicketTypeRequired,
		ErrTicketTypeUnavailable, ErrPaymentMismatch,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
