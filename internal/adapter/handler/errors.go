package handler

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsConsistencyViolation(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrOfferExpired), errors.Is(err, domain.ErrEventCancelled):
		return http.StatusGone
	case errors.Is(err, domain.ErrAlreadyQueued),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrOfferStillLive),
		errors.Is(err, domain.ErrInsufficientInventory):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrTicketTypeRequired),
		errors.Is(err, domain.ErrTicketTypeUnavailable),
		errors.Is(err, domain.ErrPaymentMismatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps domain errors to status codes. Consistency violations and
// unexpected failures are not shown to the caller.
func writeError(c echo.Context, logger *slog.Logger, err error) error {
	status := statusFor(err)

	var rl *domain.RateLimitedError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rl.RetryAfter.Seconds()))))
	}

	msg := err.Error()
	switch status {
	case http.StatusServiceUnavailable:
		msg = "please retry"
	case http.StatusInternalServerError:
		logger.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
		msg = "internal error"
	}

	return c.JSON(status, map[string]string{"error": msg})
}
