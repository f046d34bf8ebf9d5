package handler

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/services"
)

const (
	paystackSignatureHeader = "x-paystack-signature"
	paystackChargeSuccess   = "charge.success"
	maxWebhookBody          = 1 << 20
)

type paystackEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Metadata  struct {
			EntryID string `json:"entryId"`
			UserID  string `json:"userId"`
		} `json:"metadata"`
	} `json:"data"`
}

// PaystackHandler turns verified charge.success webhooks into purchases.
type PaystackHandler struct {
	secret   []byte
	purchase *services.PurchaseService
	logger   *slog.Logger
}

func NewPaystackHandler(secret string, purchase *services.PurchaseService, logger *slog.Logger) *PaystackHandler {
	return &PaystackHandler{
		secret:   []byte(secret),
		purchase: purchase,
		logger:   logger,
	}
}

func (h *PaystackHandler) verify(body []byte, signature string) bool {
	if len(h.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, h.secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Webhook handles POST /api/v1/payments/paystack/webhook. Paystack
// redelivers on any non-2xx response, so only failures a retry could fix
// return 5xx.
func (h *PaystackHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	if !h.verify(body, c.Request().Header.Get(paystackSignatureHeader)) {
		h.logger.Warn("paystack webhook signature mismatch", "remote_ip", c.RealIP())
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
	}

	var evt paystackEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}

	if evt.Event != paystackChargeSuccess {
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	entryID, err := uuid.Parse(evt.Data.Metadata.EntryID)
	if err != nil || evt.Data.Metadata.UserID == "" {
		h.logger.Warn("paystack charge without admission metadata", "reference", evt.Data.Reference)
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored"})
	}

	tickets, err := h.purchase.Finalize(c.Request().Context(), entryID, domain.PaymentConfirmation{
		UserID:    evt.Data.Metadata.UserID,
		Reference: evt.Data.Reference,
		Amount:    decimal.New(evt.Data.Amount, -2),
		Currency:  evt.Data.Currency,
	})
	if err != nil {
		if domain.IsDomainError(err) {
			// Paid but not admitted; settled by the refund flow.
			h.logger.Warn("paystack charge rejected",
				"reference", evt.Data.Reference,
				"entry_id", entryID,
				"user_id", evt.Data.Metadata.UserID,
				"error", err,
			)
			return c.JSON(http.StatusOK, map[string]string{"status": "rejected", "error": err.Error()})
		}
		h.logger.Error("paystack finalize failed", "reference", evt.Data.Reference, "entry_id", entryID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}

	h.logger.Info("paystack charge finalized", "reference", evt.Data.Reference, "entry_id", entryID, "tickets", len(tickets))
	return c.JSON(http.StatusOK, map[string]any{"status": "purchased", "ticketIds": domain.TicketIDs(tickets)})
}
