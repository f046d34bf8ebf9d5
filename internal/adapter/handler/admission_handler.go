package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/services"
)

type AdmissionHandler struct {
	admission *services.AdmissionService
	purchase  *services.PurchaseService
	ledger    *services.InventoryLedger
	promoter  *services.PromotionService
	logger    *slog.Logger
}

func NewAdmissionHandler(admission *services.AdmissionService, purchase *services.PurchaseService, ledger *services.InventoryLedger, promoter *services.PromotionService, logger *slog.Logger) *AdmissionHandler {
	return &AdmissionHandler{
		admission: admission,
		purchase:  purchase,
		ledger:    ledger,
		promoter:  promoter,
		logger:    logger,
	}
}

type joinRequest struct {
	TicketTypeID uuid.UUID `json:"ticketTypeId"`
	Quantity     int       `json:"quantity"`
}

type purchaseRequest struct {
	UserID           string          `json:"userId"`
	PaymentReference string          `json:"paymentReference"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
}

type ticketResponse struct {
	ID               uuid.UUID           `json:"id"`
	EventID          uuid.UUID           `json:"eventId"`
	TicketTypeID     *uuid.UUID          `json:"ticketTypeId,omitempty"`
	EntryID          uuid.UUID           `json:"entryId"`
	Status           domain.TicketStatus `json:"status"`
	PurchasedAt      time.Time           `json:"purchasedAt"`
	Amount           decimal.Decimal     `json:"amount"`
	Currency         string              `json:"currency"`
	PaymentReference string              `json:"paymentReference"`
}

func newTicketResponse(t domain.Ticket) ticketResponse {
	resp := ticketResponse{
		ID:               t.ID,
		EventID:          t.EventID,
		EntryID:          t.EntryID,
		Status:           t.Status,
		PurchasedAt:      t.PurchasedAt,
		Amount:           t.Amount,
		Currency:         t.Currency,
		PaymentReference: t.PaymentReference,
	}
	if t.TicketTypeID != uuid.Nil {
		id := t.TicketTypeID
		resp.TicketTypeID = &id
	}
	return resp
}

// JoinQueue handles POST /api/v1/events/:eventId/queue.
func (h *AdmissionHandler) JoinQueue(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid eventId"})
	}

	var req joinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	res, err := h.admission.JoinQueue(c.Request().Context(), services.JoinRequest{
		EventID:      eventID,
		UserID:       userID(c),
		TicketTypeID: req.TicketTypeID,
		Quantity:     req.Quantity,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, res)
}

// QueuePosition handles GET /api/v1/events/:eventId/queue/position.
func (h *AdmissionHandler) QueuePosition(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid eventId"})
	}

	pos, err := h.admission.QueryPosition(c.Request().Context(), eventID, userID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, pos)
}

// Release handles POST /api/v1/queue/:entryId/release.
func (h *AdmissionHandler) Release(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid entryId"})
	}

	if err := h.admission.Release(c.Request().Context(), entryID, userID(c)); err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": string(domain.EntryReleased)})
}

// Purchase handles POST /api/v1/queue/:entryId/purchase. It is called by
// the checkout service after it captured payment on behalf of userId.
func (h *AdmissionHandler) Purchase(c echo.Context) error {
	entryID, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid entryId"})
	}

	var req purchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request payload"})
	}
	switch {
	case req.UserID == "":
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "userId is required"})
	case req.PaymentReference == "":
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "paymentReference is required"})
	case !req.Amount.IsPositive():
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "amount must be positive"})
	}

	h.logger.Info("checkout purchase", "entry_id", entryID, "user_id", req.UserID, "caller", userID(c))

	tickets, err := h.purchase.Finalize(c.Request().Context(), entryID, domain.PaymentConfirmation{
		UserID:    req.UserID,
		Reference: req.PaymentReference,
		Amount:    req.Amount,
		Currency:  req.Currency,
	})
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(http.StatusCreated, map[string][]uuid.UUID{"ticketIds": domain.TicketIDs(tickets)})
}

// Availability handles GET /api/v1/events/:eventId/availability.
func (h *AdmissionHandler) Availability(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid eventId"})
	}

	avail, err := h.ledger.EventAvailability(c.Request().Context(), eventID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"eventId":      eventID,
		"availability": avail,
	})
}

// MyTickets handles GET /api/v1/events/:eventId/tickets/me.
func (h *AdmissionHandler) MyTickets(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid eventId"})
	}

	tickets, err := h.purchase.ListUserTickets(c.Request().Context(), eventID, userID(c))
	if err != nil {
		return writeError(c, h.logger, err)
	}

	resp := make([]ticketResponse, 0, len(tickets))
	for _, t := range tickets {
		resp = append(resp, newTicketResponse(t))
	}

	return c.JSON(http.StatusOK, resp)
}

// PromoteEvent handles POST /api/v1/admin/events/:eventId/promote.
func (h *AdmissionHandler) PromoteEvent(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("eventId"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid eventId"})
	}

	promoted, err := h.promoter.PromoteEvent(c.Request().Context(), eventID)
	if err != nil {
		return writeError(c, h.logger, err)
	}

	h.logger.Info("manual promotion", "event_id", eventID, "promoted", promoted, "admin_id", userID(c))
	return c.JSON(http.StatusOK, map[string]int{"promoted": promoted})
}
