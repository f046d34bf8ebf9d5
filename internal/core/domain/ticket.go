package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketValid     TicketStatus = "valid"
	TicketUsed      TicketStatus = "used"
	TicketRefunded  TicketStatus = "refunded"
	TicketCancelled TicketStatus = "cancelled"
)

// CountsAsSold reports whether the ticket still consumes capacity.
func (s TicketStatus) CountsAsSold() bool {
	return s == TicketValid || s == TicketUsed
}

type Ticket struct {
	ID               uuid.UUID
	EventID          uuid.UUID
	UserID           string
	TicketTypeID     uuid.UUID
	EntryID          uuid.UUID
	Status           TicketStatus
	PurchasedAt      time.Time
	Amount           decimal.Decimal
	Currency         string
	PaymentReference string
}

// PaymentConfirmation is the external "payment succeeded" signal.
// A zero Amount skips the amount check (trusted internal callers).
type PaymentConfirmation struct {
	UserID    string
	Reference string
	Amount    decimal.Decimal
	Currency  string
}

// IssueTickets mints one valid ticket per unit of the entry.
func IssueTickets(entry *WaitingListEntry, unitPrice decimal.Decimal, payment PaymentConfirmation, currency string, now time.Time) []Ticket {
	tickets := make([]Ticket, 0, entry.Quantity)
	for i := 0; i < entry.Quantity; i++ {
		tickets = append(tickets, Ticket{
			ID:               uuid.New(),
			EventID:          entry.EventID,
			UserID:           entry.UserID,
			TicketTypeID:     entry.TicketTypeID,
			EntryID:          entry.ID,
			Status:           TicketValid,
			PurchasedAt:      now,
			Amount:           unitPrice,
			Currency:         currency,
			PaymentReference: payment.Reference,
		})
	}
	return tickets
}

func TicketIDs(tickets []Ticket) []uuid.UUID {
	ids := make([]uuid.UUID, len(tickets))
	for i, t := range tickets {
		ids[i] = t.ID
	}
	return ids
}
