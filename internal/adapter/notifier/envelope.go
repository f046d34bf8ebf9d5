// Package notifier delivers domain events to Kafka and PubNub.
package notifier

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// Envelope is the wire format shared by every sink.
type Envelope struct {
	ID         uuid.UUID          `json:"id"`
	Type       domain.EventType   `json:"type"`
	OccurredAt time.Time          `json:"occurredAt"`
	Payload    domain.DomainEvent `json:"payload"`
}

func NewEnvelope(event domain.DomainEvent) Envelope {
	return Envelope{
		ID:         uuid.New(),
		Type:       event.Type(),
		OccurredAt: event.OccurredAt(),
		Payload:    event,
	}
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
