package notifier

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes one message per domain event, keyed by entry so
// that events of one entry stay ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event domain.DomainEvent) error {
	envelope := NewEnvelope(event)
	value, err := envelope.Marshal()
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.Type(), err)
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.PartitionKey()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type())},
			{Key: "event_id", Value: []byte(envelope.ID.String())},
		},
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
