package notifier

import (
	"context"
	"log/slog"

	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// LogNotifier records events in the process log. Used when no broker is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, event domain.DomainEvent) error {
	n.logger.InfoContext(ctx, "domain event",
		"type", event.Type(),
		"partition_key", event.PartitionKey(),
		"recipient", event.Recipient(),
		"at", event.OccurredAt(),
	)
	return nil
}
