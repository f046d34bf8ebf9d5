package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

type Sink struct {
	Name     string
	Notifier ports.Notifier
}

// Fanout delivers every event to all sinks. A failing sink does not stop
// delivery to the others.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Notify(ctx context.Context, event domain.DomainEvent) error {
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Notifier.Notify(ctx, event); err != nil {
			metrics.NotificationFailures.WithLabelValues(sink.Name, string(event.Type())).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
		}
	}
	return errors.Join(errs...)
}
