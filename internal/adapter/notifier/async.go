package notifier

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notifier is closed")
)

// Async decouples delivery from the request path. Events are queued and
// sent by background workers through a circuit breaker; when the queue is
// full or the breaker is open the event is dropped and logged.
type Async struct {
	next    ports.Notifier
	breaker *Breaker
	timeout time.Duration
	logger  *slog.Logger

	// mu guards closed; senders hold it shared so Close cannot close the
	// queue under them.
	mu     sync.RWMutex
	closed bool
	queue  chan domain.DomainEvent
	wg     sync.WaitGroup
}

func NewAsync(next ports.Notifier, breaker *Breaker, buffer, workers int, timeout time.Duration, logger *slog.Logger) *Async {
	a := &Async{
		next:    next,
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
		queue:   make(chan domain.DomainEvent, buffer),
	}

	for i := 0; i < workers; i++ {
		a.wg.Add(1)
		go a.work()
	}

	return a
}

func (a *Async) Notify(_ context.Context, event domain.DomainEvent) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		metrics.NotificationFailures.WithLabelValues("closed", string(event.Type())).Inc()
		return ErrClosed
	}

	select {
	case a.queue <- event:
		return nil
	default:
		metrics.NotificationFailures.WithLabelValues("queue", string(event.Type())).Inc()
		return ErrQueueFull
	}
}

func (a *Async) work() {
	defer a.wg.Done()

	for event := range a.queue {
		err := a.breaker.Execute(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
			defer cancel()
			return a.next.Notify(ctx, event)
		})
		if err != nil {
			a.logger.Warn("notification dropped",
				"type", event.Type(),
				"partition_key", event.PartitionKey(),
				"breaker", a.breaker.State().String(),
				"error", err,
			)
		}
	}
}

// Close stops accepting events and waits for queued ones to be sent.
// Later calls to Notify return ErrClosed.
func (a *Async) Close() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	a.wg.Wait()
}
