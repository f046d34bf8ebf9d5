package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

// ExpiryScheduler arms one timer per live offer and reports the entry on
// Due when its deadline passes. Timers do not survive a restart and a full
// Due channel drops the signal; the periodic sweep covers both.
type ExpiryScheduler struct {
	clock ports.Clock

	mu      sync.Mutex
	timers  map[uuid.UUID]*time.Timer
	stopped bool

	due chan uuid.UUID
}

func NewExpiryScheduler(clock ports.Clock, buffer int) *ExpiryScheduler {
	return &ExpiryScheduler{
		clock:  clock,
		timers: make(map[uuid.UUID]*time.Timer),
		due:    make(chan uuid.UUID, buffer),
	}
}

func (s *ExpiryScheduler) Schedule(entryID uuid.UUID, at time.Time) {
	delay := at.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	if t, ok := s.timers[entryID]; ok {
		t.Stop()
	}
	s.timers[entryID] = time.AfterFunc(delay, func() { s.fire(entryID) })
	metrics.PendingExpiryTimers.Set(float64(len(s.timers)))
}

func (s *ExpiryScheduler) Cancel(entryID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[entryID]; ok {
		t.Stop()
		delete(s.timers, entryID)
		metrics.PendingExpiryTimers.Set(float64(len(s.timers)))
	}
}

func (s *ExpiryScheduler) fire(entryID uuid.UUID) {
	s.mu.Lock()
	delete(s.timers, entryID)
	metrics.PendingExpiryTimers.Set(float64(len(s.timers)))
	stopped := s.stopped
	s.mu.Unlock()

	if stopped {
		return
	}

	select {
	case s.due <- entryID:
	default:
	}
}

func (s *ExpiryScheduler) Due() <-chan uuid.UUID {
	return s.due
}

func (s *ExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms every timer. Schedule is a no-op afterwards.
func (s *ExpiryScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	metrics.PendingExpiryTimers.Set(0)
}
