package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/srgjo27/ticket_admission/internal/core/ports"
)

const pruneThreshold = 10000

type window struct {
	start time.Time
	count int
}

// MemoryLimiter is a process-local fixed-window counter, for single
// instance deployments and tests.
type MemoryLimiter struct {
	clock  ports.Clock
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryLimiter(clock ports.Clock, limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		clock:   clock,
		limit:   limit,
		window:  windowSize,
		windows: make(map[string]*window),
	}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (ports.RateLimitDecision, error) {
	now := l.clock.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.windows) > pruneThreshold {
		l.prune(now)
	}

	w, ok := l.windows[key]
	if !ok || !now.Before(w.start.Add(l.window)) {
		w = &window{start: now}
		l.windows[key] = w
	}
	w.count++

	return decide(w.count, l.limit, w.start.Add(l.window).Sub(now)), nil
}

func (l *MemoryLimiter) prune(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.start.Add(l.window)) {
			delete(l.windows, key)
		}
	}
}
