// Package memory is an embedded implementation of the repository ports.
// Writers of one inventory key are serialized by a per-key mutex held for
// the whole transaction; failed transactions are undone from a log.
package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

var errNoTx = errors.New("memory: inventory lock requires a transaction")

type txKey struct{}

type tx struct {
	held  map[string]*sync.Mutex
	order []string
	undo  []func()
}

type Store struct {
	mu      sync.RWMutex
	events  map[uuid.UUID]*domain.Event
	entries map[uuid.UUID]*domain.WaitingListEntry
	tickets map[uuid.UUID]*domain.Ticket

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		events:  make(map[uuid.UUID]*domain.Event),
		entries: make(map[uuid.UUID]*domain.WaitingListEntry),
		tickets: make(map[uuid.UUID]*domain.Ticket),
		locks:   make(map[string]*sync.Mutex),
	}
}

// WithTx joins an outer transaction when one is already in ctx.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*tx); ok {
		return fn(ctx)
	}

	t := &tx{held: make(map[string]*sync.Mutex)}
	defer func() {
		if r := recover(); r != nil {
			s.rollback(t)
			t.release()
			panic(r)
		}
		if err != nil {
			s.rollback(t)
		}
		t.release()
	}()

	return fn(context.WithValue(ctx, txKey{}, t))
}

func (s *Store) rollback(t *tx) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
}

func (t *tx) release() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.held[t.order[i]].Unlock()
	}
	t.held = nil
	t.order = nil
}

func (s *Store) keyMutex(key string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	m, ok := s.locks[key]
	if !ok {
		m = &sync.Mutex{}
		s.locks[key] = m
	}
	return m
}

// recordUndo must be called with s.mu held.
func (s *Store) recordUndo(ctx context.Context, fn func()) {
	if t, ok := ctx.Value(txKey{}).(*tx); ok {
		t.undo = append(t.undo, fn)
	}
}

func (s *Store) lockKey(ctx context.Context, key domain.InventoryKey) error {
	t, ok := ctx.Value(txKey{}).(*tx)
	if !ok {
		return errNoTx
	}

	name := key.String()
	if _, held := t.held[name]; held {
		return nil
	}

	m := s.keyMutex(name)
	m.Lock()
	t.held[name] = m
	t.order = append(t.order, name)
	return nil
}

func cloneEvent(e *domain.Event) *domain.Event {
	c := *e
	c.TicketTypes = append([]domain.TicketType(nil), e.TicketTypes...)
	return &c
}

func cloneEntry(e *domain.WaitingListEntry) *domain.WaitingListEntry {
	c := *e
	if e.OfferExpiresAt != nil {
		at := *e.OfferExpiresAt
		c.OfferExpiresAt = &at
	}
	return &c
}
