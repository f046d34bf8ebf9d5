package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_admission/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/core/services"
	"github.com/srgjo27/ticket_admission/internal/platform/clock"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type harness struct {
	store     *memory.Store
	clock     *clock.Fake
	repos     services.Repositories
	ledger    *services.InventoryLedger
	promoter  *services.PromotionService
	admission *services.AdmissionService
	purchase  *services.PurchaseService
	sweeper   *services.ExpirationSweeper
}

type allowAll struct{}

func (allowAll) Allow(context.Context, string) (ports.RateLimitDecision, error) {
	return ports.RateLimitDecision{Allowed: true}, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, limiter ports.RateLimiter, extra ...services.Option) *harness {
	t.Helper()
	return newHarnessWith(t, limiter, nil, extra...)
}

// newHarnessWith wraps the store's waiting-list repository, for tests that
// inject faults or delays.
func newHarnessWith(t *testing.T, limiter ports.RateLimiter, wrap func(*memory.Store) ports.WaitingListRepository, extra ...services.Option) *harness {
	t.Helper()

	store := memory.NewStore()
	clk := clock.NewFake(epoch)
	repos := services.Repositories{Tx: store, Events: store, Entries: store, Tickets: store}
	if wrap != nil {
		repos.Entries = wrap(store)
	}

	if limiter == nil {
		limiter = allowAll{}
	}

	opts := append([]services.Option{
		services.WithClock(clk),
		services.WithLogger(quietLogger()),
		services.WithOfferTTL(15 * time.Minute),
		services.WithRetry(3, time.Millisecond),
	}, extra...)

	ledger := services.NewInventoryLedger(repos, opts...)
	promoter := services.NewPromotionService(repos, ledger, opts...)

	return &harness{
		store:     store,
		clock:     clk,
		repos:     repos,
		ledger:    ledger,
		promoter:  promoter,
		admission: services.NewAdmissionService(repos, ledger, limiter, promoter, opts...),
		purchase:  services.NewPurchaseService(repos, promoter, opts...),
		sweeper:   services.NewExpirationSweeper(repos, promoter, opts...),
	}
}

// seedTyped creates an event with one group-purchasable ticket type.
func (h *harness) seedTyped(capacity int) domain.InventoryKey {
	eventID := uuid.New()
	tt := domain.TicketType{
		ID:                 uuid.New(),
		EventID:            eventID,
		Name:               "T1",
		Price:              decimal.NewFromInt(5000),
		Quantity:           capacity,
		Remaining:          capacity,
		AllowGroupPurchase: true,
	}
	h.store.PutEvent(&domain.Event{
		ID:          eventID,
		Name:        "Afrobeats Live",
		Currency:    "NGN",
		TicketTypes: []domain.TicketType{tt},
	})
	return domain.InventoryKey{EventID: eventID, TicketTypeID: tt.ID}
}

func (h *harness) seedLegacy(capacity int) domain.InventoryKey {
	eventID := uuid.New()
	h.store.PutEvent(&domain.Event{
		ID:           eventID,
		Name:         "Open Mic",
		TotalTickets: capacity,
		Price:        decimal.NewFromInt(2000),
		Currency:     "NGN",
	})
	return domain.InventoryKey{EventID: eventID}
}

func (h *harness) join(t *testing.T, key domain.InventoryKey, userID string, quantity int) *services.JoinResult {
	t.Helper()

	res, err := h.admission.JoinQueue(context.Background(), services.JoinRequest{
		EventID:      key.EventID,
		UserID:       userID,
		TicketTypeID: key.TicketTypeID,
		Quantity:     quantity,
	})
	require.NoError(t, err)
	return res
}

func (h *harness) entry(t *testing.T, id uuid.UUID) *domain.WaitingListEntry {
	t.Helper()

	e, err := h.store.GetEntry(context.Background(), id)
	require.NoError(t, err)
	return e
}

func payment(userID, ref string) domain.PaymentConfirmation {
	return domain.PaymentConfirmation{UserID: userID, Reference: ref}
}

var errConnReset = errors.New("connection reset by peer")

// flakyEntries fails WaitingEntries while failures remain.
type flakyEntries struct {
	*memory.Store

	mu       sync.Mutex
	failures int
}

func (f *flakyEntries) WaitingEntries(ctx context.Context, key domain.InventoryKey) ([]domain.WaitingListEntry, error) {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return nil, errConnReset
	}
	f.mu.Unlock()
	return f.Store.WaitingEntries(ctx, key)
}

func (f *flakyEntries) failNext(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = n
}

// slowActive delays ActiveEntryForUser so concurrent joins both pass the
// pre-check before either commits.
type slowActive struct {
	*memory.Store
	delay time.Duration
}

func (s slowActive) ActiveEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error) {
	time.Sleep(s.delay)
	return s.Store.ActiveEntryForUser(ctx, userID, eventID)
}
