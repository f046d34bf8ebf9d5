package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
)

// SweepRunner drives the background work: expiry timers, the periodic
// expiration and promotion sweeps and stock reconciliation.
type SweepRunner struct {
	sweeper           *ExpirationSweeper
	promoter          *PromotionService
	ledger            *InventoryLedger
	scheduler         *ExpiryScheduler
	repos             Repositories
	sweepInterval     time.Duration
	reconcileInterval time.Duration
	logger            *slog.Logger
}

func NewSweepRunner(repos Repositories, sweeper *ExpirationSweeper, promoter *PromotionService, ledger *InventoryLedger, scheduler *ExpiryScheduler, sweepInterval, reconcileInterval time.Duration, logger *slog.Logger) *SweepRunner {
	return &SweepRunner{
		sweeper:           sweeper,
		promoter:          promoter,
		ledger:            ledger,
		scheduler:         scheduler,
		repos:             repos,
		sweepInterval:     sweepInterval,
		reconcileInterval: reconcileInterval,
		logger:            logger,
	}
}

// Recover re-arms timers for offers that were live when the process
// stopped, then expires whatever lapsed in the meantime.
func (r *SweepRunner) Recover(ctx context.Context) error {
	offers, err := r.repos.Entries.LiveOffers(ctx, r.sweeper.opts.clock.Now())
	if err != nil {
		return err
	}

	for _, entry := range offers {
		r.scheduler.Schedule(entry.ID, *entry.OfferExpiresAt)
	}

	expired, err := r.sweeper.Sweep(ctx)
	r.logger.Info("recovered expiry timers", "armed", len(offers), "expired", expired)
	if err != nil {
		return err
	}

	_, err = r.promoter.PromoteAll(ctx)
	return err
}

func (r *SweepRunner) Run(ctx context.Context) {
	sweepTicker := time.NewTicker(r.sweepInterval)
	defer sweepTicker.Stop()

	reconcileTicker := time.NewTicker(r.reconcileInterval)
	defer reconcileTicker.Stop()

	r.logger.Info("background worker started",
		"sweep_interval", r.sweepInterval,
		"reconcile_interval", r.reconcileInterval,
	)

	for {
		select {
		case <-ctx.Done():
			r.scheduler.Stop()
			r.logger.Info("background worker stopped")
			return

		case entryID := <-r.scheduler.Due():
			if _, err := r.sweeper.ExpireEntry(ctx, entryID); err != nil {
				r.logger.Error("timed expiry failed", "entry_id", entryID, "error", err)
			}

		case <-sweepTicker.C:
			r.sweep(ctx)

		case <-reconcileTicker.C:
			start := time.Now()
			if err := r.ledger.ReconcileAll(ctx); err != nil {
				metrics.SweepFailures.WithLabelValues("reconcile").Inc()
				r.logger.Error("stock reconciliation failed", "error", err)
			}
			metrics.SweepDuration.WithLabelValues("reconcile").Observe(time.Since(start).Seconds())
		}
	}
}

// sweep expires lapsed offers, then hands any free capacity to waiting
// entries whose follow-up promotion was missed.
func (r *SweepRunner) sweep(ctx context.Context) {
	if _, err := r.sweeper.Sweep(ctx); err != nil {
		r.logger.Error("expiration sweep failed", "error", err)
	}

	promoted, err := r.promoter.PromoteAll(ctx)
	if err != nil {
		r.logger.Error("promotion sweep failed", "error", err)
	}
	if promoted > 0 {
		r.logger.Info("promotion sweep issued offers", "promoted", promoted)
	}
}
