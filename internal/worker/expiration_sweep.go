package worker

import (
	"context"
	"time"

	"github.com/recares/dme-matcher/internal/pkg/logger"
	"github.com/recares/dme-matcher/internal/service/listings"
)

// =============================================================================
// EXPIRATION SWEEP WORKER
// =============================================================================
// Listings leave the matching window 90 days after submission. Once a day the
// sweep warns owners whose listing turned exactly 83 days old. The trigger is
// a single day wide, so the interval must not exceed 24h or warnings are
// missed.

// DefaultSweepInterval is how often the sweep runs.
const DefaultSweepInterval = 24 * time.Hour

// Sweeper runs one expiration sweep.
type Sweeper interface {
	SweepExpirations(ctx context.Context) (*listings.SweepResult, error)
}

// ExpirationWorker runs the sweep on a ticker.
type ExpirationWorker struct {
	sweeper    Sweeper
	interval   time.Duration
	runOnStart bool
}

// NewExpirationWorker creates a worker. A non-positive interval falls back to
// DefaultSweepInterval.
func NewExpirationWorker(sweeper Sweeper, interval time.Duration, runOnStart bool) *ExpirationWorker {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &ExpirationWorker{sweeper: sweeper, interval: interval, runOnStart: runOnStart}
}

// Start begins the sweep loop. It blocks until ctx is cancelled.
func (w *ExpirationWorker) Start(ctx context.Context) {
	logger.Info("expiration worker starting", "interval", w.interval.String(), "run_on_start", w.runOnStart)

	if w.runOnStart {
		w.sweep(ctx)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("expiration worker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpirationWorker) sweep(ctx context.Context) {
	start := time.Now()
	res, err := w.sweeper.SweepExpirations(ctx)
	if err != nil {
		// the next tick retries; a failed day is reported, not replayed
		logger.Error("expiration sweep failed", "error", err, "duration", time.Since(start).String())
		return
	}
	logger.Debug("expiration sweep cycle",
		"event_id", res.EventID,
		"warned", res.Warned,
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
}
