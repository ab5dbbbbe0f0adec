package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EODWorker is a background worker that runs the end-of-day batch once per
// business date
type EODWorker struct {
	eodService *EODService
	logger     zerolog.Logger
	interval   time.Duration
	now        func() time.Time
	stopCh     chan struct{}
	doneCh     chan struct{}
	mu         sync.Mutex
	running    bool
	lastDate   time.Time
}

// EODWorkerConfig holds configuration for the EOD worker
type EODWorkerConfig struct {
	Interval time.Duration // How often to check for a pending business date
}

// DefaultEODWorkerConfig returns sensible defaults
func DefaultEODWorkerConfig() EODWorkerConfig {
	return EODWorkerConfig{
		Interval: 15 * time.Minute,
	}
}

// NewEODWorker creates a new EOD worker
func NewEODWorker(eodService *EODService, logger zerolog.Logger, config EODWorkerConfig) *EODWorker {
	if config.Interval <= 0 {
		config.Interval = 15 * time.Minute
	}

	return &EODWorker{
		eodService: eodService,
		logger:     logger.With().Str("component", "eod_worker").Logger(),
		interval:   config.Interval,
		now:        func() time.Time { return time.Now().UTC() },
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}
}

// Start begins the background EOD loop
func (w *EODWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting EOD worker")

	go w.run(ctx)
}

// Stop gracefully stops the EOD worker
func (w *EODWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping EOD worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("EOD worker stopped")
}

// run is the main loop for the EOD worker
func (w *EODWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.runPending(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-w.stopCh:
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.runPending(ctx)
		}
	}
}

// runPending runs the batch for the current business date unless it already
// ran for that date
func (w *EODWorker) runPending(ctx context.Context) {
	now := w.now()
	businessDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	w.mu.Lock()
	done := !w.lastDate.Before(businessDate)
	w.mu.Unlock()
	if done {
		return
	}

	result, err := w.eodService.Run(ctx, businessDate)
	if err != nil {
		w.logger.Error().
			Err(err).
			Time("date", businessDate).
			Msg("EOD run failed")
		return
	}

	w.mu.Lock()
	w.lastDate = businessDate
	w.mu.Unlock()

	w.logger.Info().
		Time("date", businessDate).
		Int("accrual_processed", result.Accrual.Processed).
		Int("delinquency_processed", result.Delinquency.Processed).
		Dur("elapsed", result.FinishedAt.Sub(result.StartedAt)).
		Msg("Scheduled EOD run completed")
}

// IsRunning returns whether the worker is currently running
func (w *EODWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
