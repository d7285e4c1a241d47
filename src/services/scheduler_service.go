package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// SchedulerService runs reconciliation on an interval in the background.
// On-demand runs via the HTTP endpoint are independent of this loop.
type SchedulerService struct {
	reconciler *ReconcileService
	enabled    bool
	interval   time.Duration
	done       chan bool
}

// NewSchedulerService creates a reconciliation scheduler
func NewSchedulerService(reconciler *ReconcileService, enabled bool, interval time.Duration) *SchedulerService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &SchedulerService{
		reconciler: reconciler,
		enabled:    enabled,
		interval:   interval,
		done:       make(chan bool),
	}
}

// Start starts the background loop. No-op when disabled.
func (ss *SchedulerService) Start(ctx context.Context) {
	if !ss.enabled {
		log.Info().Msg("reconcile scheduler disabled")
		return
	}

	go func() {
		ticker := time.NewTicker(ss.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reconcile scheduler stopped")
				return
			case <-ss.done:
				log.Info().Msg("reconcile scheduler stopped")
				return
			case <-ticker.C:
				ss.runOnce(ctx)
			}
		}
	}()

	log.Info().Dur("interval", ss.interval).Msg("reconcile scheduler started")
}

// Stop stops the background loop
func (ss *SchedulerService) Stop() {
	ss.done <- true
}

func (ss *SchedulerService) runOnce(ctx context.Context) {
	summary, err := ss.reconciler.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("scheduled reconciliation failed")
		return
	}
	if len(summary.Updated) > 0 || summary.Errors > 0 {
		log.Info().
			Int("updated", len(summary.Updated)).
			Int("errors", summary.Errors).
			Msg("scheduled reconciliation applied changes")
	}
}
