// File: internal/infra/sched/reminder_worker.go
package sched

import (
	"context"
	"time"

	"personal-ai-assistant/internal/infra/metrics"
	"personal-ai-assistant/internal/usecase"

	"github.com/rs/zerolog"
)

// ReminderWorker drives the due-reminder sweep on a fixed interval. Sweep
// errors are logged and never stop the loop.
type ReminderWorker struct {
	interval   time.Duration
	reminderUC usecase.ReminderUseCase
	log        *zerolog.Logger
}

func NewReminderWorker(interval time.Duration, reminderUC usecase.ReminderUseCase, logger *zerolog.Logger) *ReminderWorker {
	compLog := logger.With().Str("component", "ReminderWorker").Logger()
	return &ReminderWorker{
		interval:   interval,
		reminderUC: reminderUC,
		log:        &compLog,
	}
}

func (w *ReminderWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting reminder worker")
	// Run once on startup, then on every tick
	w.runCheck(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reminder worker")
			return ctx.Err()
		case <-ticker.C:
			w.runCheck(ctx)
		}
	}
}

func (w *ReminderWorker) runCheck(ctx context.Context) {
	fired, err := w.reminderUC.SweepDue(ctx)
	if err != nil {
		metrics.IncSweepRun("failed")
		w.log.Error().Err(err).Msg("reminder sweep failed")
		return
	}
	metrics.IncSweepRun("ok")
	if fired > 0 {
		metrics.AddRemindersFired(fired)
		w.log.Info().Int("count", fired).Msg("reminders fired")
	}
}
