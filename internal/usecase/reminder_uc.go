// File: internal/usecase/reminder_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

// Compile-time check
var _ ReminderUseCase = (*reminderUC)(nil)

const sweepLockKey = "reminder_sweep"
const sweepLockTTL = 55 * time.Second

// unknownTaskTitle is used when a reminder outlives its task.
const unknownTaskTitle = "Unknown Task"

type ReminderUseCase interface {
	Create(ctx context.Context, userID, taskID string, remindAt time.Time) (*model.Reminder, error)
	List(ctx context.Context, userID, taskID string) ([]*model.Reminder, error)
	Delete(ctx context.Context, userID, reminderID string) error

	// SweepDue promotes due unsent reminders into notifications and marks
	// them sent, committing the whole batch once. Returns the number fired.
	SweepDue(ctx context.Context) (int, error)
}

type reminderUC struct {
	reminders repository.ReminderRepository
	tasks     repository.TaskRepository
	notifs    repository.NotificationRepository
	tm        repository.TransactionManager
	locker    Locker
	log       *zerolog.Logger
}

func NewReminderUseCase(
	reminders repository.ReminderRepository,
	tasks repository.TaskRepository,
	notifs repository.NotificationRepository,
	tm repository.TransactionManager,
	locker Locker,
	logger *zerolog.Logger,
) *reminderUC {
	return &reminderUC{reminders: reminders, tasks: tasks, notifs: notifs, tm: tm, locker: locker, log: logger}
}

func (r *reminderUC) Create(ctx context.Context, userID, taskID string, remindAt time.Time) (*model.Reminder, error) {
	task, err := r.tasks.FindByID(ctx, repository.NoTX, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrNotFound
	}
	rem := model.NewReminder(uuid.NewString(), taskID, userID, remindAt)
	if err := r.reminders.Save(ctx, repository.NoTX, rem); err != nil {
		return nil, err
	}
	return rem, nil
}

func (r *reminderUC) List(ctx context.Context, userID, taskID string) ([]*model.Reminder, error) {
	return r.reminders.FindAllByUser(ctx, repository.NoTX, userID, taskID)
}

func (r *reminderUC) Delete(ctx context.Context, userID, reminderID string) error {
	rem, err := r.reminders.FindByID(ctx, repository.NoTX, reminderID)
	if err != nil {
		return err
	}
	if rem.UserID != userID {
		return domain.ErrNotFound
	}
	return r.reminders.Delete(ctx, repository.NoTX, reminderID)
}

func (r *reminderUC) SweepDue(ctx context.Context) (int, error) {
	// Concurrent sweep instances would double-fire; a short lock makes the
	// tick single-claimant. A skipped tick is retried on the next interval.
	if r.locker != nil {
		token, err := r.locker.TryLock(ctx, sweepLockKey, sweepLockTTL)
		if err != nil {
			r.log.Debug().Msg("sweep already claimed, skipping tick")
			return 0, nil
		}
		defer func() { _ = r.locker.Unlock(context.Background(), sweepLockKey, token) }()
	}

	fired := 0
	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		due, err := r.reminders.FindDue(ctx, tx, time.Now())
		if err != nil {
			return fmt.Errorf("find due reminders: %w", err)
		}
		for _, rem := range due {
			title := unknownTaskTitle
			task, err := r.tasks.FindByID(ctx, tx, rem.TaskID)
			switch {
			case err == nil:
				title = task.Title
			case errors.Is(err, domain.ErrNotFound):
				// Task deleted after the reminder was created; fire anyway.
			default:
				return fmt.Errorf("resolve task %s: %w", rem.TaskID, err)
			}

			n := model.NewNotification(
				uuid.NewString(),
				rem.UserID,
				"Reminder: "+title,
				fmt.Sprintf("Your reminder for task %q is due.", title),
				model.NotificationReminder,
			)
			if err := r.notifs.Save(ctx, tx, n); err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
			if err := r.reminders.MarkSent(ctx, tx, rem.ID); err != nil {
				return fmt.Errorf("mark reminder sent: %w", err)
			}
			fired++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return fired, nil
}
