package repository

import (
	"context"
	"time"

	"personal-ai-assistant/internal/domain/model"
)

type ReminderRepository interface {
	Save(ctx context.Context, qx Tx, r *model.Reminder) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Reminder, error)
	// FindAllByUser lists a user's reminders ordered by RemindAt ascending,
	// optionally filtered by task.
	FindAllByUser(ctx context.Context, qx Tx, userID, taskID string) ([]*model.Reminder, error)
	// FindDue returns unsent reminders with RemindAt <= now.
	FindDue(ctx context.Context, qx Tx, now time.Time) ([]*model.Reminder, error)
	MarkSent(ctx context.Context, qx Tx, id string) error
	Delete(ctx context.Context, qx Tx, id string) error
}
