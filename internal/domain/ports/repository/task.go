package repository

import (
	"context"

	"personal-ai-assistant/internal/domain/model"
)

// TaskFilter narrows task listings; empty fields match everything.
type TaskFilter struct {
	Status   model.TaskStatus
	Priority model.TaskPriority
}

type TaskRepository interface {
	Save(ctx context.Context, qx Tx, t *model.Task) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Task, error)
	FindAllByUser(ctx context.Context, qx Tx, userID string, filter TaskFilter) ([]*model.Task, error)
	// Delete removes the task and its reminders.
	Delete(ctx context.Context, qx Tx, id string) error
}
