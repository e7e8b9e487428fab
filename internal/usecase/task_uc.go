// File: internal/usecase/task_uc.go
package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

// Compile-time check
var _ TaskUseCase = (*taskUC)(nil)

// TaskUpdate carries the optional fields of an update; nil means unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *model.TaskStatus
	Priority    *model.TaskPriority
	DueDate     *time.Time
}

type TaskUseCase interface {
	Create(ctx context.Context, userID, title, description string, priority model.TaskPriority, due *time.Time) (*model.Task, error)
	List(ctx context.Context, userID string, filter repository.TaskFilter) ([]*model.Task, error)
	Get(ctx context.Context, userID, taskID string) (*model.Task, error)
	Update(ctx context.Context, userID, taskID string, upd TaskUpdate) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID string) error
}

type taskUC struct {
	tasks repository.TaskRepository
}

func NewTaskUseCase(tasks repository.TaskRepository) *taskUC {
	return &taskUC{tasks: tasks}
}

func (t *taskUC) Create(ctx context.Context, userID, title, description string, priority model.TaskPriority, due *time.Time) (*model.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, domain.ErrInvalidArgument
	}
	if priority != "" && !model.ValidTaskPriority(priority) {
		return nil, domain.ErrValidation
	}
	task := model.NewTask(uuid.NewString(), userID, title, description, priority, due)
	if err := t.tasks.Save(ctx, repository.NoTX, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (t *taskUC) List(ctx context.Context, userID string, filter repository.TaskFilter) ([]*model.Task, error) {
	if filter.Status != "" && !model.ValidTaskStatus(filter.Status) {
		return nil, domain.ErrValidation
	}
	if filter.Priority != "" && !model.ValidTaskPriority(filter.Priority) {
		return nil, domain.ErrValidation
	}
	return t.tasks.FindAllByUser(ctx, repository.NoTX, userID, filter)
}

func (t *taskUC) Get(ctx context.Context, userID, taskID string) (*model.Task, error) {
	return t.ownedTask(ctx, userID, taskID)
}

func (t *taskUC) Update(ctx context.Context, userID, taskID string, upd TaskUpdate) (*model.Task, error) {
	task, err := t.ownedTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if upd.Title != nil {
		if strings.TrimSpace(*upd.Title) == "" {
			return nil, domain.ErrInvalidArgument
		}
		task.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Description != nil {
		task.Description = *upd.Description
	}
	if upd.Status != nil {
		if !model.ValidTaskStatus(*upd.Status) {
			return nil, domain.ErrValidation
		}
		task.Status = *upd.Status
	}
	if upd.Priority != nil {
		if !model.ValidTaskPriority(*upd.Priority) {
			return nil, domain.ErrValidation
		}
		task.Priority = *upd.Priority
	}
	if upd.DueDate != nil {
		task.DueDate = upd.DueDate
	}
	task.UpdatedAt = time.Now()
	if err := t.tasks.Save(ctx, repository.NoTX, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (t *taskUC) Delete(ctx context.Context, userID, taskID string) error {
	if _, err := t.ownedTask(ctx, userID, taskID); err != nil {
		return err
	}
	return t.tasks.Delete(ctx, repository.NoTX, taskID)
}

func (t *taskUC) ownedTask(ctx context.Context, userID, taskID string) (*model.Task, error) {
	task, err := t.tasks.FindByID(ctx, repository.NoTX, taskID)
	if err != nil {
		return nil, err
	}
	if task.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return task, nil
}
