package model

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted:
		return true
	}
	return false
}

func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Task struct {
	ID          string
	UserID      string
	Title       string
	Description string
	Status      TaskStatus
	Priority    TaskPriority
	DueDate     *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewTask(id, userID, title, description string, priority TaskPriority, due *time.Time) *Task {
	now := time.Now()
	if priority == "" {
		priority = PriorityMedium
	}
	return &Task{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Description: description,
		Status:      TaskPending,
		Priority:    priority,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
