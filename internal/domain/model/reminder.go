package model

import "time"

type Reminder struct {
	ID        string
	TaskID    string
	UserID    string
	RemindAt  time.Time
	Sent      bool
	CreatedAt time.Time
}

func NewReminder(id, taskID, userID string, remindAt time.Time) *Reminder {
	return &Reminder{
		ID:        id,
		TaskID:    taskID,
		UserID:    userID,
		RemindAt:  remindAt,
		CreatedAt: time.Now(),
	}
}
