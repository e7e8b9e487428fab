package model

import "time"

type NotificationKind string

const (
	NotificationTaskDue  NotificationKind = "task_due"
	NotificationReminder NotificationKind = "reminder"
	NotificationSystem   NotificationKind = "system"
)

type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Kind      NotificationKind
	Read      bool
	CreatedAt time.Time
}

func NewNotification(id, userID, title, message string, kind NotificationKind) *Notification {
	if kind == "" {
		kind = NotificationSystem
	}
	return &Notification{
		ID:        id,
		UserID:    userID,
		Title:     title,
		Message:   message,
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}
