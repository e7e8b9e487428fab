package repository

import (
	"context"

	"personal-ai-assistant/internal/domain/model"
)

type NotificationRepository interface {
	Save(ctx context.Context, qx Tx, n *model.Notification) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.Notification, error)
	// FindAllByUser lists newest first; unreadOnly filters out read ones.
	FindAllByUser(ctx context.Context, qx Tx, userID string, unreadOnly bool) ([]*model.Notification, error)
	CountUnread(ctx context.Context, qx Tx, userID string) (int, error)
	MarkRead(ctx context.Context, qx Tx, id string) error
	// MarkAllRead returns the number of notifications updated.
	MarkAllRead(ctx context.Context, qx Tx, userID string) (int, error)
	Delete(ctx context.Context, qx Tx, id string) error
}
