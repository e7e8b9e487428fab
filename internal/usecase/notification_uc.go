// File: internal/usecase/notification_uc.go
package usecase

import (
	"context"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

// Compile-time check
var _ NotificationUseCase = (*notificationUC)(nil)

type NotificationUseCase interface {
	List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (*model.Notification, error)
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, notificationID string) error
}

type notificationUC struct {
	notifs repository.NotificationRepository
}

func NewNotificationUseCase(notifs repository.NotificationRepository) *notificationUC {
	return &notificationUC{notifs: notifs}
}

func (n *notificationUC) List(ctx context.Context, userID string, unreadOnly bool) ([]*model.Notification, error) {
	return n.notifs.FindAllByUser(ctx, repository.NoTX, userID, unreadOnly)
}

func (n *notificationUC) UnreadCount(ctx context.Context, userID string) (int, error) {
	return n.notifs.CountUnread(ctx, repository.NoTX, userID)
}

func (n *notificationUC) MarkRead(ctx context.Context, userID, notificationID string) (*model.Notification, error) {
	notif, err := n.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if err := n.notifs.MarkRead(ctx, repository.NoTX, notificationID); err != nil {
		return nil, err
	}
	notif.Read = true
	return notif, nil
}

func (n *notificationUC) MarkAllRead(ctx context.Context, userID string) (int, error) {
	return n.notifs.MarkAllRead(ctx, repository.NoTX, userID)
}

func (n *notificationUC) Delete(ctx context.Context, userID, notificationID string) error {
	if _, err := n.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	return n.notifs.Delete(ctx, repository.NoTX, notificationID)
}

func (n *notificationUC) owned(ctx context.Context, userID, notificationID string) (*model.Notification, error) {
	notif, err := n.notifs.FindByID(ctx, repository.NoTX, notificationID)
	if err != nil {
		return nil, err
	}
	if notif.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return notif, nil
}
