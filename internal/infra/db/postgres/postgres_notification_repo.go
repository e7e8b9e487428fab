// File: internal/infra/db/postgres/postgres_notification_repo.go
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

var _ repository.NotificationRepository = (*PostgresNotificationRepo)(nil)

type PostgresNotificationRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationRepo(pool *pgxpool.Pool) *PostgresNotificationRepo {
	return &PostgresNotificationRepo{pool: pool}
}

func (r *PostgresNotificationRepo) Save(ctx context.Context, qx repository.Tx, n *model.Notification) error {
	const q = `
INSERT INTO notifications (id, user_id, title, message, kind, read, created_at)
VALUES ($1,$2,$3,$4,$5,$6,COALESCE($7,NOW()))
ON CONFLICT (id) DO UPDATE SET read=$6;
`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, n.ID, n.UserID, n.Title, n.Message, string(n.Kind), n.Read, n.CreatedAt); err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Notification, error) {
	const q = `
SELECT id, user_id, title, message, kind, read, created_at FROM notifications WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var n model.Notification
	var kind string
	if err := ex.QueryRow(ctx, q, id).Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.Read, &n.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	n.Kind = model.NotificationKind(kind)
	return &n, nil
}

func (r *PostgresNotificationRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string, unreadOnly bool) ([]*model.Notification, error) {
	q := `
SELECT id, user_id, title, message, kind, read, created_at
  FROM notifications WHERE user_id=$1`
	if unreadOnly {
		q += " AND read = FALSE"
	}
	q += " ORDER BY created_at DESC;"

	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Notification
	for rows.Next() {
		var n model.Notification
		var kind string
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &kind, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Kind = model.NotificationKind(kind)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *PostgresNotificationRepo) CountUnread(ctx context.Context, qx repository.Tx, userID string) (int, error) {
	const q = `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND read = FALSE;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	var cnt int
	if err := ex.QueryRow(ctx, q, userID).Scan(&cnt); err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *PostgresNotificationRepo) MarkRead(ctx context.Context, qx repository.Tx, id string) error {
	const q = `UPDATE notifications SET read = TRUE WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresNotificationRepo) MarkAllRead(ctx context.Context, qx repository.Tx, userID string) (int, error) {
	const q = `UPDATE notifications SET read = TRUE WHERE user_id=$1 AND read = FALSE;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return 0, err
	}
	tag, err := ex.Exec(ctx, q, userID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *PostgresNotificationRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	const q = `DELETE FROM notifications WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	tag, err := ex.Exec(ctx, q, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
