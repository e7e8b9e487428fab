// File: internal/infra/db/postgres/postgres_reminder_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

var _ repository.ReminderRepository = (*PostgresReminderRepo)(nil)

type PostgresReminderRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresReminderRepo(pool *pgxpool.Pool) *PostgresReminderRepo {
	return &PostgresReminderRepo{pool: pool}
}

func (r *PostgresReminderRepo) Save(ctx context.Context, qx repository.Tx, rem *model.Reminder) error {
	const q = `
INSERT INTO reminders (id, task_id, user_id, remind_at, sent, created_at)
VALUES ($1,$2,$3,$4,$5,COALESCE($6,NOW()))
ON CONFLICT (id) DO UPDATE SET
  remind_at=$4, sent=$5;
`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, rem.ID, rem.TaskID, rem.UserID, rem.RemindAt, rem.Sent, rem.CreatedAt); err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	return nil
}

func (r *PostgresReminderRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Reminder, error) {
	const q = `
SELECT id, task_id, user_id, remind_at, sent, created_at FROM reminders WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var rem model.Reminder
	if err := ex.QueryRow(ctx, q, id).Scan(&rem.ID, &rem.TaskID, &rem.UserID, &rem.RemindAt, &rem.Sent, &rem.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &rem, nil
}

func (r *PostgresReminderRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID, taskID string) ([]*model.Reminder, error) {
	q := `
SELECT id, task_id, user_id, remind_at, sent, created_at
  FROM reminders WHERE user_id=$1`
	args := []interface{}{userID}
	if taskID != "" {
		args = append(args, taskID)
		q += " AND task_id=$2"
	}
	q += " ORDER BY remind_at ASC;"
	return r.query(ctx, qx, q, args...)
}

func (r *PostgresReminderRepo) FindDue(ctx context.Context, qx repository.Tx, now time.Time) ([]*model.Reminder, error) {
	// FOR UPDATE SKIP LOCKED keeps concurrent sweeps from racing on the same
	// rows even without the advisory lock.
	const q = `
SELECT id, task_id, user_id, remind_at, sent, created_at
  FROM reminders
 WHERE sent = FALSE AND remind_at <= $1
 ORDER BY remind_at ASC
 FOR UPDATE SKIP LOCKED;`
	return r.query(ctx, qx, q, now)
}

func (r *PostgresReminderRepo) MarkSent(ctx context.Context, qx repository.Tx, id string) error {
	const q = `UPDATE reminders SET sent = TRUE WHERE id=$1;`
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

func (r *PostgresReminderRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	const q = `DELETE FROM reminders WHERE id=$1;`
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

func (r *PostgresReminderRepo) query(ctx context.Context, qx repository.Tx, q string, args ...interface{}) ([]*model.Reminder, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Reminder
	for rows.Next() {
		var rem model.Reminder
		if err := rows.Scan(&rem.ID, &rem.TaskID, &rem.UserID, &rem.RemindAt, &rem.Sent, &rem.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &rem)
	}
	return out, rows.Err()
}
