// File: internal/infra/db/postgres/postgres_task_repo.go
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

var _ repository.TaskRepository = (*PostgresTaskRepo)(nil)

type PostgresTaskRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresTaskRepo(pool *pgxpool.Pool) *PostgresTaskRepo {
	return &PostgresTaskRepo{pool: pool}
}

func (r *PostgresTaskRepo) Save(ctx context.Context, qx repository.Tx, t *model.Task) error {
	const q = `
INSERT INTO tasks (id, user_id, title, description, status, priority, due_date, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,COALESCE($8,NOW()),COALESCE($9,NOW()))
ON CONFLICT (id) DO UPDATE SET
  title=$3, description=$4, status=$5, priority=$6, due_date=$7, updated_at=$9;
`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, t.ID, t.UserID, t.Title, t.Description,
		string(t.Status), string(t.Priority), t.DueDate, t.CreatedAt, t.UpdatedAt); err != nil {
		return fmt.Errorf("save task: %w", err)
	}
	return nil
}

func (r *PostgresTaskRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.Task, error) {
	const q = `
SELECT id, user_id, title, description, status, priority, due_date, created_at, updated_at
  FROM tasks WHERE id=$1;`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	t, err := scanTask(ex.QueryRow(ctx, q, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *PostgresTaskRepo) FindAllByUser(ctx context.Context, qx repository.Tx, userID string, filter repository.TaskFilter) ([]*model.Task, error) {
	// Empty filter fields match everything; COALESCE-style branches keep the
	// query planner simple.
	q := `
SELECT id, user_id, title, description, status, priority, due_date, created_at, updated_at
  FROM tasks WHERE user_id=$1`
	args := []interface{}{userID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		q += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Priority != "" {
		args = append(args, string(filter.Priority))
		q += fmt.Sprintf(" AND priority=$%d", len(args))
	}
	q += " ORDER BY created_at ASC;"

	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	rows, err := ex.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *PostgresTaskRepo) Delete(ctx context.Context, qx repository.Tx, id string) error {
	// reminders go via ON DELETE CASCADE
	const q = `DELETE FROM tasks WHERE id=$1;`
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

func scanTask(row pgx.Row) (*model.Task, error) {
	var t model.Task
	var status, priority string
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &priority,
		&t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Status = model.TaskStatus(status)
	t.Priority = model.TaskPriority(priority)
	return &t, nil
}
