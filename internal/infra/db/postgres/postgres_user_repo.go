// File: internal/infra/db/postgres/postgres_user_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) Save(ctx context.Context, qx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, username, password_hash, created_at)
VALUES ($1,$2,$3,COALESCE($4,NOW()))
ON CONFLICT (id) DO UPDATE SET
  username=$2, password_hash=$3;
`
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return err
	}
	if _, err := ex.Exec(ctx, q, u.ID, u.Username, u.PasswordHash, u.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, qx repository.Tx, id string) (*model.User, error) {
	const q = `SELECT id, username, password_hash, created_at FROM users WHERE id=$1;`
	return r.scanOne(ctx, qx, q, id)
}

func (r *PostgresUserRepo) FindByUsername(ctx context.Context, qx repository.Tx, username string) (*model.User, error) {
	const q = `SELECT id, username, password_hash, created_at FROM users WHERE username=$1;`
	return r.scanOne(ctx, qx, q, username)
}

func (r *PostgresUserRepo) scanOne(ctx context.Context, qx repository.Tx, q string, arg interface{}) (*model.User, error) {
	ex, err := getExecutor(r.pool, qx)
	if err != nil {
		return nil, err
	}
	var u model.User
	if err := ex.QueryRow(ctx, q, arg).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
