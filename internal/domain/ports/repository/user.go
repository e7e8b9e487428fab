package repository

import (
	"context"

	"personal-ai-assistant/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, qx Tx, u *model.User) error
	FindByID(ctx context.Context, qx Tx, id string) (*model.User, error)
	FindByUsername(ctx context.Context, qx Tx, username string) (*model.User, error)
}
