// File: internal/usecase/auth_uc.go
package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"personal-ai-assistant/internal/domain"
	"personal-ai-assistant/internal/domain/model"
	"personal-ai-assistant/internal/domain/ports/repository"
)

// Compile-time check
var _ AuthUseCase = (*authUC)(nil)

const minPasswordLen = 4

type AuthUseCase interface {
	Signup(ctx context.Context, username, password string) (*model.User, error)
	Login(ctx context.Context, username, password string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

type authUC struct {
	users repository.UserRepository
}

func NewAuthUseCase(users repository.UserRepository) *authUC {
	return &authUC{users: users}
}

func (a *authUC) Signup(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrInvalidArgument
	}
	if len(password) < minPasswordLen {
		return nil, domain.ErrValidation
	}
	if _, err := a.users.FindByUsername(ctx, repository.NoTX, username); err == nil {
		return nil, domain.ErrUsernameTaken
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := model.NewUser(uuid.NewString(), username, string(hash))
	if err := a.users.Save(ctx, repository.NoTX, user); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, domain.ErrUsernameTaken
		}
		return nil, err
	}
	return user, nil
}

func (a *authUC) Login(ctx context.Context, username, password string) (*model.User, error) {
	user, err := a.users.FindByUsername(ctx, repository.NoTX, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

func (a *authUC) GetUser(ctx context.Context, id string) (*model.User, error) {
	return a.users.FindByID(ctx, repository.NoTX, id)
}
