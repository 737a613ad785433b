package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/entity"
	"tictactoe-server/internal/repository"
)

// AuthService is the credential-store collaborator: it owns password hashing
// and verification, delegating persistence to the user repository.
type AuthService interface {
	Register(ctx context.Context, username, password string) error
	Verify(ctx context.Context, username, password string) error
}

type authService struct {
	users repository.UserRepository
}

func NewAuthService(users repository.UserRepository) AuthService {
	return &authService{
		users: users,
	}
}

func (that *authService) Register(ctx context.Context, username, password string) error {
	_, err := that.users.Find(ctx, username)
	if err == nil {
		return apperror.ErrUserExists
	}
	if !errors.Is(err, apperror.ErrUserNotFound) {
		return fmt.Errorf("failed to check existing user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Username: username,
		Password: string(hash),
	}
	if err = that.users.Save(ctx, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (that *authService) Verify(ctx context.Context, username, password string) error {
	user, err := that.users.Find(ctx, username)
	if errors.Is(err, apperror.ErrUserNotFound) {
		return apperror.ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return apperror.ErrBadPassword
	}

	return nil
}
