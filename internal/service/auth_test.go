package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/entity"
)

type memoryUsers struct {
	users map[string]*entity.User
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{users: make(map[string]*entity.User)}
}

func (that *memoryUsers) Save(_ context.Context, user *entity.User) error {
	that.users[user.Username] = user

	return nil
}

func (that *memoryUsers) Find(_ context.Context, username string) (*entity.User, error) {
	user, ok := that.users[username]
	if !ok {
		return nil, apperror.ErrUserNotFound
	}

	return user, nil
}

func TestAuthService_Register(t *testing.T) {
	t.Run("Register stores a hash, not the password", func(t *testing.T) {
		// Given: an empty credential store
		users := newMemoryUsers()
		auth := NewAuthService(users)

		// When: a new user registers
		err := auth.Register(context.Background(), "alice", "s3cret")
		require.NoError(t, err)

		// Then: the stored credential is a bcrypt hash
		stored := users.users["alice"]
		require.NotNil(t, stored)
		require.NotEqual(t, "s3cret", stored.Password)
		assert.True(t, strings.HasPrefix(stored.Password, "$2"))
	})

	t.Run("Error on duplicate username", func(t *testing.T) {
		users := newMemoryUsers()
		auth := NewAuthService(users)
		require.NoError(t, auth.Register(context.Background(), "alice", "s3cret"))

		err := auth.Register(context.Background(), "alice", "other")

		require.ErrorIs(t, err, apperror.ErrUserExists)
	})
}

func TestAuthService_Verify(t *testing.T) {
	t.Run("Correct password", func(t *testing.T) {
		users := newMemoryUsers()
		auth := NewAuthService(users)
		require.NoError(t, auth.Register(context.Background(), "alice", "s3cret"))

		err := auth.Verify(context.Background(), "alice", "s3cret")

		require.NoError(t, err)
	})

	t.Run("Wrong password", func(t *testing.T) {
		users := newMemoryUsers()
		auth := NewAuthService(users)
		require.NoError(t, auth.Register(context.Background(), "alice", "s3cret"))

		err := auth.Verify(context.Background(), "alice", "nope")

		require.ErrorIs(t, err, apperror.ErrBadPassword)
	})

	t.Run("Unknown user", func(t *testing.T) {
		auth := NewAuthService(newMemoryUsers())

		err := auth.Verify(context.Background(), "ghost", "whatever")

		require.ErrorIs(t, err, apperror.ErrUserNotFound)
	})
}
