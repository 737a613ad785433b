package repository_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"tictactoe-server/internal/apperror"
	"tictactoe-server/internal/entity"
	"tictactoe-server/internal/repository"
	"tictactoe-server/testing/suite"
)

func TestSQLiteUserRepository(t *testing.T) {
	ctx, sqliteStorage := suite.NewSQLite(t)

	repo := repository.NewSQLiteUserRepository(sqliteStorage.Connection)

	t.Run("Find before save", func(t *testing.T) {
		_, err := repo.Find(ctx, "alice")

		require.ErrorIs(t, err, apperror.ErrUserNotFound)
	})

	t.Run("Save and find", func(t *testing.T) {
		user := &entity.User{Username: "alice", Password: "$2a$10$hash"}
		require.NoError(t, repo.Save(ctx, user))

		found, err := repo.Find(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, user.Username, found.Username)
		require.Equal(t, user.Password, found.Password)
	})

	t.Run("Duplicate save fails on the primary key", func(t *testing.T) {
		user := &entity.User{Username: "alice", Password: "$2a$10$other"}

		err := repo.Save(ctx, user)

		require.Error(t, err)
	})
}

func TestRedisUserRepository(t *testing.T) {
	ctx, testSuite := suite.New(t)

	repo := repository.NewRedisUserRepository(testSuite.Storage)

	t.Run("Find before save", func(t *testing.T) {
		_, err := repo.Find(ctx, "alice")

		require.ErrorIs(t, err, apperror.ErrUserNotFound)
	})

	t.Run("Save and find", func(t *testing.T) {
		user := &entity.User{Username: "alice", Password: "$2a$10$hash"}
		require.NoError(t, repo.Save(ctx, user))

		found, err := repo.Find(ctx, "alice")
		require.NoError(t, err)
		require.Equal(t, user.Username, found.Username)
		require.Equal(t, user.Password, found.Password)
	})
}
